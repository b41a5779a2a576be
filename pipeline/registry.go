package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/swdee/go-dlinfer/model"
	"go.uber.org/zap"
)

// Registry holds the Pipelines of every loaded model.  Ids are assigned
// sequentially in the order models are added
type Registry struct {
	mu        sync.RWMutex
	pipelines []*Pipeline
	byName    map[string]*Pipeline
	nextID    int

	accelerated bool
	modelOpts   []model.Option
	overrides   model.Overrides
	log         *zap.Logger

	close  sync.Once
	closed bool
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithModelOptions are passed to model.New for every added bundle
func WithModelOptions(opts ...model.Option) RegistryOption {
	return func(r *Registry) {
		r.modelOpts = append(r.modelOpts, opts...)
	}
}

// WithOverrides replaces the visualization defaults of every added model
func WithOverrides(o model.Overrides) RegistryOption {
	return func(r *Registry) {
		r.overrides = o
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry creates an empty Registry.  When accelerated is set models are
// loaded with their compiled artifacts
func NewRegistry(accelerated bool, opts ...RegistryOption) *Registry {

	r := &Registry{
		byName:      make(map[string]*Pipeline),
		accelerated: accelerated,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Add loads the model bundle in dir and registers its Pipeline.  A bundle
// that fails to load is not registered
func (r *Registry) Add(dir string) (*Pipeline, error) {

	opts := append([]model.Option{model.WithLogger(r.log)}, r.modelOpts...)

	cfg, err := model.New(dir, r.accelerated, opts...)

	if err != nil {
		return nil, fmt.Errorf("error loading model %s: %w", dir, err)
	}

	p, err := r.AddConfig(cfg)

	if err != nil {
		cfg.Close()
		return nil, err
	}

	return p, nil
}

// AddConfig registers a Pipeline for an already loaded model configuration.
// The Registry takes ownership of the model Session
func (r *Registry) AddConfig(cfg *model.Config) (*Pipeline, error) {

	cfg.ApplyOverrides(r.overrides)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("registry is closed")
	}

	p, err := New(r.nextID, cfg)

	if err != nil {
		return nil, err
	}

	r.nextID++
	r.pipelines = append(r.pipelines, p)

	// the first model registered under a name is returned by Get
	if _, ok := r.byName[p.Name()]; !ok {
		r.byName[p.Name()] = p
	}

	r.log.Info("registered model",
		zap.Int("id", p.ID),
		zap.String("model", p.Name()),
		zap.String("task", string(cfg.TaskType)),
		zap.String("runtime", cfg.Runtime.String()),
		zap.Bool("accelerated", cfg.Accelerated),
	)

	return p, nil
}

// Get returns the Pipeline registered under a model name
func (r *Registry) Get(name string) (*Pipeline, bool) {

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	return p, ok
}

// List returns the registered Pipelines in id order
func (r *Registry) List() []*Pipeline {

	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*Pipeline(nil), r.pipelines...)
}

// Len returns the number of registered Pipelines
func (r *Registry) Len() int {

	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.pipelines)
}

// Close releases the Session of every registered model
func (r *Registry) Close() error {

	var err error

	r.close.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.closed = true

		var errs []error

		for _, p := range r.pipelines {
			if cerr := p.Config.Close(); cerr != nil {
				errs = append(errs, fmt.Errorf("error closing model %s: %w", p.Name(), cerr))
			}
		}

		err = errors.Join(errs...)
	})

	return err
}
