// Package model parses a model bundle directory into a Config and creates the
// one dlinfer.Session the model runs on.
package model

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/tensor"
	"go.uber.org/zap"
)

const (
	// DefaultAlpha is the segmentation mask blend factor
	DefaultAlpha = 0.4
	// DefaultVizThreshold is the detection and pose score cutoff
	DefaultVizThreshold = 0.5
	// DefaultTopN is the number of classification results shown
	DefaultTopN = 5
)

// Config is the normalized configuration of a model bundle.  Fields are set
// once by New and must be treated as read only, apart from the visualization
// fields which may be changed with ApplyOverrides before the model is used.
type Config struct {
	// Path is the absolute bundle directory
	Path string
	// Dir is the bundle directory as it was given, output files are named
	// after it
	Dir string
	// ModelName is the last element of Path
	ModelName string

	Resize          Size
	Crop            Size
	ReverseChannels bool
	DataLayout      Layout
	// Mean and Scale are nil when the runtime normalizes the input itself
	Mean  []float64
	Scale []float64

	TaskType             TaskType
	Formatter            *Formatter
	IgnoreIndex          *int
	NormalizedDetections bool
	ShuffleIndices       []int
	LabelOffset          LabelOffset
	// ClassNames is nil when the bundle has no dataset file
	ClassNames map[int]string

	Alpha        float64
	VizThreshold float64
	TopN         int

	Runtime       dlinfer.Runtime
	ModelPath     string
	ArtifactsPath string
	Accelerated   bool
	DeviceID      int
	// DataType is the element type of the session input
	DataType tensor.DataType

	Session *dlinfer.Session
}

// SessionFactory creates the Session for a parsed Config
type SessionFactory func(rt dlinfer.Runtime, artifacts, modelPath string,
	accelerated bool, opts ...dlinfer.SessionOption) (*dlinfer.Session, error)

type options struct {
	factory     SessionFactory
	sessionOpts []dlinfer.SessionOption
	log         *zap.Logger
}

// Option configures New
type Option func(*options)

// WithSessionFactory replaces dlinfer.NewSession as the session constructor
func WithSessionFactory(f SessionFactory) Option {
	return func(o *options) {
		o.factory = f
	}
}

// WithSessionOptions passes additional options to the session constructor
func WithSessionOptions(opts ...dlinfer.SessionOption) Option {
	return func(o *options) {
		o.sessionOpts = append(o.sessionOpts, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New parses the param.yaml descriptor of the bundle directory and creates
// the model Session.  All failures wrap dlinfer.ErrConfiguration apart from
// dlinfer.ErrAccelerationUnsupported
func New(dir string, accelerated bool, opts ...Option) (*Config, error) {

	o := options{
		factory: dlinfer.NewSession,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.log == nil {
		o.log = zap.NewNop()
	}

	cfg, err := parse(dir, o.log)

	if err != nil {
		return nil, err
	}

	cfg.Accelerated = accelerated

	sessOpts := append([]dlinfer.SessionOption{
		dlinfer.WithLogger(o.log),
		dlinfer.WithDLRDeviceID(cfg.DeviceID),
	}, o.sessionOpts...)

	artifacts := cfg.ArtifactsPath

	if !accelerated {
		artifacts = ""
	}

	sess, err := o.factory(cfg.Runtime, artifacts, cfg.ModelPath, accelerated, sessOpts...)

	if err != nil {
		if errors.Is(err, dlinfer.ErrAccelerationUnsupported) ||
			errors.Is(err, dlinfer.ErrConfiguration) {
			return nil, fmt.Errorf("model %s: %w", cfg.ModelName, err)
		}

		return nil, fmt.Errorf("%w: model %s: %w", dlinfer.ErrConfiguration, cfg.ModelName, err)
	}

	cfg.Session = sess
	cfg.DataType = sess.InputType()

	o.log.Info("loaded model",
		zap.String("model", cfg.ModelName),
		zap.String("task", string(cfg.TaskType)),
		zap.String("runtime", cfg.Runtime.String()),
		zap.Bool("accelerated", accelerated),
		zap.String("dataType", cfg.DataType.String()),
	)

	return cfg, nil
}

// parse applies the descriptor derivation rules without creating a session
func parse(dir string, log *zap.Logger) (*Config, error) {

	absDir, err := filepath.Abs(dir)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", dlinfer.ErrConfiguration, err)
	}

	d, err := readDescriptor(filepath.Join(absDir, ParamFile))

	if err != nil {
		return nil, fmt.Errorf("%w: %w", dlinfer.ErrConfiguration, err)
	}

	cfg := &Config{
		Path:                 absDir,
		Dir:                  dir,
		ModelName:            filepath.Base(absDir),
		ReverseChannels:      d.Preprocess.ReverseChannels,
		NormalizedDetections: d.Postprocess.NormalizedDetections,
		ShuffleIndices:       d.Postprocess.ShuffleIndices,
		IgnoreIndex:          d.Postprocess.IgnoreIndex,
		DeviceID:             d.Session.DeviceID,
		Alpha:                DefaultAlpha,
		VizThreshold:         DefaultVizThreshold,
		TopN:                 DefaultTopN,
		LabelOffset:          LabelOffset{},
	}

	if cfg.TaskType, err = ParseTaskType(d.TaskType); err != nil {
		return nil, err
	}

	if d.Session.SessionName == "" {
		return nil, missingKey("session.session_name")
	}

	if cfg.Runtime, err = dlinfer.ParseRuntime(d.Session.SessionName); err != nil {
		return nil, err
	}

	// geometry
	if d.Preprocess.Resize == nil {
		return nil, missingKey("preprocess.resize")
	}

	if d.Preprocess.Crop == nil {
		return nil, missingKey("preprocess.crop")
	}

	cfg.Resize = Size(*d.Preprocess.Resize)
	cfg.Crop = Size(*d.Preprocess.Crop)

	if cfg.Resize.Height <= 0 || cfg.Resize.Width <= 0 ||
		cfg.Crop.Height <= 0 || cfg.Crop.Width <= 0 {
		return nil, fmt.Errorf("%w: invalid geometry resize=%s crop=%s",
			dlinfer.ErrConfiguration, cfg.Resize, cfg.Crop)
	}

	if d.Preprocess.DataLayout == "" {
		return nil, missingKey("preprocess.data_layout")
	}

	if cfg.DataLayout, err = ParseLayout(d.Preprocess.DataLayout); err != nil {
		return nil, err
	}

	// normalization
	if !d.Session.InputOptimization {
		cfg.Mean = d.Session.InputMean
		cfg.Scale = d.Session.InputScale

		if cfg.Mean != nil && cfg.Scale != nil && len(cfg.Mean) != len(cfg.Scale) {
			return nil, fmt.Errorf("%w: input_mean has %d values, input_scale %d",
				dlinfer.ErrConfiguration, len(cfg.Mean), len(cfg.Scale))
		}
	}

	// model and artifacts paths
	if len(d.Session.ModelPath) == 0 {
		return nil, missingKey("session.model_path")
	}

	cfg.ModelPath = resolve(absDir, d.Session.ModelPath[0])

	if d.Session.ArtifactsFolder != "" {
		cfg.ArtifactsPath = resolve(absDir, d.Session.ArtifactsFolder)
	} else {
		cfg.ArtifactsPath = filepath.Join(absDir, "artifacts")
	}

	// post processing
	if f := d.Postprocess.Formatter; f != nil {
		if len(f.SrcIndices) != len(f.DstIndices) {
			return nil, fmt.Errorf("%w: formatter has %d src_indices and %d dst_indices",
				dlinfer.ErrConfiguration, len(f.SrcIndices), len(f.DstIndices))
		}

		cfg.Formatter = &Formatter{SrcIndices: f.SrcIndices, DstIndices: f.DstIndices}
	}

	if d.Metric.LabelOffsetPred != nil {
		cfg.LabelOffset = LabelOffset(*d.Metric.LabelOffsetPred)
	}

	if d.InputDataset.Name != "" {
		path := filepath.Join(absDir, DatasetFile)

		cfg.ClassNames, err = LoadClassNames(path)

		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("dataset file does not exist",
				zap.String("model", cfg.ModelName),
				zap.String("dataset", d.InputDataset.Name),
				zap.String("path", path),
			)

		case err != nil:
			return nil, fmt.Errorf("%w: %w", dlinfer.ErrConfiguration, err)
		}
	}

	return cfg, nil
}

// resolve returns path relative to dir unless it is absolute
func resolve(dir, path string) string {

	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}

func missingKey(key string) error {
	return fmt.Errorf("%w: missing required key %s", dlinfer.ErrConfiguration, key)
}

// ApplyOverrides replaces the visualization defaults.  It must be called
// before the Config is shared with concurrent workers
func (c *Config) ApplyOverrides(o Overrides) {

	if o.Alpha != nil {
		c.Alpha = *o.Alpha
	}

	if o.VizThreshold != nil {
		c.VizThreshold = *o.VizThreshold
	}

	if o.TopN != nil {
		c.TopN = *o.TopN
	}
}

// ClassName returns the display name of a dataset class id, or a generated
// name when the id is unknown
func (c *Config) ClassName(id int) string {

	if name, ok := c.ClassNames[id]; ok {
		return name
	}

	return fmt.Sprintf("class %d", id)
}

// Close releases the model Session
func (c *Config) Close() error {

	if c.Session == nil {
		return nil
	}

	return c.Session.Close()
}
