package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/swdee/go-dlinfer/model"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FrameError reports the failure of a single frame on a single model
type FrameError struct {
	// Model is the model name
	Model string
	// Index is the position of the frame in the run
	Index int
	// Err is the cause
	Err error
}

// Error implements error
func (e *FrameError) Error() string {
	return fmt.Sprintf("model %s frame %d: %v", e.Model, e.Index, e.Err)
}

// Unwrap returns the cause
func (e *FrameError) Unwrap() error {
	return e.Err
}

// Result is the outcome of a run for one model
type Result struct {
	// ID is the Pipeline id
	ID int
	// Model is the model name
	Model string
	// Task is the model task type
	Task model.TaskType
	// Outputs are the paths of the annotated frames written
	Outputs []string
	// Errors are the frames that failed
	Errors []*FrameError
	// Duration is the time the model took to process all frames
	Duration time.Duration
}

// FrameLoader reads a frame from a path
type FrameLoader func(path string) (gocv.Mat, error)

// FrameWriter saves an annotated frame to a path
type FrameWriter func(path string, frame gocv.Mat) error

// Driver runs every Pipeline of a Registry concurrently, one goroutine per
// model.  Models never wait on each other, a model only blocks on its own
// Session
type Driver struct {
	reg       *Registry
	outputDir string
	load      FrameLoader
	write     FrameWriter
	log       *zap.Logger
	runID     uuid.UUID
}

// DriverOption configures a Driver
type DriverOption func(*Driver)

// WithOutputDir sets the directory annotated frames are written to
func WithOutputDir(dir string) DriverOption {
	return func(d *Driver) {
		d.outputDir = dir
	}
}

// WithFrameLoader replaces LoadFrame
func WithFrameLoader(f FrameLoader) DriverOption {
	return func(d *Driver) {
		d.load = f
	}
}

// WithFrameWriter replaces writing frames with gocv.IMWrite
func WithFrameWriter(f FrameWriter) DriverOption {
	return func(d *Driver) {
		d.write = f
	}
}

// WithDriverLogger sets the logger
func WithDriverLogger(log *zap.Logger) DriverOption {
	return func(d *Driver) {
		d.log = log
	}
}

// NewDriver creates a Driver over the Pipelines of reg
func NewDriver(reg *Registry, opts ...DriverOption) (*Driver, error) {

	id, err := uuid.NewV4()

	if err != nil {
		return nil, fmt.Errorf("error generating run id: %w", err)
	}

	d := &Driver{
		reg:       reg,
		outputDir: ".",
		load:      LoadFrame,
		write:     writeFrame,
		log:       zap.NewNop(),
		runID:     id,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.log = d.log.With(zap.String("run_id", id.String()))

	return d, nil
}

// RunID returns the id attached to every log line of the Driver
func (d *Driver) RunID() uuid.UUID {
	return d.runID
}

// Run processes every frame with every registered model and returns one
// Result per model in id order.  A failed frame is recorded in the Result of
// its model and does not affect other frames or models.  Cancelling ctx
// stops each model before its next frame, an inference already started runs
// to completion
func (d *Driver) Run(ctx context.Context, frames []string) ([]Result, error) {

	pipelines := d.reg.List()
	results := make([]Result, len(pipelines))

	var wg sync.WaitGroup

	for i, p := range pipelines {
		wg.Add(1)

		go func(i int, p *Pipeline) {
			defer wg.Done()
			results[i] = d.runModel(ctx, p, frames)
		}(i, p)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

// runModel processes the frames sequentially on a single Pipeline
func (d *Driver) runModel(ctx context.Context, p *Pipeline, frames []string) Result {

	res := Result{
		ID:    p.ID,
		Model: p.Name(),
		Task:  p.Config.TaskType,
	}

	log := d.log.With(zap.Int("id", p.ID), zap.String("model", p.Name()))
	start := time.Now()

	for idx, path := range frames {
		if ctx.Err() != nil {
			break
		}

		out, err := d.processFrame(p, idx, path)

		if err != nil {
			ferr := &FrameError{Model: p.Name(), Index: idx, Err: err}
			res.Errors = append(res.Errors, ferr)
			log.Error("frame failed", zap.Int("frame", idx), zap.Error(err))
			continue
		}

		res.Outputs = append(res.Outputs, out)
		log.Info("saved annotated frame", zap.Int("frame", idx), zap.String("output", out))
	}

	res.Duration = time.Since(start)

	return res
}

// processFrame runs one frame through a Pipeline and writes the annotated
// result, returning the output path
func (d *Driver) processFrame(p *Pipeline, idx int, path string) (string, error) {

	frame, err := d.load(path)

	if err != nil {
		return "", err
	}

	defer frame.Close()

	out, err := p.Process(frame)

	if err != nil {
		return "", err
	}

	defer out.Close()

	dir := p.Config.Dir

	if dir == "" {
		dir = p.Config.Path
	}

	name := filepath.Join(d.outputDir, OutputName(p.Config.TaskType, idx, dir))

	if err := d.write(name, out); err != nil {
		return "", err
	}

	return name, nil
}

// writeFrame saves a frame with its format chosen by the file extension
func writeFrame(path string, frame gocv.Mat) error {

	if !gocv.IMWrite(path, frame) {
		return fmt.Errorf("error writing image %s", path)
	}

	return nil
}
