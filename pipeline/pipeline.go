// Package pipeline runs the preprocess, inference and postprocess stages of
// one or more models.  Each model is owned by a Pipeline held in a Registry,
// and a Driver runs every registered Pipeline concurrently over a set of
// frames.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/postprocess"
	"github.com/swdee/go-dlinfer/preprocess"
	"gocv.io/x/gocv"
)

// Pipeline chains the stages of a single model.  Stages run strictly in
// sequence, a Pipeline may be shared between goroutines as the model Session
// serializes inference
type Pipeline struct {
	// ID is the sequential id assigned by the Registry
	ID int
	// Config is the model configuration, read only
	Config *model.Config

	pre  preprocess.Params
	post postprocess.Processor
}

// New creates a Pipeline for a loaded model configuration
func New(id int, cfg *model.Config) (*Pipeline, error) {

	if cfg.Session == nil {
		return nil, fmt.Errorf("model %s has no session", cfg.ModelName)
	}

	post, err := postprocess.New(cfg)

	if err != nil {
		return nil, err
	}

	return &Pipeline{
		ID:     id,
		Config: cfg,
		pre:    preprocess.FromConfig(cfg),
		post:   post,
	}, nil
}

// Name returns the model name
func (p *Pipeline) Name() string {
	return p.Config.ModelName
}

// Process runs the model over a BGR frame and returns a new frame annotated
// with the result.  The source frame is not modified, the caller must Close
// the returned Mat
func (p *Pipeline) Process(frame gocv.Mat) (gocv.Mat, error) {

	input, err := p.pre.Tensor(frame)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("preprocess failed: %w", err)
	}

	outputs, err := p.Config.Session.Infer(input)

	if err != nil {
		return gocv.Mat{}, err
	}

	out := frame.Clone()

	if err := p.post.Process(&out, outputs); err != nil {
		out.Close()
		return gocv.Mat{}, fmt.Errorf("postprocess failed: %w", err)
	}

	return out, nil
}

// OutputName returns the file name an annotated frame is saved under,
// <task>_output<index>_<fragment>.jpg where fragment is the bundle path after
// its last model_zoo element with path separators removed
func OutputName(task model.TaskType, index int, bundlePath string) string {

	fragment := bundlePath

	if i := strings.LastIndex(bundlePath, "model_zoo"); i >= 0 {
		fragment = bundlePath[i+len("model_zoo"):]
	}

	fragment = strings.ReplaceAll(fragment, "/", "")

	return fmt.Sprintf("%s_output%d_%s.jpg", task, index, fragment)
}
