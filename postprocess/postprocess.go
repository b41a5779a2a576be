// Package postprocess renders raw model outputs onto the source frame.  One
// Processor exists per model, selected by the model task type.
package postprocess

import (
	"fmt"

	"github.com/swdee/go-dlinfer"
	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/render"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
)

// ErrUnsupportedTask is returned by New for a task type without a Processor
var ErrUnsupportedTask = fmt.Errorf("%w: unsupported task type", dlinfer.ErrConfiguration)

// Processor draws the result of a single inference onto the frame it was
// computed from
type Processor interface {
	// Process annotates frame in place using the model outputs
	Process(frame *gocv.Mat, outputs []tensor.Tensor) error
}

// New returns the Processor for the task type of cfg.  The Processor reads
// cfg on every call and never modifies it
func New(cfg *model.Config) (Processor, error) {

	switch cfg.TaskType {
	case model.Classification:
		return &Classification{cfg: cfg}, nil
	case model.Detection:
		return &Detection{cfg: cfg}, nil
	case model.Segmentation:
		return &Segmentation{cfg: cfg, pool: render.NewBufferPool()}, nil
	case model.PoseEstimation:
		return &PoseEstimation{cfg: cfg}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedTask, cfg.TaskType)
}

// requireOutputs checks at least n outputs were returned
func requireOutputs(outputs []tensor.Tensor, n int) error {

	if len(outputs) < n {
		return fmt.Errorf("expected at least %d output tensors, got %d", n, len(outputs))
	}

	return nil
}
