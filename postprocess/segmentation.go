package postprocess

import (
	"fmt"

	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/render"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
)

// Segmentation blends a per pixel class colour mask over the frame
type Segmentation struct {
	cfg *model.Config
	// pool reuses the mask and blend buffers between frames
	pool *render.BufferPool
}

// ClassMap returns the 2-D class id map held in the first output.  When the
// squeezed output still has a leading dimension its first plane is used
func ClassMap(outputs []tensor.Tensor) (tensor.Tensor, error) {

	if err := requireOutputs(outputs, 1); err != nil {
		return tensor.Tensor{}, err
	}

	m := outputs[0].Squeeze()

	if len(m.Shape) >= 3 {
		m = m.Plane()
	}

	if len(m.Shape) != 2 {
		return tensor.Tensor{}, fmt.Errorf("expected a 2-D class map, got shape %v",
			[]int(outputs[0].Shape))
	}

	return m, nil
}

// Process implements Processor
func (s *Segmentation) Process(frame *gocv.Mat, outputs []tensor.Tensor) error {

	m, err := ClassMap(outputs)

	if err != nil {
		return err
	}

	return render.SegmentMask(frame, m.Float32[:m.Shape.NumElements()],
		m.Shape[0], m.Shape[1], float32(s.cfg.Alpha), s.pool)
}
