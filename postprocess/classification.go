package postprocess

import (
	"fmt"
	"sort"

	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/render"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
)

// Classification overlays the names of the top N scoring classes
type Classification struct {
	cfg *model.Config
}

// TopN returns the indices of the n largest scores in descending score
// order.  Equal scores keep index order and n is clamped to len(scores)
func TopN(scores []float32, n int) []int {

	if n > len(scores) {
		n = len(scores)
	}

	if n < 0 {
		n = 0
	}

	idx := make([]int, len(scores))

	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	return idx[:n]
}

// Labels returns the display names of the top N classes of a result vector
func (c *Classification) Labels(outputs []tensor.Tensor) ([]string, error) {

	if err := requireOutputs(outputs, 1); err != nil {
		return nil, err
	}

	scores := outputs[0].Squeeze()

	if len(scores.Shape) > 1 {
		return nil, fmt.Errorf("expected a vector of class scores, got shape %v",
			[]int(outputs[0].Shape))
	}

	top := TopN(scores.Float32, c.cfg.TopN)
	labels := make([]string, len(top))

	for i, idx := range top {
		labels[i] = c.cfg.ClassName(c.cfg.LabelOffset.Apply(idx))
	}

	return labels, nil
}

// Process implements Processor
func (c *Classification) Process(frame *gocv.Mat, outputs []tensor.Tensor) error {

	labels, err := c.Labels(outputs)

	if err != nil {
		return err
	}

	width := frame.Cols()

	render.TextLines(frame,
		fmt.Sprintf("Top %d detected classes:", c.cfg.TopN), labels,
		render.FrameFont(width, render.Green),
		render.FrameFont(width, render.Cyan),
		render.RowHeight(width),
	)

	return nil
}
