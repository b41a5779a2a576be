package postprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/render"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
)

const (
	// poseBoxCols are the leading columns of a pose row, box x1,y1,x2,y2
	// followed by score and class
	poseBoxCols = 6
	// KeyPointThreshold is the confidence a keypoint must exceed to be drawn
	KeyPointThreshold = 0.5
)

// PoseEstimation overlays the bounding box and skeleton of each person
// scoring above the visualization threshold
type PoseEstimation struct {
	cfg *model.Config
}

// PoseResult is a single detected object with its skeleton keypoints in
// frame pixel coordinates
type PoseResult struct {
	Box       image.Rectangle
	Class     int
	Score     float32
	KeyPoints []render.KeyPoint
}

// Poses decodes the first output into the objects scoring strictly above
// threshold.  Each row holds x1,y1,x2,y2,score,class followed by an x,y,conf
// triple per keypoint, with coordinates relative to the model input size
func Poses(outputs []tensor.Tensor, size model.Size, frameWidth, frameHeight int,
	threshold float32) ([]PoseResult, error) {

	if err := requireOutputs(outputs, 1); err != nil {
		return nil, err
	}

	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid input size %s", size)
	}

	out := outputs[0].Squeeze()

	if len(out.Shape) == 0 {
		return nil, fmt.Errorf("expected pose rows, got shape %v", []int(outputs[0].Shape))
	}

	rows, cols := out.Rows(), out.Cols()

	if cols < poseBoxCols || (cols-poseBoxCols)%3 != 0 {
		return nil, fmt.Errorf("pose row of %d values is not 6 plus a multiple of 3", cols)
	}

	sx := float32(frameWidth) / float32(size.Width)
	sy := float32(frameHeight) / float32(size.Height)
	nkpts := (cols - poseBoxCols) / 3

	var res []PoseResult

	for r := 0; r < rows; r++ {
		row := out.Float32[r*cols : (r+1)*cols]

		if row[4] <= threshold {
			continue
		}

		p := PoseResult{
			Box: image.Rect(int(row[0]*sx), int(row[1]*sy),
				int(row[2]*sx), int(row[3]*sy)),
			Score:     row[4],
			Class:     int(row[5]),
			KeyPoints: make([]render.KeyPoint, nkpts),
		}

		for k := 0; k < nkpts; k++ {
			kp := row[poseBoxCols+3*k : poseBoxCols+3*k+3]

			p.KeyPoints[k] = render.KeyPoint{
				X:    int(kp[0] * sx),
				Y:    int(kp[1] * sy),
				Conf: kp[2],
			}
		}

		res = append(res, p)
	}

	return res, nil
}

// Process implements Processor
func (p *PoseEstimation) Process(frame *gocv.Mat, outputs []tensor.Tensor) error {

	res, err := Poses(outputs, p.cfg.Resize, frame.Cols(), frame.Rows(),
		float32(p.cfg.VizThreshold))

	if err != nil {
		return err
	}

	for _, r := range res {
		render.Box(frame, r.Box, []string{
			fmt.Sprintf("id:%d", r.Class),
			fmt.Sprintf("score:%2.1f", r.Score),
		}, render.PoseClassColor(r.Class), 2)

		render.PoseKeyPoints(frame, r.KeyPoints, KeyPointThreshold, 2)
	}

	return nil
}
