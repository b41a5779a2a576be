package model

import (
	"fmt"
	"strings"

	"github.com/swdee/go-dlinfer"
)

// Size is an image geometry in (height, width) order
type Size struct {
	Height int
	Width  int
}

// String returns the size formatted as HxW
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Height, s.Width)
}

// Layout is the memory layout of the model input tensor
type Layout string

const (
	// NHWC is channel last
	NHWC Layout = "NHWC"
	// NCHW is channel first
	NCHW Layout = "NCHW"
)

// ParseLayout converts a data_layout value into a Layout
func ParseLayout(s string) (Layout, error) {

	switch l := Layout(strings.ToUpper(strings.TrimSpace(s))); l {
	case NHWC, NCHW:
		return l, nil
	}

	return "", fmt.Errorf("%w: unsupported data layout %q", dlinfer.ErrConfiguration, s)
}

// TaskType selects the post processing applied to the model outputs
type TaskType string

const (
	Classification TaskType = "classification"
	Detection      TaskType = "detection"
	Segmentation   TaskType = "segmentation"
	PoseEstimation TaskType = "human_pose_estimation"
)

// ParseTaskType converts a task_type value into a TaskType
func ParseTaskType(s string) (TaskType, error) {

	switch t := TaskType(strings.TrimSpace(s)); t {
	case Classification, Detection, Segmentation, PoseEstimation:
		return t, nil
	}

	return "", fmt.Errorf("%w: unsupported task type %q", dlinfer.ErrConfiguration, s)
}

// Formatter remaps detection output columns, column DstIndices[i] receives
// the value at column SrcIndices[i] of the unformatted row
type Formatter struct {
	SrcIndices []int
	DstIndices []int
}

// LabelOffset maps a predicted class index to a dataset class id.  A scalar
// offset from the descriptor is stored under key 0 and added to indices not
// present in the map
type LabelOffset map[int]int

// Apply returns the dataset class id for the predicted index
func (l LabelOffset) Apply(idx int) int {

	if id, ok := l[idx]; ok {
		return id
	}

	return l[0] + idx
}

// Overrides replaces visualization defaults, nil fields are left unchanged
type Overrides struct {
	Alpha        *float64
	VizThreshold *float64
	TopN         *int
}
