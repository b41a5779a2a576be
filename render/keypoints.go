package render

import (
	"gocv.io/x/gocv"
)

/* skeleton keypoints
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/

var (
	// skeleton defines the pose skeleton points to draw lines between.  The numbers
	// are paired and one based, so (16,14) means draw line from left ankle to
	// left knee.
	skeleton = [38]int{16, 14, 14, 12, 17, 15, 15, 13, 12, 13, 6, 12, 7, 13, 6, 7, 6, 8,
		7, 9, 8, 10, 9, 11, 2, 3, 1, 2, 1, 3, 2, 4, 3, 5, 4, 6, 5, 7}
)

const (
	// KeyPointsTotal is the number of keypoints in a skeleton
	KeyPointsTotal = 17
	// LimbsTotal is the number of lines joining skeleton keypoints
	LimbsTotal = len(skeleton) / 2
	// KeyPointRadius is the radius of the circle drawn at each keypoint
	KeyPointRadius = 8
)

// KeyPoint is a skeleton joint location in frame pixels with its confidence
type KeyPoint struct {
	X    int
	Y    int
	Conf float32
}

// VisibleKeyPoints returns the indices of keypoints whose confidence is
// strictly greater than threshold
func VisibleKeyPoints(kpts []KeyPoint, threshold float32) []int {

	visible := make([]int, 0, len(kpts))

	for i, kp := range kpts {
		if kp.Conf > threshold {
			visible = append(visible, i)
		}
	}

	return visible
}

// VisibleLimbs returns the indices into the skeleton table of limbs whose
// two keypoints both have a confidence strictly greater than threshold
func VisibleLimbs(kpts []KeyPoint, threshold float32) []int {

	visible := make([]int, 0, LimbsTotal)

	for j := 0; j < LimbsTotal; j++ {
		a := skeleton[2*j] - 1
		b := skeleton[2*j+1] - 1

		if a >= len(kpts) || b >= len(kpts) {
			continue
		}

		if kpts[a].Conf > threshold && kpts[b].Conf > threshold {
			visible = append(visible, j)
		}
	}

	return visible
}

// PoseKeyPoints renders the keypoints and skeleton lines of a single object,
// skipping any whose confidence does not exceed threshold
func PoseKeyPoints(img *gocv.Mat, kpts []KeyPoint, threshold float32,
	lineThickness int) {

	// draw circles at skeleton joints
	for _, i := range VisibleKeyPoints(kpts, threshold) {
		gocv.Circle(img, pt(kpts[i].X, kpts[i].Y), KeyPointRadius,
			keyPointColors[i%len(keyPointColors)], -1)
	}

	// draw skeleton lines
	for _, j := range VisibleLimbs(kpts, threshold) {
		a := kpts[skeleton[2*j]-1]
		b := kpts[skeleton[2*j+1]-1]

		gocv.Line(img, pt(a.X, a.Y), pt(b.X, b.Y), limbColors[j], lineThickness)
	}
}
