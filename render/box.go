package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

func pt(x, y int) image.Point {
	return image.Pt(x, y)
}

// LabelledBox draws a bounding box with the label text placed on a filled
// background at the box centre
func LabelledBox(img *gocv.Mat, rect image.Rectangle, label string,
	clr color.RGBA, font Font, lineThickness int) {

	gocv.Rectangle(img, rect, clr, lineThickness)

	cx := (rect.Min.X + rect.Max.X) / 2
	cy := (rect.Min.Y + rect.Max.Y) / 2

	// label background
	gocv.Rectangle(img, image.Rect(cx-5, cy-15, cx+160, cy+5), clr, -1)

	Text(img, label, cx, cy, font)
}

// Box draws a bounding box with text lines inside its top left corner
func Box(img *gocv.Mat, rect image.Rectangle, lines []string,
	clr color.RGBA, lineThickness int) {

	gocv.Rectangle(img, rect, clr, lineThickness)

	font := Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     clr,
		Thickness: 2,
		LineType:  gocv.Line8,
	}

	for i, line := range lines {
		Text(img, line, rect.Min.X+5, rect.Min.Y+15*(i+1), font)
	}
}

// ScaleRect converts a box of coordinates normalized to [0,1] into pixel
// coordinates of a frame
func ScaleRect(x1, y1, x2, y2 float64, frameWidth, frameHeight int) image.Rectangle {
	return image.Rect(
		int(x1*float64(frameWidth)),
		int(y1*float64(frameHeight)),
		int(x2*float64(frameWidth)),
		int(y2*float64(frameHeight)),
	)
}
