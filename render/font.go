package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
}

// DefaultFont returns default font settings used for box labels
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     Black,
		Thickness: 1,
		LineType:  gocv.Line8,
	}
}

// FrameFont returns a font scaled to the frame width, a 1280 pixel wide
// frame renders at scale 1.0
func FrameFont(frameWidth int, clr color.RGBA) Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     float64(frameWidth) / 1280,
		Color:     clr,
		Thickness: 2,
		LineType:  gocv.Line8,
	}
}

// RowHeight returns the text line spacing used for a frame of the given width
func RowHeight(frameWidth int) int {
	return 40 * frameWidth / 1280
}

// Text draws text with its baseline starting at pos
func Text(img *gocv.Mat, text string, x, y int, font Font) {
	gocv.PutTextWithParams(img, text, pt(x, y), font.Face, font.Scale,
		font.Color, font.Thickness, font.LineType, false)
}

// TextLines draws a header followed by one line of text per entry, starting
// on the second row of the frame
func TextLines(img *gocv.Mat, header string, lines []string,
	headerFont, lineFont Font, rowHeight int) {

	Text(img, header, 5, 2*rowHeight, headerFont)

	for i, line := range lines {
		Text(img, line, 5, (3+i)*rowHeight, lineFont)
	}
}
