package preprocess

import (
	"image"

	"gocv.io/x/gocv"
)

// Resizer scales an image so its smaller dimension matches a target size
// whilst maintaining image aspect, then centre crops it to the model input
// dimensions
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// target is the size the smaller source dimension is scaled to
	target int
	// cropWidth is the width of the cropped output
	cropWidth int
	// cropHeight is the height of the cropped output
	cropHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// crop offsets into the resized image
	xOff  int
	yOff  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer for source images of the given dimensions
func NewResizer(srcWidth, srcHeight, target, cropWidth, cropHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		target:     target,
		cropWidth:  cropWidth,
		cropHeight: cropHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors and crop offsets
func (r *Resizer) preCalc() {

	minDim := r.srcWidth

	if r.srcHeight < minDim {
		minDim = r.srcHeight
	}

	r.scale = float32(r.target) / float32(minDim)

	// scaled dimensions are rounded down to an even number
	r.resizeW = ((r.srcWidth * r.target / minDim) >> 1) << 1
	r.resizeH = ((r.srcHeight * r.target / minDim) >> 1) << 1

	// the crop can not exceed the resized image
	if r.cropWidth > r.resizeW {
		r.cropWidth = r.resizeW
	}

	if r.cropHeight > r.resizeH {
		r.cropHeight = r.resizeH
	}

	r.xOff = (r.resizeW - r.cropWidth) / 2
	r.yOff = (r.resizeH - r.cropHeight) / 2
}

// CropResize resizes src preserving aspect and copies the centre crop into
// dest
func (r *Resizer) CropResize(src gocv.Mat, dest *gocv.Mat) {

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationLinear)

	region := r.tempMat.Region(image.Rect(r.xOff, r.yOff,
		r.xOff+r.cropWidth, r.yOff+r.cropHeight))
	defer region.Close()

	region.CopyTo(dest)
}

// ScaleFactor returns the scale factor applied to the source image
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XOffset returns the x offset of the crop in the resized image
func (r *Resizer) XOffset() int {
	return r.xOff
}

// YOffset returns the y offset of the crop in the resized image
func (r *Resizer) YOffset() int {
	return r.yOff
}

// ResizedSize returns the width and height of the image before cropping
func (r *Resizer) ResizedSize() (int, int) {
	return r.resizeW, r.resizeH
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}
