// Package preprocess converts a decoded BGR frame into the input tensor
// layout, channel order and element type a model expects.
package preprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
)

// Params are the model input geometry and format
type Params struct {
	Resize          model.Size
	Crop            model.Size
	ReverseChannels bool
	Layout          model.Layout
	// Mean and Scale are applied per channel to float inputs when set
	Mean     []float64
	Scale    []float64
	DataType tensor.DataType
}

// FromConfig returns the preprocessing Params of a model
func FromConfig(cfg *model.Config) Params {
	return Params{
		Resize:          cfg.Resize,
		Crop:            cfg.Crop,
		ReverseChannels: cfg.ReverseChannels,
		Layout:          cfg.DataLayout,
		Mean:            cfg.Mean,
		Scale:           cfg.Scale,
		DataType:        cfg.DataType,
	}
}

// Tensor converts a BGR frame into a batch of one input tensor.  When the
// crop and resize geometry differ the smaller image dimension is scaled to
// the resize height and the result centre cropped, otherwise the frame is
// resized directly to the crop size
func (p Params) Tensor(img gocv.Mat) (tensor.Tensor, error) {

	if img.Empty() {
		return tensor.Tensor{}, fmt.Errorf("image is empty")
	}

	bgr, err := toBGR(img)

	if err != nil {
		return tensor.Tensor{}, err
	}

	defer bgr.Close()

	cropped := gocv.NewMat()
	defer cropped.Close()

	if p.Crop != p.Resize {
		r := NewResizer(bgr.Cols(), bgr.Rows(), p.Resize.Height,
			p.Crop.Width, p.Crop.Height)
		r.CropResize(bgr, &cropped)
		r.Close()
	} else {
		gocv.Resize(bgr, &cropped, image.Pt(p.Crop.Width, p.Crop.Height),
			0, 0, gocv.InterpolationLinear)
	}

	if cropped.Cols() != p.Crop.Width || cropped.Rows() != p.Crop.Height {
		return tensor.Tensor{}, fmt.Errorf("image of %dx%d is too small for crop %s",
			img.Rows(), img.Cols(), p.Crop)
	}

	// models expect RGB unless they consume BGR directly
	if !p.ReverseChannels {
		gocv.CvtColor(cropped, &cropped, gocv.ColorBGRToRGB)
	}

	return p.pack(cropped.ToBytes(), p.Crop.Height, p.Crop.Width)
}

// toBGR returns a three channel copy of img
func toBGR(img gocv.Mat) (gocv.Mat, error) {

	out := gocv.NewMat()

	switch img.Channels() {
	case 3:
		img.CopyTo(&out)
	case 4:
		gocv.CvtColor(img, &out, gocv.ColorBGRAToBGR)
	case 1:
		gocv.CvtColor(img, &out, gocv.ColorGrayToBGR)
	default:
		out.Close()
		return gocv.Mat{}, fmt.Errorf("unsupported image with %d channels", img.Channels())
	}

	return out, nil
}

// pack converts interleaved HWC pixel data into a tensor of the configured
// layout and element type
func (p Params) pack(hwc []byte, h, w int) (tensor.Tensor, error) {

	const c = 3

	if len(hwc) != h*w*c {
		return tensor.Tensor{}, fmt.Errorf("expected %d bytes of pixel data, got %d",
			h*w*c, len(hwc))
	}

	if p.Mean != nil && len(p.Mean) != c || p.Scale != nil && len(p.Scale) != c {
		return tensor.Tensor{}, fmt.Errorf("mean and scale require %d values", c)
	}

	var shape tensor.Shape

	// index returns the destination offset of pixel (y, x) channel ch
	var index func(y, x, ch int) int

	switch p.Layout {
	case model.NCHW:
		shape = tensor.Shape{1, c, h, w}
		index = func(y, x, ch int) int { return ch*h*w + y*w + x }
	case model.NHWC:
		shape = tensor.Shape{1, h, w, c}
		index = func(y, x, ch int) int { return (y*w+x)*c + ch }
	default:
		return tensor.Tensor{}, fmt.Errorf("unsupported data layout %q", p.Layout)
	}

	t := tensor.Tensor{Shape: shape, Type: p.DataType}

	switch p.DataType {
	case tensor.Uint8:
		t.Uint8 = make([]uint8, len(hwc))
	case tensor.Int8:
		t.Int8 = make([]int8, len(hwc))
	case tensor.Float32:
		t.Float32 = make([]float32, len(hwc))
	default:
		return tensor.Tensor{}, fmt.Errorf("unsupported input data type %s", p.DataType)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				v := hwc[(y*w+x)*c+ch]
				dst := index(y, x, ch)

				switch p.DataType {
				case tensor.Uint8:
					t.Uint8[dst] = v
				case tensor.Int8:
					// shift the unsigned pixel range to signed
					t.Int8[dst] = int8(int(v) - 128)
				case tensor.Float32:
					t.Float32[dst] = p.normalize(float64(v), ch)
				}
			}
		}
	}

	return t, nil
}

// normalize applies the channel mean and scale when configured
func (p Params) normalize(v float64, ch int) float32 {

	if p.Mean != nil {
		v -= p.Mean[ch]
	}

	if p.Scale != nil {
		v *= p.Scale[ch]
	}

	return float32(v)
}
