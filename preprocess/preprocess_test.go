package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-dlinfer/model"
	"github.com/swdee/go-dlinfer/tensor"
	"gocv.io/x/gocv"
)

// newTestImage returns a 2x2 BGR image where each pixel's channels are
// (10*p+1, 10*p+2, 10*p+3) for pixel p in row major order
func newTestImage(t *testing.T) gocv.Mat {

	data := []byte{
		1, 2, 3, 11, 12, 13,
		21, 22, 23, 31, 32, 33,
	}

	img, err := gocv.NewMatFromBytes(2, 2, gocv.MatTypeCV8UC3, data)
	require.NoError(t, err)

	return img
}

func TestTensorNHWC(t *testing.T) {

	img := newTestImage(t)
	defer img.Close()

	p := Params{
		Resize:   model.Size{Height: 2, Width: 2},
		Crop:     model.Size{Height: 2, Width: 2},
		Layout:   model.NHWC,
		DataType: tensor.Uint8,
	}

	out, err := p.Tensor(img)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 2, 2, 3}, out.Shape)
	// BGR swapped to RGB
	assert.Equal(t, []uint8{3, 2, 1, 13, 12, 11, 23, 22, 21, 33, 32, 31}, out.Uint8)
}

func TestTensorReverseChannels(t *testing.T) {

	img := newTestImage(t)
	defer img.Close()

	p := Params{
		Resize:          model.Size{Height: 2, Width: 2},
		Crop:            model.Size{Height: 2, Width: 2},
		ReverseChannels: true,
		Layout:          model.NHWC,
		DataType:        tensor.Uint8,
	}

	out, err := p.Tensor(img)
	require.NoError(t, err)

	assert.Equal(t, []uint8{1, 2, 3, 11, 12, 13, 21, 22, 23, 31, 32, 33}, out.Uint8)
}

func TestTensorNCHWFloat(t *testing.T) {

	img := newTestImage(t)
	defer img.Close()

	p := Params{
		Resize:   model.Size{Height: 2, Width: 2},
		Crop:     model.Size{Height: 2, Width: 2},
		Layout:   model.NCHW,
		Mean:     []float64{1, 2, 3},
		Scale:    []float64{0.5, 0.5, 0.5},
		DataType: tensor.Float32,
	}

	out, err := p.Tensor(img)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 3, 2, 2}, out.Shape)
	// planes are R, G, B after the channel swap
	want := []float32{
		1, 6, 11, 16, // (R - 1) * 0.5
		0, 5, 10, 15, // (G - 2) * 0.5
		-1, 4, 9, 14, // (B - 3) * 0.5
	}
	assert.InDeltaSlice(t, want, out.Float32, 1e-6)
}

func TestTensorCentreCrop(t *testing.T) {

	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	p := Params{
		Resize:   model.Size{Height: 256, Width: 256},
		Crop:     model.Size{Height: 224, Width: 224},
		Layout:   model.NCHW,
		DataType: tensor.Uint8,
	}

	out, err := p.Tensor(img)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{1, 3, 224, 224}, out.Shape)
	assert.NoError(t, out.Validate())
}

func TestTensorErrors(t *testing.T) {

	empty := gocv.NewMat()
	defer empty.Close()

	p := Params{
		Resize:   model.Size{Height: 2, Width: 2},
		Crop:     model.Size{Height: 2, Width: 2},
		Layout:   model.NHWC,
		DataType: tensor.Uint8,
	}

	_, err := p.Tensor(empty)
	assert.Error(t, err)

	img := newTestImage(t)
	defer img.Close()

	p.DataType = tensor.Int64
	_, err = p.Tensor(img)
	assert.Error(t, err)

	p.DataType = tensor.Float32
	p.Mean = []float64{1, 2}
	_, err = p.Tensor(img)
	assert.Error(t, err)
}
