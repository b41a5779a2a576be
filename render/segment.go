package render

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// buffer pool names used by SegmentMask
const (
	bufMask  = "mask"
	bufBlend = "blend"
)

// ClassMaskBytes synthesizes a three channel false color image from a
// per pixel class id map.  Channels 0, 1 and 2 are the class id multiplied
// by 10, 20 and 30 respectively, wrapping at 256
func ClassMaskBytes(classIDs []float32) []byte {
	out := make([]byte, len(classIDs)*3)
	classMaskInto(out, classIDs)
	return out
}

func classMaskInto(dst []byte, classIDs []float32) {
	for i, v := range classIDs {
		dst[i*3+0] = uint8(int(v * 10))
		dst[i*3+1] = uint8(int(v * 20))
		dst[i*3+2] = uint8(int(v * 30))
	}
}

// BlendBytes combines two equally sized pixel buffers as
// mask*(1-alpha) + frame*alpha, rounding to the nearest value
func BlendBytes(mask, frame []byte, alpha float32) []byte {
	out := make([]byte, len(frame))
	blendInto(out, mask, frame, alpha)
	return out
}

func blendInto(dst, mask, frame []byte, alpha float32) {
	for i := range frame {
		v := float64(mask[i])*float64(1-alpha) + float64(frame[i])*float64(alpha)
		dst[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
}

// SegmentMask renders a class id map of the given height and width over the
// whole image.  The false color mask is resized to the image with linear
// interpolation and blended with alpha as the weight of the original image.
// Scratch buffers are taken from pool, which may be nil
func SegmentMask(img *gocv.Mat, classIDs []float32, height, width int,
	alpha float32, pool *BufferPool) error {

	if img.Channels() != 3 {
		return fmt.Errorf("image must have 3 channels, got %d", img.Channels())
	}

	if len(classIDs) != height*width {
		return fmt.Errorf("mask of %d values does not match %dx%d",
			len(classIDs), height, width)
	}

	// the Mats below reference the pooled buffers so they are returned to
	// the pool only after the Mats are closed
	maskBuf := pool.Get(bufMask, height*width*3)
	defer pool.Put(bufMask, maskBuf)

	classMaskInto(maskBuf, classIDs)

	mask, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, maskBuf)

	if err != nil {
		return fmt.Errorf("error creating mask: %w", err)
	}

	defer mask.Close()

	// resize the mask to the original image for blending
	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(mask, &resized, image.Pt(img.Cols(), img.Rows()), 0, 0,
		gocv.InterpolationLinear)

	// it is too slow to manipulate pixel by pixel using GoCV due to slowness
	// over CGO.  So we copy the bytes from the source image and manipulate
	// the bytes directly before copying back to a Mat
	frame := img.ToBytes()

	blendBuf := pool.Get(bufBlend, len(frame))
	defer pool.Put(bufBlend, blendBuf)

	blendInto(blendBuf, resized.ToBytes(), frame, alpha)

	// copy back to the original mat
	tmpImg, err := gocv.NewMatFromBytes(img.Rows(), img.Cols(), gocv.MatTypeCV8UC3, blendBuf)

	if err != nil {
		return fmt.Errorf("error creating blended image: %w", err)
	}

	defer tmpImg.Close()
	tmpImg.CopyTo(img)

	return nil
}
