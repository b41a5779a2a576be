package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gocv.io/x/gocv"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// LoadFrame reads an image file into a BGR Mat
func LoadFrame(path string) (gocv.Mat, error) {

	b, err := os.ReadFile(path)

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error reading image: %w", err)
	}

	img, err := DecodeFrame(b)

	if err != nil {
		return img, fmt.Errorf("error decoding image %s: %w", path, err)
	}

	return img, nil
}

// DecodeFrame decodes encoded image bytes into a BGR Mat.  The format is
// detected from the content, JPEG and PNG are decoded by OpenCV while TIFF,
// BMP and WebP are decoded in Go
func DecodeFrame(b []byte) (gocv.Mat, error) {

	mimeType := strings.Split(mimetype.Detect(b).String(), ";")[0]

	var decode func([]byte) (image.Image, error)

	switch mimeType {
	case "image/jpeg", "image/png":
		img, err := gocv.IMDecode(b, gocv.IMReadColor)

		if err != nil {
			return gocv.Mat{}, err
		}

		if img.Empty() {
			img.Close()
			return gocv.Mat{}, fmt.Errorf("%s image decoded empty", mimeType)
		}

		return img, nil

	case "image/tiff":
		decode = func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) }
	case "image/bmp":
		decode = func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) }
	case "image/webp":
		decode = func(b []byte) (image.Image, error) { return webp.Decode(bytes.NewReader(b)) }
	default:
		return gocv.Mat{}, fmt.Errorf("unsupported image type %s", mimeType)
	}

	img, err := decode(b)

	if err != nil {
		return gocv.Mat{}, err
	}

	// ImageToMatRGB stores pixels in OpenCV BGR order
	return gocv.ImageToMatRGB(img)
}

// EncodeJPEG encodes a frame as JPEG
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)

	if err != nil {
		return nil, fmt.Errorf("error encoding jpeg: %w", err)
	}

	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
