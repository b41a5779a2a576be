package preprocess

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestCropResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		target        int
		cropWidth     int
		cropHeight    int
		expectedW     int
		expectedH     int
		expectedXOff  int
		expectedYOff  int
		expectedScale float32
	}{
		{640, 480, 256, 224, 224, 340, 256, 58, 16, 256.0 / 480.0},
		{480, 640, 256, 224, 224, 256, 340, 16, 58, 256.0 / 480.0},
		{512, 512, 256, 224, 224, 256, 256, 16, 16, 0.5},
		{1280, 720, 360, 640, 360, 640, 360, 0, 0, 0.5},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)

		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.target, tc.cropWidth, tc.cropHeight)

		resizer.CropResize(img, &resizedImg)

		w, h := resizer.ResizedSize()

		if w != tc.expectedW || h != tc.expectedH {
			t.Errorf("Test failed for src (%d, %d): resize dimensions wrong, expected %dx%d, got %dx%d",
				tc.srcWidth, tc.srcHeight, tc.expectedW, tc.expectedH, w, h)
		}

		if resizer.XOffset() != tc.expectedXOff || resizer.YOffset() != tc.expectedYOff {
			t.Errorf("Test failed for src (%d, %d): crop offsets wrong, expected x=%d, y=%d, got x=%d, y=%d",
				tc.srcWidth, tc.srcHeight, tc.expectedXOff, tc.expectedYOff, resizer.XOffset(), resizer.YOffset())
		}

		if resizer.ScaleFactor() != tc.expectedScale {
			t.Errorf("Test failed for src (%d, %d): Scalefactor incorrect, expected %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, resizer.ScaleFactor())
		}

		if resizedImg.Cols() != tc.cropWidth || resizedImg.Rows() != tc.cropHeight {
			t.Errorf("Test failed for src (%d, %d): output size wrong, expected %dx%d, got %dx%d",
				tc.srcWidth, tc.srcHeight, tc.cropWidth, tc.cropHeight, resizedImg.Cols(), resizedImg.Rows())
		}

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}
