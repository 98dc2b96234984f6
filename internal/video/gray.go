package video

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// GrayFromMat converts 1, 3 (BGR) or 4 (BGRA) channel 8-bit Mat to grayscale image
func GrayFromMat(mat gocv.Mat) (*image.Gray, error) {
	if mat.Empty() {
		return nil, ErrEmptyMat
	}
	gray := gocv.NewMat()
	defer gray.Close()
	switch mat.Channels() {
	case 1:
		mat.CopyTo(&gray)
	case 3:
		gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(mat, &gray, gocv.ColorBGRAToGray)
	default:
		return nil, errors.Wrapf(ErrChannels, "got %d", mat.Channels())
	}
	if gray.Type() != gocv.MatTypeCV8UC1 {
		return nil, errors.Errorf("Expected 8-bit Mat, got type %v", mat.Type())
	}
	img := image.NewGray(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	copy(img.Pix, gray.ToBytes())
	return img, nil
}
