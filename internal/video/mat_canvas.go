package video

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MatCanvas is an accumulating overlay backed by 3-channel Mat
type MatCanvas struct {
	mat gocv.Mat
}

// NewMatCanvas creates black canvas of given size
func NewMatCanvas(width, height int) *MatCanvas {
	return &MatCanvas{
		mat: gocv.Zeros(height, width, gocv.MatTypeCV8UC3),
	}
}

// Line draws segment between a and b
func (mc *MatCanvas) Line(a, b image.Point, c color.RGBA, thickness int) {
	gocv.Line(&mc.mat, a, b, c, thickness)
}

// Circle draws filled disc
func (mc *MatCanvas) Circle(center image.Point, radius int, c color.RGBA) {
	gocv.Circle(&mc.mat, center, radius, c, -1)
}

// Mat returns underlying Mat
func (mc *MatCanvas) Mat() gocv.Mat {
	return mc.mat
}

// Composite adds overlay to frame with saturation
func (mc *MatCanvas) Composite(frame image.Image) (*image.RGBA, error) {
	frameMat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert frame to Mat")
	}
	defer frameMat.Close()
	if frameMat.Rows() != mc.mat.Rows() || frameMat.Cols() != mc.mat.Cols() {
		return nil, errors.Errorf("Frame is %dx%d, overlay is %dx%d", frameMat.Cols(), frameMat.Rows(), mc.mat.Cols(), mc.mat.Rows())
	}
	sum := gocv.NewMat()
	defer sum.Close()
	gocv.Add(frameMat, mc.mat, &sum)
	img, err := sum.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "Can't convert composited Mat")
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

// Close releases Mat
func (mc *MatCanvas) Close() error {
	return mc.mat.Close()
}
