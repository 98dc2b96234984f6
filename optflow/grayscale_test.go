package optflow

import (
	"image"
	"image/color"
	"testing"
)

func TestToGrayWeights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	img.SetRGBA(2, 0, color.RGBA{B: 255, A: 255})
	gray := ToGray(img)
	expected := []uint8{76, 150, 29}
	for x, want := range expected {
		if got := gray.GrayAt(x, 0).Y; got != want {
			t.Errorf("Wrong luminance at %d: %d, expected: %d", x, got, want)
		}
	}
}

func TestToGrayKeepsSize(t *testing.T) {
	frames := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 64, 48)),
		image.NewNRGBA(image.Rect(0, 0, 64, 48)),
		image.NewYCbCr(image.Rect(0, 0, 64, 48), image.YCbCrSubsampleRatio420),
		image.NewGray(image.Rect(0, 0, 64, 48)),
	}
	for _, frame := range frames {
		gray := ToGray(frame)
		if gray.Bounds() != image.Rect(0, 0, 64, 48) {
			t.Errorf("Wrong bounds for %T: %v", frame, gray.Bounds())
		}
	}
}

func TestToGrayIdentity(t *testing.T) {
	src := squareFrame(20, 20, 5, 5, 6)
	sub := src.SubImage(image.Rect(4, 4, 14, 14)).(*image.Gray)
	gray := ToGray(sub)
	if gray.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("Wrong bounds: %v", gray.Bounds())
	}
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if gray.GrayAt(x, y) != src.GrayAt(x+4, y+4) {
				t.Errorf("Wrong value at (%d, %d)", x, y)
			}
		}
	}
	gray.Pix[0] = 77
	if src.GrayAt(4, 4).Y == 77 {
		t.Error("Gray input should be copied")
	}
}
