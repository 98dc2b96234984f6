package optflow

import (
	"image"
	"image/color"
)

// ToGray converts frame to single channel intensity image with origin at (0, 0).
// Color channels are combined as Y = 0.299 R + 0.587 G + 0.114 B. Gray input is copied.
func ToGray(frame image.Image) *image.Gray {
	bounds := frame.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	gray := image.NewGray(image.Rect(0, 0, width, height))
	switch src := frame.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			srcOffset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+width], src.Pix[srcOffset:srcOffset+width])
		}
	case *image.RGBA:
		for y := 0; y < height; y++ {
			srcOffset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x := range row {
				px := src.Pix[srcOffset+4*x : srcOffset+4*x+3]
				row[x] = luma(uint32(px[0]), uint32(px[1]), uint32(px[2]))
			}
		}
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			srcOffset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
			for x := range row {
				px := src.Pix[srcOffset+4*x : srcOffset+4*x+3]
				row[x] = luma(uint32(px[0]), uint32(px[1]), uint32(px[2]))
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.RGBAModel.Convert(frame.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
				gray.Pix[y*gray.Stride+x] = luma(uint32(c.R), uint32(c.G), uint32(c.B))
			}
		}
	}
	return gray
}

func luma(r, g, b uint32) uint8 {
	return uint8((299*r + 587*g + 114*b + 500) / 1000)
}
