package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// Canvas is a surface trails can be drawn on
type Canvas interface {
	// Line draws segment between a and b
	Line(a, b image.Point, c color.RGBA, thickness int)
	// Circle draws filled disc
	Circle(center image.Point, radius int, c color.RGBA)
}

// ImageCanvas draws on in-memory RGBA image
type ImageCanvas struct {
	Img *image.RGBA
	z   *vector.Rasterizer
}

// NewImageCanvas creates transparent black canvas of given size
func NewImageCanvas(width, height int) *ImageCanvas {
	return &ImageCanvas{
		Img: image.NewRGBA(image.Rect(0, 0, width, height)),
		z:   vector.NewRasterizer(width, height),
	}
}

// WrapRGBA creates canvas drawing directly on img
func WrapRGBA(img *image.RGBA) *ImageCanvas {
	return &ImageCanvas{
		Img: img,
		z:   vector.NewRasterizer(img.Bounds().Dx(), img.Bounds().Dy()),
	}
}

// Line draws segment as a quad of given thickness with round caps
func (ic *ImageCanvas) Line(a, b image.Point, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	half := float64(thickness) / 2
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		ic.disc(float64(a.X), float64(a.Y), half, c)
		return
	}
	// Unit normal scaled to half of thickness
	nx := -dy / length * half
	ny := dx / length * half
	ax, ay := float64(a.X)+0.5, float64(a.Y)+0.5
	bx, by := float64(b.X)+0.5, float64(b.Y)+0.5

	ic.z.Reset(ic.Img.Bounds().Dx(), ic.Img.Bounds().Dy())
	ic.z.MoveTo(float32(ax+nx), float32(ay+ny))
	ic.z.LineTo(float32(bx+nx), float32(by+ny))
	ic.z.LineTo(float32(bx-nx), float32(by-ny))
	ic.z.LineTo(float32(ax-nx), float32(ay-ny))
	ic.z.ClosePath()
	ic.z.Draw(ic.Img, ic.Img.Bounds(), image.NewUniform(c), image.Point{})
	if thickness > 2 {
		ic.disc(float64(a.X), float64(a.Y), half, c)
		ic.disc(float64(b.X), float64(b.Y), half, c)
	}
}

// Circle draws filled disc
func (ic *ImageCanvas) Circle(center image.Point, radius int, c color.RGBA) {
	if radius < 1 {
		radius = 1
	}
	ic.disc(float64(center.X), float64(center.Y), float64(radius), c)
}

func (ic *ImageCanvas) disc(cx, cy, radius float64, c color.RGBA) {
	const segments = 32
	cx += 0.5
	cy += 0.5
	ic.z.Reset(ic.Img.Bounds().Dx(), ic.Img.Bounds().Dy())
	ic.z.MoveTo(float32(cx+radius), float32(cy))
	for i := 1; i < segments; i++ {
		angle := 2 * math.Pi * float64(i) / segments
		ic.z.LineTo(float32(cx+radius*math.Cos(angle)), float32(cy+radius*math.Sin(angle)))
	}
	ic.z.ClosePath()
	ic.z.Draw(ic.Img, ic.Img.Bounds(), image.NewUniform(c), image.Point{})
}

// Composite returns frame with overlay added channel-wise with saturation
func Composite(frame image.Image, overlay *image.RGBA) *image.RGBA {
	bounds := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), frame, bounds.Min, draw.Src)
	width := min(out.Bounds().Dx(), overlay.Bounds().Dx())
	height := min(out.Bounds().Dy(), overlay.Bounds().Dy())
	for y := 0; y < height; y++ {
		dst := out.Pix[y*out.Stride : y*out.Stride+4*width]
		src := overlay.Pix[overlay.PixOffset(overlay.Bounds().Min.X, overlay.Bounds().Min.Y+y):]
		for i := 0; i < 4*width; i++ {
			if i%4 == 3 {
				continue
			}
			dst[i] = saturatingAdd(dst[i], src[i])
		}
	}
	return out
}

func saturatingAdd(a, b uint8) uint8 {
	sum := uint16(a) + uint16(b)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}
