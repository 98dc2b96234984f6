package optflow

import (
	"image"
	"math"
)

// plane is a single channel float image. Reads outside of bounds replicate the border.
type plane struct {
	width  int
	height int
	pix    []float32
}

func newPlane(width, height int) *plane {
	return &plane{
		width:  width,
		height: height,
		pix:    make([]float32, width*height),
	}
}

func planeFromGray(gray *image.Gray) *plane {
	bounds := gray.Bounds()
	p := newPlane(bounds.Dx(), bounds.Dy())
	for y := 0; y < p.height; y++ {
		offset := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		row := p.pix[y*p.width : (y+1)*p.width]
		for x := range row {
			row[x] = float32(gray.Pix[offset+x])
		}
	}
	return p
}

func (p *plane) at(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= p.width {
		x = p.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.height {
		y = p.height - 1
	}
	return p.pix[y*p.width+x]
}

// bilinear samples plane at sub-pixel position
func (p *plane) bilinear(x, y float64) float32 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)
	ax := float32(x - x0)
	ay := float32(y - y0)
	ix, iy := int(x0), int(y0)
	v00 := p.at(ix, iy)
	v10 := p.at(ix+1, iy)
	v01 := p.at(ix, iy+1)
	v11 := p.at(ix+1, iy+1)
	top := v00 + ax*(v10-v00)
	bottom := v01 + ax*(v11-v01)
	return top + ay*(bottom-top)
}

// pyrDown blurs with 5-tap binomial kernel [1 4 6 4 1]/16 and drops every second row and column
func (p *plane) pyrDown() *plane {
	width := (p.width + 1) / 2
	height := (p.height + 1) / 2
	// Horizontal pass on full rows, decimated columns
	tmp := newPlane(width, p.height)
	for y := 0; y < p.height; y++ {
		for x := 0; x < width; x++ {
			sx := 2 * x
			tmp.pix[y*width+x] = (p.at(sx-2, y) + 4*p.at(sx-1, y) + 6*p.at(sx, y) + 4*p.at(sx+1, y) + p.at(sx+2, y)) / 16
		}
	}
	out := newPlane(width, height)
	for y := 0; y < height; y++ {
		sy := 2 * y
		for x := 0; x < width; x++ {
			out.pix[y*width+x] = (tmp.at(x, sy-2) + 4*tmp.at(x, sy-1) + 6*tmp.at(x, sy) + 4*tmp.at(x, sy+1) + tmp.at(x, sy+2)) / 16
		}
	}
	return out
}

// scharr returns horizontal and vertical derivatives in intensity units per pixel
func (p *plane) scharr() (*plane, *plane) {
	dx := newPlane(p.width, p.height)
	dy := newPlane(p.width, p.height)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			tl, tc, tr := p.at(x-1, y-1), p.at(x, y-1), p.at(x+1, y-1)
			ml, mr := p.at(x-1, y), p.at(x+1, y)
			bl, bc, br := p.at(x-1, y+1), p.at(x, y+1), p.at(x+1, y+1)
			dx.pix[y*p.width+x] = (3*(tr-tl) + 10*(mr-ml) + 3*(br-bl)) / 32
			dy.pix[y*p.width+x] = (3*(bl-tl) + 10*(bc-tc) + 3*(br-tr)) / 32
		}
	}
	return dx, dy
}

// sobel returns horizontal and vertical derivatives in intensity units per pixel
func (p *plane) sobel() (*plane, *plane) {
	dx := newPlane(p.width, p.height)
	dy := newPlane(p.width, p.height)
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			tl, tc, tr := p.at(x-1, y-1), p.at(x, y-1), p.at(x+1, y-1)
			ml, mr := p.at(x-1, y), p.at(x+1, y)
			bl, bc, br := p.at(x-1, y+1), p.at(x, y+1), p.at(x+1, y+1)
			dx.pix[y*p.width+x] = ((tr - tl) + 2*(mr-ml) + (br - bl)) / 8
			dy.pix[y*p.width+x] = ((bl - tl) + 2*(bc-tc) + (br - tr)) / 8
		}
	}
	return dx, dy
}
