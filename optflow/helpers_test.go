package optflow

import (
	"image"
	"image/color"
)

type rect struct {
	x0, y0, x1, y1 int
	value          uint8
}

// sceneRects are four rectangles of different brightness on a dark background of 100x100 frame
var sceneRects = []rect{
	{x0: 20, y0: 20, x1: 40, y1: 35, value: 200},
	{x0: 55, y0: 25, x1: 80, y1: 45, value: 120},
	{x0: 25, y0: 55, x1: 45, y1: 80, value: 90},
	{x0: 60, y0: 60, x1: 82, y1: 78, value: 230},
}

// drawScene renders rectangles shifted by (dx, dy) onto uniform background
func drawScene(width, height int, background uint8, rects []rect, dx, dy int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = background
	}
	for _, r := range rects {
		for y := r.y0 + dy; y < r.y1+dy; y++ {
			for x := r.x0 + dx; x < r.x1+dx; x++ {
				if x < 0 || y < 0 || x >= width || y >= height {
					continue
				}
				img.SetGray(x, y, color.Gray{Y: r.value})
			}
		}
	}
	return img
}

func uniformFrame(width, height int, value uint8) *image.Gray {
	return drawScene(width, height, value, nil, 0, 0)
}

// squareFrame is single bright square of given side with top-left corner at (x, y)
func squareFrame(width, height, x, y, side int) *image.Gray {
	return drawScene(width, height, 0, []rect{{x0: x, y0: y, x1: x + side, y1: y + side, value: 255}}, 0, 0)
}

// stubEstimator reports every point as lost
type stubEstimator struct {
	calls int
}

func (s *stubEstimator) TrackWithGuess(prev, curr *image.Gray, points, guesses []Point) ([]TrackResult, error) {
	s.calls++
	results := make([]TrackResult, len(points))
	for i := range points {
		results[i] = TrackResult{Position: points[i], Found: false}
	}
	return results, nil
}

// partialEstimator keeps points with even index in place and loses the others
type partialEstimator struct{}

func (partialEstimator) TrackWithGuess(prev, curr *image.Gray, points, guesses []Point) ([]TrackResult, error) {
	results := make([]TrackResult, len(points))
	for i := range points {
		results[i] = TrackResult{Position: points[i], Found: i%2 == 0}
	}
	return results, nil
}
