package optflow

import (
	"image"
	"math"
	"testing"
)

func TestCornerSelectorUniformFrame(t *testing.T) {
	selector := NewCornerSelectorDefault()
	for _, value := range []uint8{0, 128, 255} {
		corners := selector.Select(uniformFrame(100, 100, value))
		if len(corners) != 0 {
			t.Errorf("Uniform frame of %d should not have corners, got %d", value, len(corners))
		}
	}
}

func TestCornerSelectorTinyFrame(t *testing.T) {
	selector := NewCornerSelectorDefault()
	corners := selector.Select(squareFrame(5, 5, 1, 1, 2))
	if len(corners) != 0 {
		t.Errorf("Frame smaller than block should not have corners, got %d", len(corners))
	}
}

func TestCornerSelectorSquare(t *testing.T) {
	selector := NewCornerSelectorDefault()
	corners := selector.Select(squareFrame(100, 100, 40, 40, 20))
	if len(corners) != 4 {
		t.Fatalf("Incorrect number of corners: %d, expected: 4", len(corners))
	}
	// Box window response peaks a couple of pixels inside the geometric corner
	// (39.5, 39.5)...(59.5, 59.5), symmetrically around square center
	center := Point{X: 49.5, Y: 49.5}
	quadrants := map[[2]bool]bool{}
	sum := Point{}
	for _, corner := range corners {
		offset := corner.Sub(center)
		for _, d := range []float64{offset.X, offset.Y} {
			if math.Abs(d) < 7 || math.Abs(d) > 10.5 {
				t.Errorf("Corner %v should be 7..10.5 px away from center along each axis", corner)
			}
		}
		quadrants[[2]bool{offset.X > 0, offset.Y > 0}] = true
		sum = sum.Add(offset)
	}
	if len(quadrants) != 4 {
		t.Errorf("Corners should lie in distinct quadrants: %v", corners)
	}
	if sum.Norm() > 0.5 {
		t.Errorf("Corners are not symmetric around center, sum of offsets: %v", sum)
	}
}

func TestCornerSelectorSeparation(t *testing.T) {
	// Checkerboard has a corner every 4 pixels
	img := image.NewGray(image.Rect(0, 0, 120, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			if ((x/4)+(y/4))%2 == 0 {
				img.Pix[y*img.Stride+x] = 220
			} else {
				img.Pix[y*img.Stride+x] = 30
			}
		}
	}
	for _, minDistance := range []float64{7, 12} {
		cfg := DefaultCornerConfig()
		cfg.MinDistance = minDistance
		cfg.MaxCorners = 1000
		selector, err := NewCornerSelector(cfg)
		if err != nil {
			t.Fatal(err)
		}
		corners := selector.Select(img)
		if len(corners) == 0 {
			t.Fatalf("No corners found on checkerboard")
		}
		for i := range corners {
			for j := i + 1; j < len(corners); j++ {
				if d := euclideanDistance(corners[i], corners[j]); d < minDistance {
					t.Errorf("Corners %v and %v are %f apart, min distance is %f", corners[i], corners[j], d, minDistance)
				}
			}
		}
	}
}

func TestCornerSelectorMaxCorners(t *testing.T) {
	cfg := DefaultCornerConfig()
	cfg.MaxCorners = 3
	selector, err := NewCornerSelector(cfg)
	if err != nil {
		t.Fatal(err)
	}
	corners := selector.Select(drawScene(100, 100, 20, sceneRects, 0, 0))
	if len(corners) != 3 {
		t.Errorf("Incorrect number of corners: %d, expected: 3", len(corners))
	}
}

func TestCornerSelectorExcluding(t *testing.T) {
	selector := NewCornerSelectorDefault()
	frame := squareFrame(100, 100, 40, 40, 20)
	all := selector.Select(frame)
	if len(all) == 0 {
		t.Fatal("No corners found")
	}
	rest := selector.SelectExcluding(frame, all[:1], 100)
	if len(rest) != len(all)-1 {
		t.Fatalf("Incorrect number of corners: %d, expected: %d", len(rest), len(all)-1)
	}
	for _, corner := range rest {
		if euclideanDistance(corner, all[0]) < selector.Config().MinDistance {
			t.Errorf("Corner %v is too close to excluded %v", corner, all[0])
		}
	}
	if got := selector.SelectExcluding(frame, nil, 0); len(got) != 0 {
		t.Errorf("Zero limit should give no corners, got %d", len(got))
	}
}

func TestCornerHeapOrder(t *testing.T) {
	h := cornerHeap{}
	for _, candidate := range []*cornerCandidate{
		{score: 1, order: 0},
		{score: 5, order: 1},
		{score: 3, order: 2},
		{score: 5, order: 3},
		{score: 4, order: 4},
	} {
		h.Push(candidate)
	}
	expected := []int{1, 3, 4, 2, 0}
	for _, want := range expected {
		got := h.Pop()
		if got.order != want {
			t.Errorf("Wrong pop order: %d, expected: %d", got.order, want)
		}
	}
	if h.Len() != 0 {
		t.Errorf("Heap should be empty, got %d", h.Len())
	}
}

func TestParabolaPeak(t *testing.T) {
	if offset := parabolaPeak(1, 2, 1); offset != 0 {
		t.Errorf("Symmetric peak should not move, got %f", offset)
	}
	if offset := parabolaPeak(2, 2, 0); offset != -0.5 {
		t.Errorf("Plateau to the left should move half pixel left, got %f", offset)
	}
	if offset := parabolaPeak(1, 1, 1); offset != 0 {
		t.Errorf("Flat response should not move, got %f", offset)
	}
}
