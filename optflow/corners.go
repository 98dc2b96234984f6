package optflow

import (
	"image"
	"math"
)

// CornerSelector picks points that are well-conditioned for tracking (Shi-Tomasi "good features to track").
// Response of a pixel is the smaller eigenvalue of the structure tensor accumulated over BlockSize x BlockSize neighbourhood.
type CornerSelector struct {
	cfg CornerConfig
}

// NewCornerSelectorDefault creates selector with default parameters
func NewCornerSelectorDefault() *CornerSelector {
	return &CornerSelector{
		cfg: DefaultCornerConfig(),
	}
}

// NewCornerSelector creates selector with given parameters
func NewCornerSelector(cfg CornerConfig) (*CornerSelector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CornerSelector{
		cfg: cfg,
	}, nil
}

// Config returns parameters of selector
func (cs *CornerSelector) Config() CornerConfig {
	return cs.cfg
}

// Select returns up to MaxCorners points ordered by descending response.
// No two returned points are closer than MinDistance. Flat frame gives empty result.
func (cs *CornerSelector) Select(gray *image.Gray) []Point {
	return cs.SelectExcluding(gray, nil, cs.cfg.MaxCorners)
}

// SelectExcluding works as Select but also keeps MinDistance from every point in existing.
// At most limit new points are returned; existing points are never part of result.
func (cs *CornerSelector) SelectExcluding(gray *image.Gray, existing []Point, limit int) []Point {
	result := []Point{}
	if limit <= 0 {
		return result
	}
	response := cs.response(planeFromGray(gray))
	if response == nil {
		return result
	}
	candidates := response.candidates(cs.cfg.QualityLevel)
	if len(candidates) == 0 {
		return result
	}

	accepted := make([]Point, 0, len(existing)+limit)
	accepted = append(accepted, existing...)
	for candidates.Len() > 0 && len(result) < limit {
		candidate := candidates.Pop()
		if tooClose(candidate.point, accepted, cs.cfg.MinDistance) {
			continue
		}
		accepted = append(accepted, candidate.point)
		result = append(result, candidate.point)
	}
	return result
}

func tooClose(p Point, accepted []Point, minDistance float64) bool {
	for _, other := range accepted {
		if euclideanDistance(p, other) < minDistance {
			return true
		}
	}
	return false
}

// responseMap holds min-eigenvalue response for each pixel. Pixels without full block are zero.
type responseMap struct {
	width    int
	height   int
	score    []float64
	maxScore float64
}

func (cs *CornerSelector) response(p *plane) *responseMap {
	half := cs.cfg.BlockSize / 2
	if p.width < cs.cfg.BlockSize || p.height < cs.cfg.BlockSize {
		return nil
	}
	ix, iy := p.sobel()

	// Integral images of gradient products
	stride := p.width + 1
	sxx := make([]float64, stride*(p.height+1))
	sxy := make([]float64, stride*(p.height+1))
	syy := make([]float64, stride*(p.height+1))
	for y := 0; y < p.height; y++ {
		var rowXX, rowXY, rowYY float64
		for x := 0; x < p.width; x++ {
			gx := float64(ix.pix[y*p.width+x])
			gy := float64(iy.pix[y*p.width+x])
			rowXX += gx * gx
			rowXY += gx * gy
			rowYY += gy * gy
			idx := (y+1)*stride + x + 1
			sxx[idx] = sxx[idx-stride] + rowXX
			sxy[idx] = sxy[idx-stride] + rowXY
			syy[idx] = syy[idx-stride] + rowYY
		}
	}
	boxSum := func(integral []float64, x0, y0, x1, y1 int) float64 {
		return integral[y1*stride+x1] - integral[y0*stride+x1] - integral[y1*stride+x0] + integral[y0*stride+x0]
	}

	rm := &responseMap{
		width:  p.width,
		height: p.height,
		score:  make([]float64, p.width*p.height),
	}
	for y := half; y < p.height-half; y++ {
		for x := half; x < p.width-half; x++ {
			x0, y0, x1, y1 := x-half, y-half, x+half+1, y+half+1
			a := boxSum(sxx, x0, y0, x1, y1)
			b := boxSum(sxy, x0, y0, x1, y1)
			c := boxSum(syy, x0, y0, x1, y1)
			lambda := minEigenvalue(a, b, c)
			rm.score[y*p.width+x] = lambda
			if lambda > rm.maxScore {
				rm.maxScore = lambda
			}
		}
	}
	return rm
}

// minEigenvalue returns smaller eigenvalue of symmetric matrix [a b; b c]
func minEigenvalue(a, b, c float64) float64 {
	halfTrace := (a + c) / 2
	halfDiff := (a - c) / 2
	lambda := halfTrace - math.Sqrt(halfDiff*halfDiff+b*b)
	if lambda < 0 {
		return 0
	}
	return lambda
}

func (rm *responseMap) at(x, y int) float64 {
	if x < 0 || y < 0 || x >= rm.width || y >= rm.height {
		return 0
	}
	return rm.score[y*rm.width+x]
}

// candidates returns heap of 3x3 local maxima whose response is at least quality * max response
func (rm *responseMap) candidates(quality float64) cornerHeap {
	if rm.maxScore <= 0 {
		return nil
	}
	threshold := quality * rm.maxScore
	h := make(cornerHeap, 0)
	for y := 0; y < rm.height; y++ {
		for x := 0; x < rm.width; x++ {
			s := rm.score[y*rm.width+x]
			if s <= 0 || s < threshold || !rm.isLocalMax(x, y, s) {
				continue
			}
			h.Push(&cornerCandidate{
				point: rm.refine(x, y),
				score: s,
				order: y*rm.width + x,
			})
		}
	}
	return h
}

func (rm *responseMap) isLocalMax(x, y int, s float64) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if rm.at(x+dx, y+dy) > s {
				return false
			}
		}
	}
	return true
}

// refine moves integer maximum to the vertex of parabolas fitted along x and y
func (rm *responseMap) refine(x, y int) Point {
	c := rm.at(x, y)
	return Point{
		X: float64(x) + parabolaPeak(rm.at(x-1, y), c, rm.at(x+1, y)),
		Y: float64(y) + parabolaPeak(rm.at(x, y-1), c, rm.at(x, y+1)),
	}
}

// parabolaPeak returns offset of vertex of parabola through (-1, left), (0, center), (1, right), clamped to [-0.5, 0.5]
func parabolaPeak(left, center, right float64) float64 {
	denominator := left - 2*center + right
	if denominator >= 0 {
		return 0
	}
	offset := (left - right) / (2 * denominator)
	return math.Max(-0.5, math.Min(0.5, offset))
}
