package optflow

import (
	"image"
	"math"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// TrackResult describes where an input point went. Position is meaningful only when Found is true.
type TrackResult struct {
	Position Point
	Found    bool
	// Mean absolute intensity difference between the point windows of both frames
	Error float64
}

// FlowEstimator estimates positions of points of previous frame in current frame.
// Result i always corresponds to input point i.
type FlowEstimator interface {
	TrackWithGuess(prev, curr *image.Gray, points, guesses []Point) ([]TrackResult, error)
}

// PyramidalTracker is iterative Lucas-Kanade tracker working coarse-to-fine over image pyramids.
// It remembers pyramid of the last current frame and reuses it when that frame comes back as previous one,
// so frames must not be modified after being passed in. Not safe for concurrent use.
type PyramidalTracker struct {
	cfg   TrackerConfig
	cache *pyramid
}

// NewPyramidalTrackerDefault creates tracker with default parameters
func NewPyramidalTrackerDefault() *PyramidalTracker {
	return &PyramidalTracker{
		cfg: DefaultTrackerConfig(),
	}
}

// NewPyramidalTracker creates tracker with given parameters
func NewPyramidalTracker(cfg TrackerConfig) (*PyramidalTracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PyramidalTracker{
		cfg: cfg,
	}, nil
}

// Config returns parameters of tracker
func (tr *PyramidalTracker) Config() TrackerConfig {
	return tr.cfg
}

// Track estimates positions of points in curr. Search starts with zero displacement.
func (tr *PyramidalTracker) Track(prev, curr *image.Gray, points []Point) ([]TrackResult, error) {
	return tr.TrackWithGuess(prev, curr, points, nil)
}

// TrackWithGuess works as Track but starts search for point i at guesses[i] (in full resolution coordinates).
// Nil guesses means zero initial displacement.
func (tr *PyramidalTracker) TrackWithGuess(prev, curr *image.Gray, points, guesses []Point) ([]TrackResult, error) {
	results := make([]TrackResult, len(points))
	if len(points) == 0 {
		return results, nil
	}
	if guesses != nil && len(guesses) != len(points) {
		return nil, errors.Errorf("got %d guesses for %d points", len(guesses), len(points))
	}
	prevBounds, currBounds := prev.Bounds(), curr.Bounds()
	if prevBounds.Dx() != currBounds.Dx() || prevBounds.Dy() != currBounds.Dy() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "previous %dx%d, current %dx%d", prevBounds.Dx(), prevBounds.Dy(), currBounds.Dx(), currBounds.Dy())
	}
	level, err := usableLevel(currBounds.Dx(), currBounds.Dy(), tr.cfg.WinSize, tr.cfg.MaxLevel)
	if err != nil {
		return nil, err
	}

	prevPyr := tr.cache
	if prevPyr == nil || prevPyr.source != prev || prevPyr.maxLevel() != level {
		prevPyr = buildPyramid(prev, level)
	}
	prevPyr.ensureGradients()
	currPyr := prevPyr
	if curr != prev {
		currPyr = buildPyramid(curr, level)
	}

	workers := tr.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	group := new(errgroup.Group)
	group.SetLimit(workers)
	for i := range points {
		i := i
		start := points[i]
		if guesses != nil {
			start = guesses[i]
		}
		group.Go(func() error {
			results[i] = tr.trackPoint(prevPyr, currPyr, level, points[i], start)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.Wrap(err, "can't track points")
	}
	tr.cache = currPyr
	return results, nil
}

// trackPoint runs iterative refinement for one point from coarsest level down to level 0
func (tr *PyramidalTracker) trackPoint(prevPyr, currPyr *pyramid, level int, point, start Point) TrackResult {
	half := tr.cfg.WinSize / 2
	winArea := float64(tr.cfg.WinSize * tr.cfg.WinSize)
	lost := TrackResult{Position: point, Found: false}

	iWin := make([]float32, tr.cfg.WinSize*tr.cfg.WinSize)
	dxWin := make([]float32, len(iWin))
	dyWin := make([]float32, len(iWin))

	next := start.Scale(1 / float64(int(1)<<level))
	for l := level; l >= 0; l-- {
		I := prevPyr.levels[l]
		J := currPyr.levels[l]
		prevPt := point.Scale(1 / float64(int(1)<<l))
		if windowOutside(prevPt, half, I.width, I.height) {
			return lost
		}

		var gxx, gxy, gyy float64
		k := 0
		for wy := -half; wy <= half; wy++ {
			for wx := -half; wx <= half; wx++ {
				x := prevPt.X + float64(wx)
				y := prevPt.Y + float64(wy)
				iWin[k] = I.bilinear(x, y)
				dxWin[k] = prevPyr.gradX[l].bilinear(x, y)
				dyWin[k] = prevPyr.gradY[l].bilinear(x, y)
				gx, gy := float64(dxWin[k]), float64(dyWin[k])
				gxx += gx * gx
				gxy += gx * gy
				gyy += gy * gy
				k++
			}
		}

		minEig, inverse, ok := invertNormalMatrix(gxx, gxy, gyy)
		if !ok || minEig/winArea < tr.cfg.MinEigThreshold {
			// Not enough texture at this resolution: keep the guess for finer levels
			if l == 0 {
				return lost
			}
			next = next.Scale(2)
			continue
		}

		var prevDelta Point
		for iter := 0; iter < tr.cfg.MaxIterations; iter++ {
			if windowOutside(next, half, J.width, J.height) {
				return lost
			}
			var bx, by float64
			k = 0
			for wy := -half; wy <= half; wy++ {
				for wx := -half; wx <= half; wx++ {
					diff := float64(iWin[k] - J.bilinear(next.X+float64(wx), next.Y+float64(wy)))
					bx += diff * float64(dxWin[k])
					by += diff * float64(dyWin[k])
					k++
				}
			}
			var eta mat.VecDense
			eta.MulVec(inverse, mat.NewVecDense(2, []float64{bx, by}))
			delta := Point{X: eta.AtVec(0), Y: eta.AtVec(1)}
			if math.IsNaN(delta.X) || math.IsNaN(delta.Y) || math.IsInf(delta.X, 0) || math.IsInf(delta.Y, 0) {
				return lost
			}
			next = next.Add(delta)
			if delta.Norm() < tr.cfg.Epsilon {
				break
			}
			// Oscillation between two positions: settle in the middle
			if iter > 0 && delta.Add(prevDelta).Norm() < 0.01 {
				next = next.Sub(delta.Scale(0.5))
				break
			}
			prevDelta = delta
		}
		if l > 0 {
			next = next.Scale(2)
		}
	}

	J := currPyr.levels[0]
	residual := 0.0
	k := 0
	for wy := -half; wy <= half; wy++ {
		for wx := -half; wx <= half; wx++ {
			residual += math.Abs(float64(iWin[k] - J.bilinear(next.X+float64(wx), next.Y+float64(wy))))
			k++
		}
	}
	residual /= winArea

	result := TrackResult{
		Position: next,
		Found:    true,
		Error:    residual,
	}
	if !next.Inside(J.width, J.height) || residual > tr.cfg.MaxError {
		result.Found = false
	}
	return result
}

// windowOutside reports whether square window of given half size around center lies completely outside the image
func windowOutside(center Point, half, width, height int) bool {
	h := float64(half)
	return center.X+h < 0 || center.Y+h < 0 || center.X-h > float64(width-1) || center.Y-h > float64(height-1)
}

// invertNormalMatrix returns the smaller eigenvalue and the inverse of [gxx gxy; gxy gyy].
// ok is false when matrix is singular or badly conditioned.
func invertNormalMatrix(gxx, gxy, gyy float64) (float64, *mat.Dense, bool) {
	g := mat.NewSymDense(2, []float64{gxx, gxy, gxy, gyy})
	var eig mat.EigenSym
	if !eig.Factorize(g, false) {
		return 0, nil, false
	}
	values := eig.Values(nil)
	minEig := math.Min(values[0], values[1])
	if minEig <= 0 {
		return minEig, nil, false
	}
	var inverse mat.Dense
	if err := inverse.Inverse(g); err != nil {
		return minEig, nil, false
	}
	return minEig, &inverse, true
}
