package optflow

import (
	"image"

	"github.com/pkg/errors"
)

// pyramid keeps Gaussian levels of a frame, finest first. Gradients are computed on demand
// only when the pyramid plays the role of previous frame.
type pyramid struct {
	source *image.Gray
	levels []*plane
	gradX  []*plane
	gradY  []*plane
}

func buildPyramid(gray *image.Gray, maxLevel int) *pyramid {
	pyr := &pyramid{
		source: gray,
		levels: make([]*plane, 0, maxLevel+1),
	}
	pyr.levels = append(pyr.levels, planeFromGray(gray))
	for l := 1; l <= maxLevel; l++ {
		pyr.levels = append(pyr.levels, pyr.levels[l-1].pyrDown())
	}
	return pyr
}

// maxLevel returns index of coarsest level
func (pyr *pyramid) maxLevel() int {
	return len(pyr.levels) - 1
}

// ensureGradients computes derivatives for levels [0, maxLevel]. Not safe for concurrent use.
func (pyr *pyramid) ensureGradients() {
	for l := len(pyr.gradX); l < len(pyr.levels); l++ {
		dx, dy := pyr.levels[l].scharr()
		pyr.gradX = append(pyr.gradX, dx)
		pyr.gradY = append(pyr.gradY, dy)
	}
}

// usableLevel returns the largest level <= maxLevel whose image still holds one winSize x winSize window
func usableLevel(width, height, winSize, maxLevel int) (int, error) {
	if width < winSize || height < winSize {
		return 0, errors.Wrapf(ErrFrameTooSmall, "frame %dx%d, window %d", width, height, winSize)
	}
	level := 0
	for level < maxLevel {
		width = (width + 1) / 2
		height = (height + 1) / 2
		if width < winSize || height < winSize {
			break
		}
		level++
	}
	return level, nil
}
