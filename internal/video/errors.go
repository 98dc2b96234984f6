package video

import (
	"github.com/pkg/errors"
)

var (
	ErrEmptyMat = errors.New("Empty Mat")
	ErrChannels = errors.New("Unsupported number of channels")
	ErrNotOpen  = errors.New("Capture is not opened")
)
