package optflow

import "github.com/pkg/errors"

// Contract violations. Lost points and total tracking loss are never reported as errors.
var (
	ErrDimensionMismatch = errors.New("frame dimensions do not match session")
	ErrFrameTooSmall     = errors.New("frame cannot hold a single tracking window")
	ErrEmptyFrame        = errors.New("empty frame")
	ErrBadConfig         = errors.New("bad configuration")
)
