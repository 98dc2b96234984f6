package optflow

import (
	"github.com/pkg/errors"
)

// CornerConfig holds parameters of corner selection (Shi-Tomasi)
type CornerConfig struct {
	// Maximum number of points to return. Default 100
	MaxCorners int
	// Minimal accepted score as a fraction of the best score in frame. Default 0.3
	QualityLevel float64
	// Minimal Euclidean distance between returned points (pixels). Default 7
	MinDistance float64
	// Size of neighbourhood used for structure tensor. Default 7
	BlockSize int
}

// TrackerConfig holds parameters of pyramidal Lucas-Kanade tracking
type TrackerConfig struct {
	// Maximal pyramid level (0 means single level). Default 2
	MaxLevel int
	// Side of square search window. Default 15
	WinSize int
	// Iteration budget per level. Default 10
	MaxIterations int
	// Convergence threshold on update length (pixels). Default 0.03
	Epsilon float64
	// Minimal eigenvalue of the normalized gradient matrix. Default 1e-4
	MinEigThreshold float64
	// Maximal mean absolute residual (grey levels) for a point to be found. Default 50
	MaxError float64
	// Number of goroutines refining points. Zero means GOMAXPROCS
	Workers int
}

// Config is the full configuration of tracking session
type Config struct {
	Corners CornerConfig
	Tracker TrackerConfig
	// Maximal trail length per point. Zero means unbounded
	MaxTrailLen int
	// Re-seed every N frames to replenish lost points. Zero disables periodic re-seeding
	ReseedInterval int
	// Re-seed as soon as number of active points drops below this value. Zero disables
	MinPoints int
	// Use per-point Kalman prediction as initial guess for tracker
	PredictMotion bool
}

// DefaultCornerConfig returns default corner selection parameters
func DefaultCornerConfig() CornerConfig {
	return CornerConfig{
		MaxCorners:   100,
		QualityLevel: 0.3,
		MinDistance:  7,
		BlockSize:    7,
	}
}

// DefaultTrackerConfig returns default Lucas-Kanade parameters
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		MaxLevel:        2,
		WinSize:         15,
		MaxIterations:   10,
		Epsilon:         0.03,
		MinEigThreshold: 1e-4,
		MaxError:        50,
		Workers:         0,
	}
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		Corners:        DefaultCornerConfig(),
		Tracker:        DefaultTrackerConfig(),
		MaxTrailLen:    0,
		ReseedInterval: 0,
		MinPoints:      0,
		PredictMotion:  false,
	}
}

// Validate checks configuration for values the algorithms can not work with
func (cfg Config) Validate() error {
	if err := cfg.Corners.Validate(); err != nil {
		return err
	}
	if err := cfg.Tracker.Validate(); err != nil {
		return err
	}
	if cfg.MaxTrailLen < 0 {
		return errors.Wrapf(ErrBadConfig, "max trail length must be non-negative, got %d", cfg.MaxTrailLen)
	}
	if cfg.ReseedInterval < 0 {
		return errors.Wrapf(ErrBadConfig, "reseed interval must be non-negative, got %d", cfg.ReseedInterval)
	}
	if cfg.MinPoints < 0 || cfg.MinPoints > cfg.Corners.MaxCorners {
		return errors.Wrapf(ErrBadConfig, "min points must be in [0, %d], got %d", cfg.Corners.MaxCorners, cfg.MinPoints)
	}
	return nil
}

func (cfg CornerConfig) Validate() error {
	if cfg.MaxCorners <= 0 {
		return errors.Wrapf(ErrBadConfig, "max corners must be positive, got %d", cfg.MaxCorners)
	}
	if cfg.QualityLevel <= 0 || cfg.QualityLevel > 1 {
		return errors.Wrapf(ErrBadConfig, "quality level must be in (0, 1], got %f", cfg.QualityLevel)
	}
	if cfg.MinDistance < 0 {
		return errors.Wrapf(ErrBadConfig, "min distance must be non-negative, got %f", cfg.MinDistance)
	}
	if cfg.BlockSize < 1 || cfg.BlockSize%2 == 0 {
		return errors.Wrapf(ErrBadConfig, "block size must be positive and odd, got %d", cfg.BlockSize)
	}
	return nil
}

func (cfg TrackerConfig) Validate() error {
	if cfg.MaxLevel < 0 {
		return errors.Wrapf(ErrBadConfig, "max level must be non-negative, got %d", cfg.MaxLevel)
	}
	if cfg.WinSize < 3 || cfg.WinSize%2 == 0 {
		return errors.Wrapf(ErrBadConfig, "window size must be odd and at least 3, got %d", cfg.WinSize)
	}
	if cfg.MaxIterations < 1 {
		return errors.Wrapf(ErrBadConfig, "max iterations must be positive, got %d", cfg.MaxIterations)
	}
	if cfg.Epsilon < 0 {
		return errors.Wrapf(ErrBadConfig, "epsilon must be non-negative, got %f", cfg.Epsilon)
	}
	if cfg.MaxError <= 0 {
		return errors.Wrapf(ErrBadConfig, "max error must be positive, got %f", cfg.MaxError)
	}
	if cfg.Workers < 0 {
		return errors.Wrapf(ErrBadConfig, "workers must be non-negative, got %d", cfg.Workers)
	}
	return nil
}
