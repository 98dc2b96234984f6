package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/LdDl/optflow-go/optflow"
	"github.com/pkg/errors"
)

// maxFileSize is the largest tuning file accepted (1MB)
const maxFileSize = 1 * 1024 * 1024

// TuningConfig mirrors optflow.Config for JSON files.
// Omitted fields keep values of the config they are applied to, so partial files are safe.
type TuningConfig struct {
	// Corner selection params
	MaxCorners   *int     `json:"max_corners,omitempty"`
	QualityLevel *float64 `json:"quality_level,omitempty"`
	MinDistance  *float64 `json:"min_distance,omitempty"`
	BlockSize    *int     `json:"block_size,omitempty"`

	// Tracker params
	MaxLevel        *int     `json:"max_level,omitempty"`
	WinSize         *int     `json:"win_size,omitempty"`
	MaxIterations   *int     `json:"max_iterations,omitempty"`
	Epsilon         *float64 `json:"epsilon,omitempty"`
	MinEigThreshold *float64 `json:"min_eig_threshold,omitempty"`
	MaxError        *float64 `json:"max_error,omitempty"`
	Workers         *int     `json:"workers,omitempty"`

	// Session params
	MaxTrailLen    *int  `json:"max_trail_len,omitempty"`
	ReseedInterval *int  `json:"reseed_interval,omitempty"`
	MinPoints      *int  `json:"min_points,omitempty"`
	PredictMotion  *bool `json:"predict_motion,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have .json extension and be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	if fileInfo.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return cfg, nil
}

// Apply returns copy of base with every set field overridden
func (c *TuningConfig) Apply(base optflow.Config) optflow.Config {
	out := base
	setInt(&out.Corners.MaxCorners, c.MaxCorners)
	setFloat(&out.Corners.QualityLevel, c.QualityLevel)
	setFloat(&out.Corners.MinDistance, c.MinDistance)
	setInt(&out.Corners.BlockSize, c.BlockSize)

	setInt(&out.Tracker.MaxLevel, c.MaxLevel)
	setInt(&out.Tracker.WinSize, c.WinSize)
	setInt(&out.Tracker.MaxIterations, c.MaxIterations)
	setFloat(&out.Tracker.Epsilon, c.Epsilon)
	setFloat(&out.Tracker.MinEigThreshold, c.MinEigThreshold)
	setFloat(&out.Tracker.MaxError, c.MaxError)
	setInt(&out.Tracker.Workers, c.Workers)

	setInt(&out.MaxTrailLen, c.MaxTrailLen)
	setInt(&out.ReseedInterval, c.ReseedInterval)
	setInt(&out.MinPoints, c.MinPoints)
	if c.PredictMotion != nil {
		out.PredictMotion = *c.PredictMotion
	}
	return out
}

// Validate checks that the set values produce a valid optflow.Config when applied to defaults.
func (c *TuningConfig) Validate() error {
	return c.Apply(optflow.DefaultConfig()).Validate()
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
