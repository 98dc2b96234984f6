package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LdDl/optflow-go/optflow"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "max_corners": 50,
  "quality_level": 0.1,
  "win_size": 21,
  "max_level": 3,
  "max_trail_len": 64,
  "reseed_interval": 30,
  "predict_motion": true
}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.MaxCorners)
	assert.Equal(t, 50, *cfg.MaxCorners)
	assert.Nil(t, cfg.MinDistance, "omitted fields stay nil")

	applied := cfg.Apply(optflow.DefaultConfig())
	assert.Equal(t, 50, applied.Corners.MaxCorners)
	assert.Equal(t, 0.1, applied.Corners.QualityLevel)
	assert.Equal(t, 7.0, applied.Corners.MinDistance)
	assert.Equal(t, 7, applied.Corners.BlockSize)
	assert.Equal(t, 21, applied.Tracker.WinSize)
	assert.Equal(t, 3, applied.Tracker.MaxLevel)
	assert.Equal(t, 10, applied.Tracker.MaxIterations)
	assert.Equal(t, 64, applied.MaxTrailLen)
	assert.Equal(t, 30, applied.ReseedInterval)
	assert.True(t, applied.PredictMotion)
}

func TestApplyKeepsBase(t *testing.T) {
	base := optflow.DefaultConfig()
	applied := EmptyTuningConfig().Apply(base)
	assert.Equal(t, base, applied)
}

func TestLoadTuningConfigExtension(t *testing.T) {
	path := writeConfig(t, "tuning.yaml", `{}`)
	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json extension")
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	path := writeConfig(t, "big.json", `{"max_corners": 10}`+strings.Repeat(" ", maxFileSize))
	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadTuningConfigMalformed(t *testing.T) {
	path := writeConfig(t, "broken.json", `{"max_corners": "many"}`)
	_, err := LoadTuningConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	cases := []string{
		`{"win_size": 4}`,
		`{"block_size": 0}`,
		`{"quality_level": 1.5}`,
		`{"max_corners": 10, "min_points": 20}`,
		`{"max_trail_len": -1}`,
		`{"workers": -2}`,
	}
	for _, content := range cases {
		path := writeConfig(t, "invalid.json", content)
		_, err := LoadTuningConfig(path)
		require.Error(t, err, content)
		assert.Equal(t, optflow.ErrBadConfig, errors.Cause(err), content)
	}
}
