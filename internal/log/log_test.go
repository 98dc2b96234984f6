package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewTextHandler(t *testing.T) {
	t.Setenv("GO_ENV", "")
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("all points lost", "frame", 12)
	assert.Contains(t, buf.String(), "all points lost")
	assert.Contains(t, buf.String(), "frame=12")
}

func TestNewJSONHandler(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	var buf bytes.Buffer
	logger := New(&buf, "debug")

	logger.Debug("seeded", "points", 42)
	record := map[string]any{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "seeded", record["msg"])
	assert.Equal(t, float64(42), record["points"])
}
