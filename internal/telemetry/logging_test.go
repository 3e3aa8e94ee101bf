package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Mosaic/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		level slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"WARN", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"ERROR", slog.LevelError, true},
		{"", slog.LevelInfo, true},
		{" info ", slog.LevelInfo, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			level, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.level, level)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "INFO", Writer: &buf})

	WithWorkerID(logger, "worker-1a2b3c4d").Info("region processed", "quarter", "top_left")
	logger.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "region processed", rec["msg"])
	assert.Equal(t, "worker-1a2b3c4d", rec["worker_id"])
	assert.Equal(t, "top_left", rec["quarter"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "text", Writer: &buf})

	WithComponent(logger, "collector").Warn("malformed result")
	assert.Contains(t, buf.String(), "component=collector")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestWithRegion(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Writer: &buf})

	r := domain.Region{
		Quarter:      domain.QuarterTopRight,
		TopLeft:      domain.Point{X: 400},
		BottomRight:  domain.Point{X: 800, Y: 300},
		CanvasWidth:  800,
		CanvasHeight: 600,
	}
	WithRegion(logger, r).Info("evaluated")

	var rec struct {
		Region map[string]string `json:"region"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, domain.QuarterTopRight, rec.Region["quarter"])
	assert.Equal(t, r.String(), rec.Region["rect"])
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(t.Context(), slog.LevelError))
}
