package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workclock-backend/internal/platform/config"
)

func TestNew_ReleaseWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, "release", config.LogConfig{Level: "info"})

	l.Info("started", "addr", ":8000")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "started", line["msg"])
	assert.Equal(t, ":8000", line["addr"])
}

func TestNew_DevWritesText(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, "dev", config.LogConfig{Level: "debug"})

	l.Debug("resolving", "lat", 1.5)

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=DEBUG"), out)
	assert.Contains(t, out, "msg=resolving")
	assert.Contains(t, out, "lat=1.5")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warn "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("whatever"))
}
