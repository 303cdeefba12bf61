package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandler(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "pretty")

	log.With("component", "monitor").WithGroup("session").Info("token refreshed", "user_id", "u1")

	out := buf.String()
	assert.Contains(t, out, "token refreshed")
	assert.Contains(t, out, "component")
	assert.NotContains(t, out, "session.component")
	assert.Contains(t, out, "session.user_id")
	assert.Contains(t, out, "=u1")
}

func TestPrettyHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "pretty")

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestPrettyHandlerGroupAttr(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "pretty")

	log.Info("request", slog.Group("http", "method", "GET", "status", 200))

	assert.Contains(t, buf.String(), "http.method")
	assert.Contains(t, buf.String(), "http.status")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("started", "port", "8080")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "started", entry["msg"])
	assert.Equal(t, "8080", entry["port"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestPrettyHandlerValueFormatting(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info", "pretty")

	log.Error("refresh failed", "error", errors.New("token expired"), "reason", "two words", "elapsed", 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, `"two words"`)
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "\033[31mtoken expired")
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
