package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLogger_LevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	l.Debug("hidden", nil)
	l.Info("routed", map[string]interface{}{"model": "gpt-5-nano", "provider": "openai"})
	l.Error("failed", errors.New("boom"), nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=routed")
	assert.Contains(t, out, "model=gpt-5-nano")
	assert.Contains(t, out, "provider=openai")
	assert.Contains(t, out, "error=boom")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(""))
}
