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
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewHandler(t *testing.T) {
	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{FormatText, func(t *testing.T, out string) {
			assert.Contains(t, out, "msg=\"Execution completed\"")
			assert.Contains(t, out, "execution_id=exec-1")
		}},
		{FormatJSON, func(t *testing.T, out string) {
			var line map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &line))
			assert.Equal(t, "Execution completed", line["msg"])
			assert.Equal(t, "exec-1", line["execution_id"])
		}},
		{FormatPretty, func(t *testing.T, out string) {
			assert.Contains(t, out, "Execution completed")
			assert.Contains(t, out, "execution_id=exec-1")
			assert.NotContains(t, out, "\x1b[", "buffers are never colored")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer

			logger := slog.New(NewHandler(&buf, slog.LevelInfo, tt.format))
			logger.Debug("hidden")
			logger.Info("Execution completed", "execution_id", "exec-1")

			assert.NotContains(t, buf.String(), "hidden")
			tt.check(t, buf.String())
		})
	}
}
