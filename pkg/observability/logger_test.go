package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.Debug("debug message")
	assert.Zero(t, buf.Len(), "debug should be filtered at info level")

	logger.Info("info message")
	logger.Warnf("warn %d", 2)
	logger.Error("error message")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 3)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "info message", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "warn 2", entries[1]["msg"])
	assert.Equal(t, "ERROR", entries[2]["level"])
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DebugLevel, &buf)

	logger.WithField("mode", "incremental").
		WithFields(map[string]interface{}{"events": 12}).
		WithError(errors.New("boom")).
		Info("sync finished")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "incremental", entries[0]["mode"])
	assert.EqualValues(t, 12, entries[0]["events"])
	assert.Equal(t, "boom", entries[0]["error"])

	assert.Same(t, logger, logger.WithError(nil))
}

func TestLogger_Context(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))

	FromContext(ctx).Info("handled")
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["request_id"])

	assert.Empty(t, GetRequestID(context.Background()))
	assert.NotNil(t, GetLogger(context.Background()))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLogLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLogLevel(""))
	assert.Equal(t, InfoLevel, ParseLogLevel("verbose"))
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := NewCronLogger(NewLogger(DebugLevel, &buf))

	cl.Info("wake", "now", "2025-01-01", "entries", 1)
	cl.Error(errors.New("job failed"), "run", "entry", 3, "dangling")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "DEBUG", entries[0]["level"])
	assert.Equal(t, "scheduler", entries[0]["component"])
	assert.Equal(t, "2025-01-01", entries[0]["now"])
	assert.Equal(t, "ERROR", entries[1]["level"])
	assert.Equal(t, "job failed", entries[1]["error"])
	assert.EqualValues(t, 3, entries[1]["entry"])
}

func TestLogLevel_Mapping(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, DebugLevel.slogLevel())
	assert.Equal(t, slog.LevelInfo, InfoLevel.slogLevel())
	assert.Equal(t, slog.LevelWarn, WarnLevel.slogLevel())
	assert.Equal(t, slog.LevelError, ErrorLevel.slogLevel())
	assert.Equal(t, slog.LevelInfo, LogLevel(42).slogLevel())

	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "INFO", LogLevel(-1).String())
}
