package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "json")

	slog.Info("dropped")
	WithComponent("indexer").Warn("kept", "docs", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["msg"])
	assert.Equal(t, "indexer", line["component"])
	assert.EqualValues(t, 3, line["docs"])
}

func TestFromContextCarriesRequestID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "text")

	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))
	FromContext(ctx).Info("search completed")
	assert.Contains(t, buf.String(), "request_id=req-42")

	assert.Equal(t, "", RequestID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestDurationsAreReadable(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "JSON")
	slog.Info("index built", "elapsed", 1500*time.Microsecond)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "1.5ms", line["elapsed"])
	assert.NotContains(t, line, "source")
}

func TestDebugAddsSource(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")
	slog.Debug("probe")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Contains(t, line, "source")
}
