package logging

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
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestErrorRecordsCarryStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "INFO").With("component", "sync")

	logger.Error("falhou", "lead_id", "L1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "falhou", rec["msg"])
	assert.Equal(t, "sync", rec["component"])
	assert.Contains(t, rec["stacktrace"], "goroutine")
}

func TestLevelFiltersRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "WARN")

	logger.Info("ignorado")
	assert.Zero(t, buf.Len())

	logger.Warn("aviso")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "stacktrace")
}
