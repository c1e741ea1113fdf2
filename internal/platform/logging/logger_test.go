package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLog(t *testing.T) {
	assert.Equal(t, "[LLM] ready", FormatLog("LLM", "ready"))
	assert.Equal(t, "[HTTP] already", FormatLog("LLM", "[HTTP] already"))
	assert.Equal(t, "plain", FormatLog("", " plain "))
}

func TestLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "debug", Dir: dir, Filename: "test.log"})
	require.NoError(t, err)

	logger.InfoTag("EXCHANGE", "hop %d finished", 2)
	logger.DebugFields("structured 100%", map[string]interface{}{"user": "u1"})
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "[EXCHANGE] hop 2 finished")
	assert.Contains(t, content, `"user":"u1"`)
	assert.Contains(t, content, "structured 100%")
}

func TestLoggerRespectsLevel(t *testing.T) {
	dir := t.TempDir()
	logger, err := New(Config{Level: "warn", Dir: dir, Filename: "level.log"})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "level.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	assert.NotPanics(t, func() {
		logger.InfoTag("LLM", "nothing")
		logger.Error("nothing")
		_ = logger.Close()
	})
}

func TestConsoleHandlerTagColor(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{writer: &buf, level: slog.LevelInfo}

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "[HTTP] GET /api -> 200", 0)
	rec.AddAttrs(slog.Int("bytes", 12))
	require.NoError(t, h.Handle(context.Background(), rec))

	line := buf.String()
	assert.True(t, strings.Contains(line, tagColors["[HTTP]"]))
	assert.Contains(t, line, "bytes=12")
}
