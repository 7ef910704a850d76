package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/networkteam/goldsuite/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := logging.ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := logging.ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_ConsoleLevel(t *testing.T) {
	var console bytes.Buffer
	logger, closeFn, err := logging.New(logging.Options{Level: "warn", Console: &console})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("Launching browser")
	logger.Warn("History file replaced", "path", "reports/tests/TestA.json")

	out := console.String()
	assert.NotContains(t, out, "Launching browser")
	assert.Contains(t, out, "History file replaced")
	assert.Contains(t, out, "path=reports/tests/TestA.json")
}

func TestNew_FileReceivesDebug(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "harness.log")

	logger, closeFn, err := logging.New(logging.Options{Console: &console, File: file})
	require.NoError(t, err)

	logger.Debug("Recorded test", "node_id", "TestBuyGold/by_amount", "outcome", "passed")
	logger.Info("Run finished")
	require.NoError(t, closeFn())

	assert.NotContains(t, console.String(), "Recorded test")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Recorded test", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "TestBuyGold/by_amount", entry["node_id"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := logging.New(logging.Options{Level: "loud"})
	assert.Error(t, err)
}
