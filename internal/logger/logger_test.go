package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meysam81/go-bus/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "busctl.log")
	logger, err := NewLogger(&config.LoggingConfig{
		Level:          zapcore.InfoLevel,
		Format:         "json",
		OutputPath:     path,
		DisableConsole: true,
	})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("started", zap.String("provider", "github"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "started", entry["msg"])
	assert.Equal(t, "github", entry["provider"])
}

func TestNewLogger_TruncatesWithoutAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busctl.log")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0o600))

	logger, err := NewLogger(&config.LoggingConfig{
		Level:          zapcore.InfoLevel,
		Format:         "console",
		OutputPath:     path,
		DisableConsole: true,
	})
	require.NoError(t, err)
	logger.Warn("fresh")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "old line")
	assert.Contains(t, string(data), "fresh")
}

func TestInitLogger(t *testing.T) {
	t.Cleanup(func() { globalLogger = zap.NewNop() })

	require.NoError(t, InitLogger(&config.LoggingConfig{Level: zapcore.WarnLevel, Format: "console"}))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, GetLogger().Core().Enabled(zapcore.WarnLevel))
}
