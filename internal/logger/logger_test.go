package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "logging:\n  level: DEBUG\n  console_format: json\n  file_max_backups: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("LOG_FILE_ENABLED", "true")
	t.Setenv("LOG_FILE_PATH", "/tmp/x.log")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Level)
	assert.Equal(t, "json", cfg.ConsoleFormat)
	assert.Equal(t, 2, cfg.FileMaxBackups)
	assert.Equal(t, 10, cfg.FileMaxSizeMB, "unset keys keep defaults")
	assert.True(t, cfg.ConsoleEnabled)
	assert.True(t, cfg.FileEnabled)
	assert.Equal(t, "/tmp/x.log", cfg.FilePath)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestInitializeWritesFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConsoleEnabled = false
	cfg.FileEnabled = true
	cfg.FilePath = filepath.Join(t.TempDir(), "out.log")

	_, closer, err := Initialize(cfg)
	require.NoError(t, err)
	Info("crossword generated", "words", 3)
	Debug("hidden at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"crossword generated"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestInitializeUnknownLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "LOUD"
	_, _, err := Initialize(cfg)
	assert.Error(t, err)
}
