package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mfulz/shellgeist/internal/configloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsReady(t *testing.T) {
	require.NotNil(t, Log)
	cfg := configloader.MustGetConfig[*Config]()
	assert.Equal(t, "warn", cfg.Level)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shellgeist.log")
	logger, err := New(Config{Level: "debug", Encoding: "json", ToFile: true, FilePath: path})
	require.NoError(t, err)

	logger.Debugw("[test] dispatched", "command", "hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"command":"hello"`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}
