package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayd.log")
	config := DefaultConfig()
	config.FilePath = path

	logger, err := New(config)
	require.NoError(t, err)
	logger.Info("transaction sent")
	logger.Debug("not written")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"transaction sent"`)
	assert.NotContains(t, string(data), "not written")
}
