package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestFileSinkReceivesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flightdesk.log")

	log, err := New(Config{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	log.Named("test").Info("hello", String("key", "value"), Int("n", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"logger":"test"`)
	assert.Contains(t, string(data), `"key":"value"`)
}
