package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, log.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, log.InfoLevel, ParseLevel(""))
	assert.Equal(t, log.InfoLevel, ParseLevel("loud"))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "assertify.log")
	l := New(Config{Level: "debug", File: path}, false)

	Component(l, "migration").Info("migrated", "items", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "migrated")
	assert.Contains(t, string(data), "component=migration")
	assert.Contains(t, string(data), "items=3")
}

func TestNewWithoutOutputs(t *testing.T) {
	l := New(Config{}, false)
	l.Info("dropped")
	assert.Equal(t, log.InfoLevel, l.GetLevel())
}

func TestComponentNilLogger(t *testing.T) {
	assert.NotNil(t, Component(nil, "x"))
}
