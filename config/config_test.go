package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtPathDefaults(t *testing.T) {
	c, err := NewAtPath("/tmp/config.yml")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sonlib", c.System.RootDirectory)
	assert.Equal(t, "/var/log/sonlib", c.System.LogDirectory)
	assert.Equal(t, 500, c.Scratch.FilesPerDirectory)
	assert.Equal(t, 3, c.Scratch.Levels)
	assert.True(t, c.Scratch.ActivityJournal)
	assert.False(t, c.Debug)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	content := `debug: true
system:
  root_directory: /srv/sonlib
scratch:
  files_per_directory: 32
  levels: 2
`
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	require.NoError(t, FromFile(p))

	c := Get()
	assert.True(t, c.Debug)
	assert.Equal(t, "/srv/sonlib", c.System.RootDirectory)
	// Unset keys keep their defaults.
	assert.Equal(t, "/var/log/sonlib", c.System.LogDirectory)
	assert.Equal(t, 32, c.Scratch.FilesPerDirectory)
	assert.Equal(t, 2, c.Scratch.Levels)
	assert.Equal(t, p, c.GetPath())
}

func TestScratchPath(t *testing.T) {
	c, err := NewAtPath("/tmp/config.yml")
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sonlib/scratch", c.ScratchPath())

	c.Scratch.Directory = "/scratch"
	assert.Equal(t, "/scratch", c.ScratchPath())
}

func TestWriteToDisk(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "config.yml")

	c, err := NewAtPath(p)
	require.NoError(t, err)
	c.Scratch.Levels = 4

	require.NoError(t, WriteToDisk(c))
	require.NoError(t, FromFile(p))
	assert.Equal(t, 4, Get().Scratch.Levels)
}
