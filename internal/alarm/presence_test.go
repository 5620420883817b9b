package alarm

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarker_AcquireRelease(t *testing.T) {
	m := NewMarker(t.TempDir())

	assert.False(t, m.IsVisible())

	require.NoError(t, m.Acquire())
	assert.True(t, m.IsVisible())

	require.NoError(t, m.Release())
	assert.False(t, m.IsVisible())

	// Releasing again is not an error.
	require.NoError(t, m.Release())
}

func TestMarker_StalePidIsNotVisible(t *testing.T) {
	dir := t.TempDir()
	m := NewMarker(dir)

	// A pid far beyond pid_max never names a live process.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foreground.pid"), []byte("4194399"), 0o644))
	assert.False(t, m.IsVisible())
}

func TestMarker_GarbageContentIsNotVisible(t *testing.T) {
	dir := t.TempDir()
	m := NewMarker(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foreground.pid"), []byte("not-a-pid"), 0o644))
	assert.False(t, m.IsVisible())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foreground.pid"), []byte("-5"), 0o644))
	assert.False(t, m.IsVisible())
}

func TestMarker_AcquireOverwritesStaleMarker(t *testing.T) {
	dir := t.TempDir()
	m := NewMarker(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foreground.pid"), []byte("4194399"), 0o644))
	require.NoError(t, m.Acquire())

	data, err := os.ReadFile(filepath.Join(dir, "foreground.pid"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
	assert.True(t, m.IsVisible())
}

func TestMarker_CreatesWorkspaceDirectory(t *testing.T) {
	m := NewMarker(filepath.Join(t.TempDir(), "nested", "workspace"))
	require.NoError(t, m.Acquire())
	assert.True(t, m.IsVisible())
}

func TestStaticPresence(t *testing.T) {
	assert.True(t, StaticPresence(true).IsVisible())
	assert.False(t, StaticPresence(false).IsVisible())
}
