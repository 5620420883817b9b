package alarm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Presence reports whether the interactive surface is currently running.
// The background dispatcher consults it to choose between handing an alarm
// off for in-app presentation or escalating to the default ringtone.
type Presence interface {
	IsVisible() bool
}

// StaticPresence is a fixed Presence answer, useful for single-context
// deployments and tests.
type StaticPresence bool

func (p StaticPresence) IsVisible() bool { return bool(p) }

const markerFilename = "foreground.pid"

// Marker is a pid file the foreground surface holds while it runs. A
// background worker in another process probes it to decide visibility.
type Marker struct {
	path string
}

// NewMarker returns a marker stored inside the workspace directory.
func NewMarker(workspace string) *Marker {
	return &Marker{path: filepath.Join(workspace, markerFilename)}
}

// Acquire records the current process id. An existing marker is overwritten;
// a stale file from a crashed surface must not block the next one.
func (m *Marker) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(m.path, []byte(pid), 0o644); err != nil {
		return fmt.Errorf("failed to write presence marker: %w", err)
	}
	return nil
}

// Release removes the marker. Missing file is not an error.
func (m *Marker) Release() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove presence marker: %w", err)
	}
	return nil
}

// IsVisible reports whether the recorded process is still alive. Signal 0
// performs the liveness probe without delivering anything.
func (m *Marker) IsVisible() bool {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
