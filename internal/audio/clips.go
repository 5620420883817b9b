// Package audio provides the recorded-clip storage collaborator and the
// looping playback surface used when an alarm fires. A single audio channel
// is active at a time; starting a new loop tears down the previous one.
package audio

import (
	"os"
	"path/filepath"
	"strings"
)

// Clip references one playable audio file.
type Clip struct {
	Path string
}

// ClipStore resolves a task id to its recorded voice clip, if any.
type ClipStore interface {
	GetClip(taskID string) (Clip, bool)
}

// clipExtensions are the recording formats looked up, in preference order.
var clipExtensions = []string{".webm", ".ogg", ".mp3", ".wav"}

// DirStore is a ClipStore over a flat directory of files named by task id.
type DirStore struct {
	dir string
}

// NewDirStore creates a clip store over the given directory.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// GetClip looks up a recording for the task id. Ids containing path
// separators are rejected outright.
func (s *DirStore) GetClip(taskID string) (Clip, bool) {
	if taskID == "" || strings.ContainsAny(taskID, "/\\") || strings.Contains(taskID, "..") {
		return Clip{}, false
	}

	for _, ext := range clipExtensions {
		path := filepath.Join(s.dir, taskID+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Clip{Path: path}, true
		}
	}
	return Clip{}, false
}
