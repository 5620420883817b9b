package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/vk3336/VK7Days/internal/logger"
)

// Storage persists schedule snapshots as a single JSON document. Writes are
// atomic (temp file plus rename) so a concurrent reader in the other
// execution context never observes a torn snapshot.
type Storage struct {
	filePath string
	logger   *logger.Logger
}

// NewStorage creates a schedule storage backed by the given file path.
func NewStorage(filePath string, log *logger.Logger) *Storage {
	return &Storage{
		filePath: filePath,
		logger:   log,
	}
}

// Path returns the backing file path.
func (s *Storage) Path() string {
	return s.filePath
}

// Load reads the persisted schedule snapshot. A missing file yields the
// default empty-per-day schedule; so does an unreadable or corrupt one, since
// the poll loops must keep running on a best-effort snapshot.
func (s *Storage) Load() Schedule {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("failed to read schedule file", err,
				logger.Field{Key: "file", Value: s.filePath})
		}
		return Default()
	}

	var sched Schedule
	if err := json.Unmarshal(data, &sched); err != nil {
		s.logger.Error("failed to parse schedule file, falling back to empty schedule", err,
			logger.Field{Key: "file", Value: s.filePath})
		return Default()
	}

	sched.normalize()
	return sched
}

// Save writes the full schedule snapshot atomically.
func (s *Storage) Save(sched Schedule) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		s.logger.Error("failed to create schedule directory", err,
			logger.Field{Key: "dir", Value: filepath.Dir(s.filePath)})
		return err
	}

	data, err := json.MarshalIndent(sched, "", "  ")
	if err != nil {
		s.logger.Error("failed to marshal schedule", err)
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		s.logger.Error("failed to write temporary schedule file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary schedule file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		return err
	}

	s.logger.Debug("schedule saved",
		logger.Field{Key: "file", Value: s.filePath},
		logger.Field{Key: "tasks", Value: sched.TaskCount()})

	return nil
}

// Reset removes the persisted snapshot entirely.
func (s *Storage) Reset() error {
	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
