// Package ledger records which task occurrences have already fired, enforcing
// at-most-once delivery per occurrence. Records are persisted in JSONL format
// so the foreground surface and the background worker, which share no memory,
// can check-then-mark against the same backing file. Entries are write-once;
// pruning old calendar dates bounds growth without affecting correctness
// inside the retention window.
package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

// Key derives the occurrence key for a calendar-date instance of a weekly
// task slot: "<YYYY-MM-DD>_<weekday>_<HH:MM>_<task-id>". It is unique per
// physical calendar day, so the same weekly slot never collides across weeks.
func Key(now time.Time, day schedule.DayKey, hhmm, taskID string) string {
	return fmt.Sprintf("%s_%s", BaseKey(now, day, hhmm), taskID)
}

// BaseKey is the occurrence key prefix shared by every task due in the same
// minute: "<YYYY-MM-DD>_<weekday>_<HH:MM>".
func BaseKey(now time.Time, day schedule.DayKey, hhmm string) string {
	return fmt.Sprintf("%s_%s_%s", now.Format("2006-01-02"), day, hhmm)
}

// Record is one fired occurrence as persisted on disk.
type Record struct {
	Key     string    `json:"key"`
	FiredAt time.Time `json:"fired_at"`
}

// Ledger is the persisted fired-occurrence set. Has re-reads the backing file
// on every call so two processes sharing it converge; Mark appends
// immediately, before any observable side effect, shrinking the cross-context
// race window to the gap between the two loops' reads.
type Ledger struct {
	mu       sync.Mutex
	filePath string
	logger   *logger.Logger
}

// New creates a ledger backed by the given file path.
func New(filePath string, log *logger.Logger) *Ledger {
	return &Ledger{
		filePath: filePath,
		logger:   log,
	}
}

// Path returns the backing file path.
func (l *Ledger) Path() string {
	return l.filePath
}

// Has reports whether the occurrence key is already marked fired. A read
// failure degrades to "not fired" for this tick: a duplicate fire is the
// accepted, logged failure mode, never a crashed poll loop.
func (l *Ledger) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		l.logger.Error("failed to read ledger, treating occurrence as unfired", err,
			logger.Field{Key: "key", Value: key})
		return false
	}
	_, ok := records[key]
	return ok
}

// Mark records an occurrence as fired. The record is appended to the backing
// file right away; entries are write-once, so marking an already-marked key
// is a no-op.
func (l *Ledger) Mark(key string, firedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err == nil {
		if _, ok := records[key]; ok {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(l.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	file, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger for append: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(Record{Key: key, FiredAt: firedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal ledger record: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append ledger record: %w", err)
	}

	l.logger.Debug("occurrence marked fired",
		logger.Field{Key: "key", Value: key})

	return nil
}

// Len returns the number of recorded occurrences.
func (l *Ledger) Len() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Prune drops records whose calendar date is older than retention before now,
// rewriting the file atomically. Keys inside the retention window are never
// touched, so at-most-once holds for every occurrence that could still be
// re-evaluated.
func (l *Ledger) Prune(now time.Time, retention time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-retention)
	cutoffDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.Local)
	kept := make([]Record, 0, len(records))
	removed := 0
	for key, rec := range records {
		date, ok := dateOf(key)
		if ok && date.Before(cutoffDate) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}

	if removed == 0 {
		return 0, nil
	}

	if err := l.save(kept); err != nil {
		return 0, err
	}

	l.logger.Info("pruned fired-occurrence records",
		logger.Field{Key: "removed", Value: removed},
		logger.Field{Key: "kept", Value: len(kept)})

	return removed, nil
}

// load reads the whole ledger file into a key-indexed map. A missing file is
// an empty ledger. Malformed lines are skipped, not fatal.
func (l *Ledger) load() (map[string]Record, error) {
	records := make(map[string]Record)

	file, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			l.logger.Error("failed to unmarshal ledger line", err,
				logger.Field{Key: "file", Value: l.filePath},
				logger.Field{Key: "line", Value: lineNum})
			continue
		}
		records[rec.Key] = rec
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// save rewrites the ledger file atomically via a temp file and rename.
func (l *Ledger) save(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(l.filePath), 0755); err != nil {
		return err
	}

	tmpPath := l.filePath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			return err
		}
	}

	if err := file.Sync(); err != nil {
		return err
	}

	return os.Rename(tmpPath, l.filePath)
}

// dateOf extracts the calendar date encoded in an occurrence key prefix.
func dateOf(key string) (time.Time, bool) {
	idx := strings.Index(key, "_")
	if idx != len("2006-01-02") {
		return time.Time{}, false
	}
	date, err := time.ParseInLocation("2006-01-02", key[:idx], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
