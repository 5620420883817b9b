package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "debug", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "fired.jsonl"), testLogger(t))
}

func mondayAt(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", "2026-01-05 "+hhmm, time.Local)
	require.NoError(t, err)
	require.Equal(t, time.Monday, parsed.Weekday())
	return parsed
}

func TestKeyFormat(t *testing.T) {
	now := mondayAt(t, "07:00")

	key := Key(now, schedule.Monday, "07:00", "task-1")

	assert.Equal(t, "2026-01-05_monday_07:00_task-1", key)
	assert.Equal(t, "2026-01-05_monday_07:00", BaseKey(now, schedule.Monday, "07:00"))
}

func TestKeyDistinctAcrossWeeks(t *testing.T) {
	thisWeek := mondayAt(t, "07:00")
	nextWeek := thisWeek.AddDate(0, 0, 7)

	assert.NotEqual(t,
		Key(thisWeek, schedule.Monday, "07:00", "t1"),
		Key(nextWeek, schedule.Monday, "07:00", "t1"))
}

func TestLedger_HasAndMark(t *testing.T) {
	led := newTestLedger(t)
	now := mondayAt(t, "07:00")
	key := Key(now, schedule.Monday, "07:00", "t1")

	assert.False(t, led.Has(key))
	require.NoError(t, led.Mark(key, now))
	assert.True(t, led.Has(key))

	// Marking again is a no-op, not a duplicate record.
	require.NoError(t, led.Mark(key, now))
	count, err := led.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLedger_TwoInstancesShareBackingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fired.jsonl")
	log := testLogger(t)
	a := New(path, log)
	b := New(path, log)

	now := mondayAt(t, "07:00")
	key := Key(now, schedule.Monday, "07:00", "t1")

	require.NoError(t, a.Mark(key, now))
	assert.True(t, b.Has(key))
}

func TestLedger_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fired.jsonl")
	log := testLogger(t)
	led := New(path, log)
	now := mondayAt(t, "07:00")
	key := Key(now, schedule.Monday, "07:00", "t1")
	require.NoError(t, led.Mark(key, now))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("garbage line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	assert.True(t, led.Has(key))
	count, err := led.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLedger_PruneDropsExpiredDates(t *testing.T) {
	led := newTestLedger(t)
	now := mondayAt(t, "12:00")
	retention := 48 * time.Hour

	old := now.AddDate(0, 0, -7)
	fresh := now.AddDate(0, 0, -1)
	oldKey := Key(old, schedule.DayKeyFor(old), "07:00", "t1")
	freshKey := Key(fresh, schedule.DayKeyFor(fresh), "07:00", "t1")
	todayKey := Key(now, schedule.Monday, "12:00", "t2")

	require.NoError(t, led.Mark(oldKey, old))
	require.NoError(t, led.Mark(freshKey, fresh))
	require.NoError(t, led.Mark(todayKey, now))

	removed, err := led.Prune(now, retention)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.False(t, led.Has(oldKey))
	assert.True(t, led.Has(freshKey))
	assert.True(t, led.Has(todayKey))
}

func TestLedger_PruneEmptyIsNoop(t *testing.T) {
	led := newTestLedger(t)

	removed, err := led.Prune(mondayAt(t, "12:00"), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestLedger_PruneKeepsUnparseableKeys(t *testing.T) {
	led := newTestLedger(t)
	now := mondayAt(t, "12:00")

	require.NoError(t, led.Mark("legacy-key-without-date", now))

	removed, err := led.Prune(now, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.True(t, led.Has("legacy-key-without-date"))
}
