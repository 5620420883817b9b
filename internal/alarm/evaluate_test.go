package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

type memFired map[string]bool

func (m memFired) Has(key string) bool { return m[key] }

func (m memFired) Mark(key string, _ time.Time) error {
	m[key] = true
	return nil
}

// mondayAt returns a local time on Monday 2026-01-05 at the given clock time.
func mondayAt(t *testing.T, hhmm string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02 15:04", "2026-01-05 "+hhmm, time.Local)
	require.NoError(t, err)
	require.Equal(t, time.Monday, parsed.Weekday())
	return parsed
}

func scheduleWith(day schedule.DayKey, tasks ...schedule.Task) schedule.Schedule {
	sched := schedule.Default()
	sched.Days[day] = tasks
	return sched
}

func TestEvaluate_FiresDueTask(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true}
	sched := scheduleWith(schedule.Monday, task)
	now := mondayAt(t, "07:00")

	due := Evaluate(sched, memFired{}, now)

	require.Len(t, due, 1)
	assert.Equal(t, "t1", due[0].Task.ID)
	assert.Equal(t, schedule.Monday, due[0].Day)
}

func TestEvaluate_SkipsDisabledTask(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: false}
	sched := scheduleWith(schedule.Monday, task)

	due := Evaluate(sched, memFired{}, mondayAt(t, "07:00"))

	assert.Empty(t, due)
}

func TestEvaluate_SkipsOtherMinutes(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true}
	sched := scheduleWith(schedule.Monday, task)

	// One minute late: the occurrence is not backfilled.
	assert.Empty(t, Evaluate(sched, memFired{}, mondayAt(t, "07:01")))
	assert.Empty(t, Evaluate(sched, memFired{}, mondayAt(t, "06:59")))
}

func TestEvaluate_SkipsOtherDays(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Standup", Time: "09:30", Enabled: true}
	sched := scheduleWith(schedule.Tuesday, task)

	due := Evaluate(sched, memFired{}, mondayAt(t, "09:30"))

	assert.Empty(t, due)
}

func TestEvaluate_SkipsAlreadyFired(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true}
	sched := scheduleWith(schedule.Monday, task)
	now := mondayAt(t, "07:00")

	fired := memFired{}
	fired[ledger.Key(now, schedule.Monday, "07:00", "t1")] = true

	assert.Empty(t, Evaluate(sched, fired, now))
}

func TestEvaluate_SameSlotNextWeekIsDueAgain(t *testing.T) {
	task := schedule.Task{ID: "t1", Title: "Morning run", Time: "07:00", Enabled: true}
	sched := scheduleWith(schedule.Monday, task)
	thisWeek := mondayAt(t, "07:00")
	nextWeek := thisWeek.AddDate(0, 0, 7)

	fired := memFired{}
	fired[ledger.Key(thisWeek, schedule.Monday, "07:00", "t1")] = true

	due := Evaluate(sched, fired, nextWeek)

	require.Len(t, due, 1)
	assert.Equal(t, "t1", due[0].Task.ID)
}

func TestEvaluate_MultipleTasksSameMinute(t *testing.T) {
	sched := scheduleWith(schedule.Monday,
		schedule.Task{ID: "t1", Title: "Pills", Time: "08:00", Enabled: true},
		schedule.Task{ID: "t2", Title: "Water plants", Time: "08:00", Enabled: true},
		schedule.Task{ID: "t3", Title: "Lunch", Time: "12:00", Enabled: true},
	)

	due := Evaluate(sched, memFired{}, mondayAt(t, "08:00"))

	require.Len(t, due, 2)
	ids := []string{due[0].Task.ID, due[1].Task.ID}
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids)
}
