package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, err := ParseDay("monday")
	require.NoError(t, err)
	assert.Equal(t, Monday, day)

	day, err = ParseDay("  SUNDAY ")
	require.NoError(t, err)
	assert.Equal(t, Sunday, day)

	_, err = ParseDay("someday")
	assert.Error(t, err)

	_, err = ParseDay("")
	assert.Error(t, err)
}

func TestDayKeyFor(t *testing.T) {
	// 2026-01-05 is a Monday.
	monday := time.Date(2026, 1, 5, 12, 0, 0, 0, time.Local)
	assert.Equal(t, Monday, DayKeyFor(monday))
	assert.Equal(t, Tuesday, DayKeyFor(monday.AddDate(0, 0, 1)))
	assert.Equal(t, Sunday, DayKeyFor(monday.AddDate(0, 0, 6)))
}

func TestDayKeyWeekdayRoundtrip(t *testing.T) {
	for _, day := range Days {
		assert.Equal(t, day, dayByWeekday[day.Weekday()])
	}
}

func TestValidateTime(t *testing.T) {
	assert.NoError(t, ValidateTime("00:00"))
	assert.NoError(t, ValidateTime("07:05"))
	assert.NoError(t, ValidateTime("23:59"))

	assert.Error(t, ValidateTime("24:00"))
	assert.Error(t, ValidateTime("7:05pm"))
	assert.Error(t, ValidateTime("07:05:30"))
	assert.Error(t, ValidateTime(""))
}

func TestTaskValidate(t *testing.T) {
	valid := Task{ID: "t1", Title: "Morning run", Time: "07:00"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, Task{Title: "x", Time: "07:00"}.Validate())
	assert.Error(t, Task{ID: "t1", Title: "   ", Time: "07:00"}.Validate())
	assert.Error(t, Task{ID: "t1", Title: "x", Time: "25:00"}.Validate())
}

func TestTaskMatches(t *testing.T) {
	task := Task{ID: "t1", Title: "Morning Run", Time: "07:00", Notes: "bring water"}

	assert.True(t, task.Matches("morning"))
	assert.True(t, task.Matches("WATER"))
	assert.True(t, task.Matches("07:00"))
	assert.True(t, task.Matches(""))
	assert.False(t, task.Matches("evening"))
}

func TestDayLabel(t *testing.T) {
	assert.Equal(t, "Mon", Monday.Label())
	assert.Equal(t, "Sun", Sunday.Label())
}

func TestEnabledIndex(t *testing.T) {
	sched := Default()
	sched.Days[Monday] = []Task{
		{ID: "t1", Title: "Run", Time: "07:00", Enabled: true},
		{ID: "t2", Title: "Pills", Time: "08:00", Enabled: false},
	}
	sched.Days[Friday] = []Task{
		{ID: "t3", Title: "Call", Time: "18:00", Enabled: true},
	}

	index := sched.EnabledIndex()

	assert.Len(t, index, 2)
	assert.Equal(t, "07:00", index["t1"].Time)
	assert.Equal(t, "18:00", index["t3"].Time)
	_, ok := index["t2"]
	assert.False(t, ok)
}
