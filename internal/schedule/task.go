// Package schedule holds the weekly task schedule: the Task model, the
// seven-day Schedule snapshot, its persisted storage, and the Store exposing
// CRUD mutations. The Store is the single source of truth for the schedule;
// both the foreground surface and the background worker read it (directly or
// through its persisted snapshot) to decide which tasks are due.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DayKey identifies one of the seven weekdays.
type DayKey string

const (
	Monday    DayKey = "monday"
	Tuesday   DayKey = "tuesday"
	Wednesday DayKey = "wednesday"
	Thursday  DayKey = "thursday"
	Friday    DayKey = "friday"
	Saturday  DayKey = "saturday"
	Sunday    DayKey = "sunday"
)

// Days lists the weekday keys in presentation order (Monday first).
var Days = []DayKey{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// dayByWeekday maps time.Weekday to the schedule day key.
var dayByWeekday = map[time.Weekday]DayKey{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// DayKeyFor returns the day key of the given wall-clock time (local weekday).
func DayKeyFor(t time.Time) DayKey {
	return dayByWeekday[t.Weekday()]
}

// ParseDay parses a weekday key, case-insensitive.
func ParseDay(s string) (DayKey, error) {
	key := DayKey(strings.ToLower(strings.TrimSpace(s)))
	for _, d := range Days {
		if d == key {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid day: %q (expected monday..sunday)", s)
}

// Weekday returns the time.Weekday for a day key.
func (d DayKey) Weekday() time.Weekday {
	for wd, key := range dayByWeekday {
		if key == d {
			return wd
		}
	}
	return time.Monday
}

// Label returns a short display label for the day.
func (d DayKey) Label() string {
	if len(d) < 3 {
		return string(d)
	}
	return strings.ToUpper(string(d[0])) + string(d[1:3])
}

// Task is one scheduled weekly reminder. (Day, Time, ID) uniquely identifies
// a schedulable occurrence template; multiple tasks may share a day and time.
type Task struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Time           string `json:"time"` // HH:MM, 24-hour, minute resolution
	Notes          string `json:"notes,omitempty"`
	Enabled        bool   `json:"enabled"`
	HasCustomVoice bool   `json:"hasCustomVoice"`
}

// ValidateTime checks that a time string is HH:MM, 24-hour, minute resolution.
func ValidateTime(hhmm string) error {
	if _, err := time.Parse("15:04", hhmm); err != nil {
		return fmt.Errorf("invalid time %q (expected HH:MM, 24-hour): %w", hhmm, err)
	}
	return nil
}

// Validate checks the task fields.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required")
	}
	return ValidateTime(t.Time)
}

// Matches reports whether the task matches a search query over its title,
// notes and time.
func (t Task) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	hay := strings.ToLower(t.Title + " " + t.Notes + " " + t.Time)
	return strings.Contains(hay, q)
}

// sortByTime orders tasks by their HH:MM ascending. Presentation order only;
// firing correctness never depends on it.
func sortByTime(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Time < tasks[j].Time
	})
}
