package schedule

// Settings holds presentation preferences persisted with the schedule.
type Settings struct {
	ShowSunday bool `json:"showSunday"`
}

// Schedule is one full snapshot of the weekly task schedule plus the
// presentation state persisted with it. All seven days are always present,
// possibly with empty lists.
type Schedule struct {
	ActiveDay DayKey            `json:"activeDay"`
	Settings  Settings          `json:"settings"`
	Days      map[DayKey][]Task `json:"schedule"`
}

// Default returns the first-run schedule: all seven days present and empty.
func Default() Schedule {
	days := make(map[DayKey][]Task, len(Days))
	for _, d := range Days {
		days[d] = []Task{}
	}
	return Schedule{
		ActiveDay: Monday,
		Settings:  Settings{ShowSunday: true},
		Days:      days,
	}
}

// Clone returns a deep copy of the schedule. Callers receive copies so no
// reader can observe a mutation mid-write.
func (s Schedule) Clone() Schedule {
	out := s
	out.Days = make(map[DayKey][]Task, len(s.Days))
	for day, tasks := range s.Days {
		list := make([]Task, len(tasks))
		copy(list, tasks)
		out.Days[day] = list
	}
	return out
}

// normalize fills in missing days and defaults added after older snapshots
// were written, so loading an old snapshot never drops a day.
func (s *Schedule) normalize() {
	if s.Days == nil {
		s.Days = make(map[DayKey][]Task, len(Days))
	}
	for _, d := range Days {
		if s.Days[d] == nil {
			s.Days[d] = []Task{}
		}
	}
	if s.ActiveDay == "" {
		s.ActiveDay = Monday
	}
	for day, tasks := range s.Days {
		sortByTime(tasks)
		s.Days[day] = tasks
	}
}

// TaskCount returns the total number of tasks across all days.
func (s Schedule) TaskCount() int {
	n := 0
	for _, tasks := range s.Days {
		n += len(tasks)
	}
	return n
}

// EnabledIndex returns the enabled tasks keyed by id, the wholesale alarm
// set a peer context replaces its cache with.
func (s Schedule) EnabledIndex() map[string]Task {
	index := make(map[string]Task)
	for _, tasks := range s.Days {
		for _, t := range tasks {
			if t.Enabled {
				index[t.ID] = t
			}
		}
	}
	return index
}

// Find locates a task by id, returning the task and its day.
func (s Schedule) Find(taskID string) (Task, DayKey, bool) {
	for _, day := range Days {
		for _, t := range s.Days[day] {
			if t.ID == taskID {
				return t, day, true
			}
		}
	}
	return Task{}, "", false
}
