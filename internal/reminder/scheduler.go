// Package reminder schedules platform-level weekly reminders using
// robfig/cron. One cron entry exists per enabled task, firing at the task's
// weekday and HH:MM. The scheduler is the background scheduling collaborator
// the schedule store keeps in sync: toggling, updating or deleting a task
// must schedule or cancel its entry so no stale reminder fires.
package reminder

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

// FireFunc is invoked when a reminder entry fires. The callee is expected to
// run the normal check-then-mark dispatch path, so a reminder racing a poll
// tick still fires at most once.
type FireFunc func(task schedule.Task, day schedule.DayKey)

// Scheduler manages per-task cron entries.
type Scheduler struct {
	cron   *cron.Cron
	fire   FireFunc
	logger *logger.Logger

	mu      sync.Mutex
	started bool
	entries map[string]cron.EntryID // task id -> cron entry
}

// NewScheduler creates a reminder scheduler. fire is called on each firing.
func NewScheduler(fire FireFunc, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		fire:    fire,
		logger:  log,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins running scheduled entries. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("reminder scheduler started")
}

// Stop stops running entries. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.cron.Stop()
	s.started = false
	s.logger.Info("reminder scheduler stopped")
}

// CanBackgroundSchedule reports whether platform reminders are active.
func (s *Scheduler) CanBackgroundSchedule() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Schedule registers (or replaces) the weekly cron entry for a task.
func (s *Scheduler) Schedule(task schedule.Task, day schedule.DayKey) error {
	spec, err := specFor(task, day)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace any existing entry so a rescheduled task cannot double-fire.
	if entryID, ok := s.entries[task.ID]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, task.ID)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.fire(task, day)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	s.entries[task.ID] = entryID

	s.logger.Info("platform reminder scheduled",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "spec", Value: spec})

	return nil
}

// Cancel removes the cron entry for a task id. Unknown ids are a no-op.
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[taskID]
	if !ok {
		return nil
	}
	s.cron.Remove(entryID)
	delete(s.entries, taskID)

	s.logger.Info("platform reminder cancelled",
		logger.Field{Key: "task_id", Value: taskID})

	return nil
}

// ScheduleAll replaces all entries from a full schedule snapshot. Disabled
// tasks get no entry.
func (s *Scheduler) ScheduleAll(sched schedule.Schedule) error {
	s.mu.Lock()
	for id, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	var firstErr error
	for _, day := range schedule.Days {
		for _, task := range sched.Days[day] {
			if !task.Enabled {
				continue
			}
			if err := s.Schedule(task, day); err != nil {
				s.logger.Error("failed to schedule platform reminder", err,
					logger.Field{Key: "task_id", Value: task.ID})
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// ScheduledCount returns the number of active entries.
func (s *Scheduler) ScheduledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IsScheduled reports whether a task id has an active entry.
func (s *Scheduler) IsScheduled(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[taskID]
	return ok
}

// specFor renders the weekly cron expression "MM HH * * DOW" for a task.
func specFor(task schedule.Task, day schedule.DayKey) (string, error) {
	if err := schedule.ValidateTime(task.Time); err != nil {
		return "", err
	}
	hh := task.Time[:2]
	mm := task.Time[3:]
	return fmt.Sprintf("%s %s * * %d", mm, hh, int(day.Weekday())), nil
}
