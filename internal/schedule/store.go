package schedule

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vk3336/VK7Days/internal/logger"
)

// ReminderSync is the background scheduling collaborator kept in sync with
// schedule mutations: enabling a task schedules a platform reminder, while
// disabling, deleting or replacing it cancels the stale one so nothing fires
// for a task that no longer exists in that form.
type ReminderSync interface {
	Schedule(task Task, day DayKey) error
	Cancel(taskID string) error
}

// Store owns the weekly schedule. All mutations go through it, every mutation
// persists a full snapshot, and reads return deep copies.
type Store struct {
	mu        sync.RWMutex
	sched     Schedule
	storage   *Storage
	reminders ReminderSync
	logger    *logger.Logger
}

// NewStore loads the persisted snapshot and wraps it in a store.
func NewStore(storage *Storage, log *logger.Logger) *Store {
	return &Store{
		sched:   storage.Load(),
		storage: storage,
		logger:  log,
	}
}

// SetReminderSync attaches the background scheduling collaborator. May be nil
// when the platform cannot schedule reminders.
func (s *Store) SetReminderSync(r ReminderSync) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = r
}

// Reload replaces the in-memory schedule with the persisted snapshot and
// returns a copy. Called when a peer process signals it changed the schedule
// on disk.
func (s *Store) Reload() Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched = s.storage.Load()
	return s.sched.Clone()
}

// Snapshot returns a deep copy of the current schedule.
func (s *Store) Snapshot() Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sched.Clone()
}

// TasksFor returns a copy of the task list for one day.
func (s *Store) TasksFor(day DayKey) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]Task, len(s.sched.Days[day]))
	copy(tasks, s.sched.Days[day])
	return tasks
}

// AddTask inserts a new task into the given day, assigning it a fresh id,
// and re-sorts the day by time. Returns the stored task.
func (s *Store) AddTask(day DayKey, task Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = uuid.NewString()
	if err := task.Validate(); err != nil {
		return Task{}, err
	}

	list := append(s.sched.Days[day], task)
	sortByTime(list)
	s.sched.Days[day] = list

	if err := s.persist(); err != nil {
		return Task{}, err
	}

	if s.reminders != nil && task.Enabled {
		if err := s.reminders.Schedule(task, day); err != nil {
			s.logger.Error("failed to schedule platform reminder", err,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}

	s.logger.Info("task added",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "day", Value: day},
		logger.Field{Key: "time", Value: task.Time})

	return task, nil
}

// UpdateTask replaces a task by id within its day and re-sorts.
func (s *Store) UpdateTask(day DayKey, updated Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := updated.Validate(); err != nil {
		return err
	}

	list := s.sched.Days[day]
	found := false
	for i, t := range list {
		if t.ID == updated.ID {
			list[i] = updated
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("task not found: %s", updated.ID)
	}
	sortByTime(list)
	s.sched.Days[day] = list

	if err := s.persist(); err != nil {
		return err
	}

	if s.reminders != nil {
		// Cancel first so a changed time or disabled task cannot fire stale.
		if err := s.reminders.Cancel(updated.ID); err != nil {
			s.logger.Error("failed to cancel platform reminder", err,
				logger.Field{Key: "task_id", Value: updated.ID})
		}
		if updated.Enabled {
			if err := s.reminders.Schedule(updated, day); err != nil {
				s.logger.Error("failed to schedule platform reminder", err,
					logger.Field{Key: "task_id", Value: updated.ID})
			}
		}
	}

	s.logger.Info("task updated",
		logger.Field{Key: "task_id", Value: updated.ID},
		logger.Field{Key: "day", Value: day})

	return nil
}

// ToggleTask flips the enabled flag of a task by id. Returns the new state.
func (s *Store) ToggleTask(taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, day, ok := s.findLocked(taskID)
	if !ok {
		return false, fmt.Errorf("task not found: %s", taskID)
	}

	task.Enabled = !task.Enabled
	list := s.sched.Days[day]
	for i, t := range list {
		if t.ID == taskID {
			list[i] = task
			break
		}
	}

	if err := s.persist(); err != nil {
		return false, err
	}

	if s.reminders != nil {
		if task.Enabled {
			if err := s.reminders.Schedule(task, day); err != nil {
				s.logger.Error("failed to schedule platform reminder", err,
					logger.Field{Key: "task_id", Value: taskID})
			}
		} else {
			if err := s.reminders.Cancel(taskID); err != nil {
				s.logger.Error("failed to cancel platform reminder", err,
					logger.Field{Key: "task_id", Value: taskID})
			}
		}
	}

	s.logger.Info("task toggled",
		logger.Field{Key: "task_id", Value: taskID},
		logger.Field{Key: "enabled", Value: task.Enabled})

	return task.Enabled, nil
}

// DeleteTask removes a task by id and cancels any platform reminder for it.
func (s *Store) DeleteTask(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, day, ok := s.findLocked(taskID)
	if !ok {
		return fmt.Errorf("task not found: %s", taskID)
	}

	list := s.sched.Days[day]
	filtered := make([]Task, 0, len(list))
	for _, t := range list {
		if t.ID != taskID {
			filtered = append(filtered, t)
		}
	}
	s.sched.Days[day] = filtered

	if err := s.persist(); err != nil {
		return err
	}

	if s.reminders != nil {
		if err := s.reminders.Cancel(taskID); err != nil {
			s.logger.Error("failed to cancel platform reminder", err,
				logger.Field{Key: "task_id", Value: taskID})
		}
	}

	s.logger.Info("task deleted",
		logger.Field{Key: "task_id", Value: taskID},
		logger.Field{Key: "day", Value: day})

	return nil
}

// ClearDay removes every task from one day.
func (s *Store) ClearDay(day DayKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.sched.Days[day]
	s.sched.Days[day] = []Task{}

	if err := s.persist(); err != nil {
		return err
	}

	if s.reminders != nil {
		for _, t := range removed {
			if err := s.reminders.Cancel(t.ID); err != nil {
				s.logger.Error("failed to cancel platform reminder", err,
					logger.Field{Key: "task_id", Value: t.ID})
			}
		}
	}

	s.logger.Info("day cleared",
		logger.Field{Key: "day", Value: day},
		logger.Field{Key: "removed", Value: len(removed)})

	return nil
}

// ResetAll replaces the whole schedule with the empty-per-day default.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.sched
	s.sched = Default()

	if err := s.persist(); err != nil {
		return err
	}

	if s.reminders != nil {
		for _, tasks := range old.Days {
			for _, t := range tasks {
				if err := s.reminders.Cancel(t.ID); err != nil {
					s.logger.Error("failed to cancel platform reminder", err,
						logger.Field{Key: "task_id", Value: t.ID})
				}
			}
		}
	}

	s.logger.Info("schedule reset")
	return nil
}

// SetActiveDay records the presentation active-day pointer.
func (s *Store) SetActiveDay(day DayKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.ActiveDay = day
	return s.persist()
}

// findLocked locates a task by id. Caller must hold the lock.
func (s *Store) findLocked(taskID string) (Task, DayKey, bool) {
	return s.sched.Find(taskID)
}

// persist writes the full snapshot. Caller must hold the lock.
func (s *Store) persist() error {
	return s.storage.Save(s.sched)
}
