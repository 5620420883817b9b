// Package bus provides the message types and in-process queue used to keep
// the foreground surface and the background worker loosely in sync while both
// are alive. Messages are best-effort notifications only; the persisted
// schedule and fired-occurrence ledger remain authoritative.
package bus

import (
	"encoding/json"
	"time"

	"github.com/vk3336/VK7Days/internal/schedule"
)

// Kind identifies the message type exchanged between the two contexts.
type Kind string

const (
	// KindScheduleAlarms replaces the peer's cached alarm set wholesale.
	KindScheduleAlarms Kind = "SCHEDULE_ALARMS"
	// KindUpdateAlarm replaces one cached alarm by task id.
	KindUpdateAlarm Kind = "UPDATE_ALARM"
	// KindDeleteAlarm drops one cached alarm by task id.
	KindDeleteAlarm Kind = "DELETE_ALARM"
	// KindStopAlarm silences any active alarm playback.
	KindStopAlarm Kind = "STOP_ALARM"
	// KindAlarmTriggered hands a fired task to the foreground surface for
	// rich in-app handling (modal plus custom audio).
	KindAlarmTriggered Kind = "ALARM_TRIGGERED"
	// KindPlayCustomAlarm asks the foreground surface to start looping a
	// task's recorded clip.
	KindPlayCustomAlarm Kind = "PLAY_CUSTOM_ALARM"
)

// Message is one cross-context notification.
type Message struct {
	Kind      Kind                     `json:"kind"`
	TaskID    string                   `json:"task_id,omitempty"`
	Task      *schedule.Task           `json:"task,omitempty"`
	Day       schedule.DayKey          `json:"day,omitempty"`
	Alarms    map[string]schedule.Task `json:"alarms,omitempty"`
	ClipPath  string                   `json:"clip_path,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// ToJSON serializes the message to JSON bytes.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON deserializes the message from JSON bytes.
func (m *Message) FromJSON(data []byte) error {
	return json.Unmarshal(data, m)
}

// NewAlarmTriggered creates an ALARM_TRIGGERED message for a fired task.
func NewAlarmTriggered(task schedule.Task, day schedule.DayKey) Message {
	return Message{
		Kind:      KindAlarmTriggered,
		TaskID:    task.ID,
		Task:      &task,
		Day:       day,
		Timestamp: time.Now(),
	}
}

// NewPlayCustomAlarm creates a PLAY_CUSTOM_ALARM message.
func NewPlayCustomAlarm(taskID, clipPath string) Message {
	return Message{
		Kind:      KindPlayCustomAlarm,
		TaskID:    taskID,
		ClipPath:  clipPath,
		Timestamp: time.Now(),
	}
}

// NewStopAlarm creates a STOP_ALARM message.
func NewStopAlarm() Message {
	return Message{
		Kind:      KindStopAlarm,
		Timestamp: time.Now(),
	}
}

// NewScheduleAlarms creates a SCHEDULE_ALARMS message carrying the full
// enabled alarm set keyed by task id.
func NewScheduleAlarms(alarms map[string]schedule.Task) Message {
	return Message{
		Kind:      KindScheduleAlarms,
		Alarms:    alarms,
		Timestamp: time.Now(),
	}
}

// NewUpdateAlarm creates an UPDATE_ALARM message for one task.
func NewUpdateAlarm(task schedule.Task, day schedule.DayKey) Message {
	return Message{
		Kind:      KindUpdateAlarm,
		TaskID:    task.ID,
		Task:      &task,
		Day:       day,
		Timestamp: time.Now(),
	}
}

// NewDeleteAlarm creates a DELETE_ALARM message for one task id.
func NewDeleteAlarm(taskID string) Message {
	return Message{
		Kind:      KindDeleteAlarm,
		TaskID:    taskID,
		Timestamp: time.Now(),
	}
}
