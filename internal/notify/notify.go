// Package notify defines the notification surface used by the alarm
// dispatcher and its Telegram implementation. The surface is a capability the
// core queries rather than assumes: when no channel can notify, firing
// degrades to logging and the UI reports alerts as unavailable instead of
// silently pretending they work.
package notify

import (
	"context"
	"fmt"

	"github.com/vk3336/VK7Days/internal/schedule"
)

// DefaultTitle is the notification title used for every reminder.
const DefaultTitle = "VK7Days Reminder"

// Action is a notification action affordance.
type Action string

const (
	ActionStop Action = "stop"
	ActionOpen Action = "open"
)

// Notification is one reminder notification. Tag is stable per task so a
// second notification for the same task replaces the first where the channel
// supports replacement.
type Notification struct {
	Title   string
	Body    string
	Tag     string
	Actions []Action
}

// Callbacks receives user reactions to a delivered notification.
type Callbacks struct {
	// OnStop silences the active alarm. Never nil-checked by implementations;
	// wire a no-op if unused.
	OnStop func(taskID string)
	// OnOpen brings the interactive surface forward for the task.
	OnOpen func(taskID string)
}

// Notifier is the notification surface collaborator.
type Notifier interface {
	// CanNotify reports whether this channel can currently deliver.
	CanNotify() bool
	// Show delivers one notification. Failures are non-fatal to the caller.
	Show(ctx context.Context, n Notification) error
}

// Tag returns the stable notification tag for a task id.
func Tag(taskID string) string {
	return "vk7_alarm_" + taskID
}

// For composes the reminder notification for a task: body "<title> (<HH:MM>)",
// stable per-task tag, Stop and Open actions.
func For(task schedule.Task) Notification {
	return Notification{
		Title:   DefaultTitle,
		Body:    fmt.Sprintf("%s (%s)", task.Title, task.Time),
		Tag:     Tag(task.ID),
		Actions: []Action{ActionStop, ActionOpen},
	}
}
