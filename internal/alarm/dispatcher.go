package alarm

import (
	"context"
	"fmt"
	"time"

	"github.com/vk3336/VK7Days/internal/audio"
	"github.com/vk3336/VK7Days/internal/bus"
	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/metrics"
	"github.com/vk3336/VK7Days/internal/notify"
	"github.com/vk3336/VK7Days/internal/schedule"
)

// Mode selects the presentation channel a dispatcher serves.
type Mode string

const (
	// ModeForeground presents alarms richly: bus event for the interactive
	// surface plus the task's recorded clip when one exists.
	ModeForeground Mode = "foreground"
	// ModeBackground delivers a channel notification for every firing and
	// either hands playback off to a visible surface or escalates to the
	// default ringtone.
	ModeBackground Mode = "background"
)

// FiredLedger is the persistence the dispatcher marks occurrences in.
type FiredLedger interface {
	Has(key string) bool
	Mark(key string, firedAt time.Time) error
}

// Publisher is the cross-context message sink.
type Publisher interface {
	Publish(msg bus.Message) error
}

// Config wires a Dispatcher. Bus, Notifier, Clips, Player, Presence and
// Metrics are each optional; a nil collaborator disables that effect.
type Config struct {
	Mode           Mode
	Ledger         FiredLedger
	Bus            Publisher
	Notifier       notify.Notifier
	Clips          audio.ClipStore
	Player         audio.Player
	Presence       Presence
	DefaultClip    audio.Clip
	ReplayInterval time.Duration
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

// Dispatcher fires due tasks through the configured channel. The occurrence
// is marked in the ledger before any observable side effect, so a crash
// mid-dispatch loses the alarm rather than repeating it.
type Dispatcher struct {
	cfg Config
	log *logger.Logger
}

// NewDispatcher creates a dispatcher for the given mode and collaborators.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg, log: cfg.Logger}
}

// RunTick evaluates the schedule at now and dispatches every newly due task.
// A panic in one task's dispatch is contained so the remaining due tasks of
// the same minute still fire.
func (d *Dispatcher) RunTick(ctx context.Context, sched schedule.Schedule, now time.Time) {
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordTick(string(d.cfg.Mode))
	}
	for _, due := range Evaluate(sched, d.cfg.Ledger, now) {
		d.dispatchSafe(ctx, due, now)
	}
}

func (d *Dispatcher) dispatchSafe(ctx context.Context, due Due, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("alarm dispatch panicked", fmt.Errorf("%v", r),
				logger.Field{Key: "task_id", Value: due.Task.ID})
		}
	}()
	d.Dispatch(ctx, due.Task, due.Day, now)
}

// Dispatch fires one task occurrence. It re-checks the ledger so that the
// companion loop's concurrent pass over the same minute is suppressed, marks
// the occurrence, then performs the channel side effects. A mark failure is
// logged and delivery proceeds; a reminder repeated after a crash beats one
// never shown.
func (d *Dispatcher) Dispatch(ctx context.Context, task schedule.Task, day schedule.DayKey, now time.Time) {
	key := ledger.Key(now, day, task.Time, task.ID)
	if d.cfg.Ledger.Has(key) {
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.RecordDuplicateSuppressed()
		}
		d.log.Debug("occurrence already fired",
			logger.Field{Key: "key", Value: key})
		return
	}
	if err := d.cfg.Ledger.Mark(key, now); err != nil {
		d.log.Error("failed to mark occurrence fired", err,
			logger.Field{Key: "key", Value: key})
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.RecordPersistenceError("mark")
		}
	}

	d.log.Info("alarm firing",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "title", Value: task.Title},
		logger.Field{Key: "time", Value: task.Time},
		logger.Field{Key: "mode", Value: string(d.cfg.Mode)})

	switch d.cfg.Mode {
	case ModeBackground:
		d.fireBackground(ctx, task, day)
	default:
		d.fireForeground(ctx, task, day)
	}
}

func (d *Dispatcher) fireForeground(ctx context.Context, task schedule.Task, day schedule.DayKey) {
	d.publish(bus.NewAlarmTriggered(task, day))
	if d.cfg.Notifier != nil && d.cfg.Notifier.CanNotify() {
		if err := d.cfg.Notifier.Show(ctx, notify.For(task)); err != nil {
			d.log.Warn("notification delivery failed",
				logger.Field{Key: "task_id", Value: task.ID},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}
	d.startPlayback(task)
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordFire("foreground")
	}
}

func (d *Dispatcher) fireBackground(ctx context.Context, task schedule.Task, day schedule.DayKey) {
	if d.cfg.Notifier != nil {
		if err := d.cfg.Notifier.Show(ctx, notify.For(task)); err != nil {
			d.log.Warn("notification delivery failed",
				logger.Field{Key: "task_id", Value: task.ID},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}

	if d.cfg.Presence != nil && d.cfg.Presence.IsVisible() {
		// A visible surface owns the rich presentation; hand off instead of
		// competing for the speaker.
		d.publish(bus.NewAlarmTriggered(task, day))
		if clip, ok := d.clipFor(task); ok {
			d.publish(bus.NewPlayCustomAlarm(task.ID, clip.Path))
		}
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.RecordFire("handoff")
		}
		return
	}

	// Recorded clips stay on the foreground surface. Invisible means the
	// default ringtone, which is the strongest signal this channel has.
	d.loop(d.cfg.DefaultClip, task.ID)
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.RecordFire("background")
	}
}

// startPlayback begins looping the task's recorded clip, or the default
// ringtone when the task has none.
func (d *Dispatcher) startPlayback(task schedule.Task) {
	clip, ok := d.clipFor(task)
	if !ok {
		clip = d.cfg.DefaultClip
	}
	d.loop(clip, task.ID)
}

func (d *Dispatcher) loop(clip audio.Clip, taskID string) {
	if d.cfg.Player == nil || clip.Path == "" {
		return
	}
	if err := d.cfg.Player.StartLoop(clip, d.cfg.ReplayInterval); err != nil {
		d.log.Warn("failed to start alarm playback",
			logger.Field{Key: "task_id", Value: taskID},
			logger.Field{Key: "error", Value: err.Error()})
		if d.cfg.Metrics != nil {
			d.cfg.Metrics.RecordPlaybackError()
		}
		return
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.SetAlarmActive(true)
	}
}

func (d *Dispatcher) clipFor(task schedule.Task) (audio.Clip, bool) {
	if !task.HasCustomVoice || d.cfg.Clips == nil {
		return audio.Clip{}, false
	}
	return d.cfg.Clips.GetClip(task.ID)
}

// StopAlarm silences any active playback and tells the peer context to do
// the same.
func (d *Dispatcher) StopAlarm() {
	if d.cfg.Player != nil {
		d.cfg.Player.StopLoop()
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.SetAlarmActive(false)
	}
	d.publish(bus.NewStopAlarm())
	d.log.Info("alarm stopped")
}

// Silence stops local playback without notifying the peer, for use when the
// stop request itself arrived over the bus.
func (d *Dispatcher) Silence() {
	if d.cfg.Player != nil {
		d.cfg.Player.StopLoop()
	}
	if d.cfg.Metrics != nil {
		d.cfg.Metrics.SetAlarmActive(false)
	}
}

func (d *Dispatcher) publish(msg bus.Message) {
	if d.cfg.Bus == nil {
		return
	}
	if err := d.cfg.Bus.Publish(msg); err != nil {
		d.log.Warn("failed to publish message",
			logger.Field{Key: "kind", Value: string(msg.Kind)},
			logger.Field{Key: "error", Value: err.Error()})
	}
}
