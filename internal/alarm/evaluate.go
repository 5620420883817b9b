// Package alarm implements the alarm detection and firing protocol: the pure
// due-task evaluator, the dispatcher that marks occurrences fired before any
// observable side effect, the presence marker shared between execution
// contexts, and the two poll loops (foreground interval and background
// worker) that re-evaluate the persisted schedule against the persisted
// fired-occurrence ledger.
//
// The two loops share no memory and take no cross-context lock; at-most-once
// delivery rests on the ledger's check-then-mark against the shared backing
// file, with the mark written immediately upon detection. The residual race
// window between the two loops' reads is accepted: a duplicate notification
// in that narrow window is a known limitation, not something the execution
// model can lock away.
package alarm

import (
	"time"

	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

// FiredSet is the ledger view the evaluator needs.
type FiredSet interface {
	Has(key string) bool
}

// Due is one task found due in an evaluation pass.
type Due struct {
	Task schedule.Task
	Day  schedule.DayKey
}

// Evaluate returns the tasks newly due at now: enabled tasks on today's list
// whose time equals the current minute and whose occurrence key is not yet in
// the fired set. A minute that passed unevaluated is never backfilled; a late
// reminder has no value.
func Evaluate(sched schedule.Schedule, fired FiredSet, now time.Time) []Due {
	day := schedule.DayKeyFor(now)
	hhmm := now.Format("15:04")

	var due []Due
	for _, task := range sched.Days[day] {
		if !task.Enabled {
			continue
		}
		if task.Time != hhmm {
			continue
		}
		if fired.Has(ledger.Key(now, day, hhmm, task.ID)) {
			continue
		}
		due = append(due, Due{Task: task, Day: day})
	}
	return due
}
