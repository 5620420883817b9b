package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/vk3336/VK7Days/internal/ledger"
	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

// pruneInterval is how often the worker trims expired ledger entries.
const pruneInterval = 24 * time.Hour

// BackgroundWorker is the coarse evaluation loop that runs whether or not the
// interactive surface is up. It re-reads the schedule from disk every tick so
// edits made by the surface, or by a previous process, are honored without
// any shared memory.
type BackgroundWorker struct {
	storage    *schedule.Storage
	ledger     *ledger.Ledger
	dispatcher *Dispatcher
	interval   time.Duration
	retention  time.Duration
	log        *logger.Logger
	now        func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewBackgroundWorker creates the worker. Interval is typically around a
// minute; a fired minute is detected once and the ledger suppresses repeats,
// so a coarser cadence only delays delivery, never duplicates it.
func NewBackgroundWorker(storage *schedule.Storage, led *ledger.Ledger, dispatcher *Dispatcher, interval, retention time.Duration, log *logger.Logger) *BackgroundWorker {
	return &BackgroundWorker{
		storage:    storage,
		ledger:     led,
		dispatcher: dispatcher,
		interval:   interval,
		retention:  retention,
		log:        log,
		now:        time.Now,
	}
}

// Start begins evaluating. Starting an already started worker is a no-op.
func (w *BackgroundWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.started = true
	go w.run()
	w.log.Info("background worker started",
		logger.Field{Key: "interval", Value: w.interval.String()},
		logger.Field{Key: "retention", Value: w.retention.String()})
	return nil
}

// Stop halts evaluation and waits for the worker goroutine to exit.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.log.Info("background worker stopped")
}

func (w *BackgroundWorker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(pruneInterval)
	defer cleanup.Stop()

	w.prune()
	w.Tick(w.now())
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.Tick(w.now())
		case <-cleanup.C:
			w.prune()
		}
	}
}

// Tick loads the schedule from disk and runs one evaluation pass.
func (w *BackgroundWorker) Tick(now time.Time) {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	w.dispatcher.RunTick(ctx, w.storage.Load(), now)
}

func (w *BackgroundWorker) prune() {
	removed, err := w.ledger.Prune(w.now(), w.retention)
	if err != nil {
		w.log.Error("failed to prune fired ledger", err)
		return
	}
	if removed > 0 {
		w.log.Info("pruned fired ledger",
			logger.Field{Key: "removed", Value: removed})
	}
}
