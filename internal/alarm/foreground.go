package alarm

import (
	"context"
	"sync"
	"time"

	"github.com/vk3336/VK7Days/internal/logger"
	"github.com/vk3336/VK7Days/internal/schedule"
)

// ForegroundLoop is the short-interval evaluation loop the interactive
// surface runs. It reads the in-memory store snapshot each tick; the store is
// the writer of record while the surface is up.
type ForegroundLoop struct {
	store      *schedule.Store
	dispatcher *Dispatcher
	interval   time.Duration
	log        *logger.Logger
	now        func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewForegroundLoop creates the loop. Interval is typically a few seconds so
// a firing lands within moments of its minute starting.
func NewForegroundLoop(store *schedule.Store, dispatcher *Dispatcher, interval time.Duration, log *logger.Logger) *ForegroundLoop {
	return &ForegroundLoop{
		store:      store,
		dispatcher: dispatcher,
		interval:   interval,
		log:        log,
		now:        time.Now,
	}
}

// Start begins ticking. Starting an already started loop is a no-op.
func (l *ForegroundLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	l.started = true
	go l.run()
	l.log.Info("foreground loop started",
		logger.Field{Key: "interval", Value: l.interval.String()})
	return nil
}

// Stop halts ticking and waits for the loop goroutine to exit.
func (l *ForegroundLoop) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	l.started = false
	l.cancel()
	done := l.done
	l.mu.Unlock()

	<-done
	l.log.Info("foreground loop stopped")
}

func (l *ForegroundLoop) run() {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.Tick(l.now())
	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.Tick(l.now())
		}
	}
}

// Tick runs one evaluation pass against the current store snapshot.
func (l *ForegroundLoop) Tick(now time.Time) {
	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	l.dispatcher.RunTick(ctx, l.store.Snapshot(), now)
}
