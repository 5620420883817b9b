package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/vk3336/VK7Days/internal/logger"
)

var (
	ErrQueueFull      = errors.New("queue is full")
	ErrAlreadyStarted = errors.New("message bus is already started")
	ErrNotStarted     = errors.New("message bus is not started")
)

// MessageBus is an asynchronous fan-out queue for cross-context messages.
// Delivery is best-effort: a slow subscriber loses messages rather than
// blocking the publisher, since persisted state is authoritative anyway.
type MessageBus struct {
	mu      sync.RWMutex
	logger  *logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	ch           chan Message
	subscribers  map[int64]chan Message
	subscriberID int64
}

// New creates a MessageBus with the specified queue capacity.
func New(capacity int, log *logger.Logger) *MessageBus {
	return &MessageBus{
		logger:      log,
		ch:          make(chan Message, capacity),
		subscribers: make(map[int64]chan Message),
	}
}

// Start starts the distribution goroutine.
func (mb *MessageBus) Start(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.started {
		return ErrAlreadyStarted
	}

	mb.ctx, mb.cancel = context.WithCancel(ctx)
	mb.started = true

	go mb.distribute()

	mb.logger.Info("message bus started", logger.Field{Key: "capacity", Value: cap(mb.ch)})
	return nil
}

// Stop gracefully stops the bus and closes all channels.
func (mb *MessageBus) Stop() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.started {
		return ErrNotStarted
	}

	if mb.cancel != nil {
		mb.cancel()
	}

	for id, ch := range mb.subscribers {
		close(ch)
		delete(mb.subscribers, id)
	}

	close(mb.ch)
	mb.started = false

	mb.logger.Info("message bus stopped")
	return nil
}

// Publish enqueues a message for all subscribers.
func (mb *MessageBus) Publish(msg Message) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	if !mb.started {
		return ErrNotStarted
	}

	select {
	case mb.ch <- msg:
		mb.logger.DebugCtx(mb.ctx, "message published",
			logger.Field{Key: "kind", Value: msg.Kind},
			logger.Field{Key: "task_id", Value: msg.TaskID})
		return nil
	default:
		mb.logger.WarnCtx(mb.ctx, "message queue full",
			logger.Field{Key: "kind", Value: msg.Kind},
			logger.Field{Key: "capacity", Value: cap(mb.ch)})
		return ErrQueueFull
	}
}

// Subscribe registers a new subscriber and returns its receive channel.
// Returns nil if the bus is not started.
func (mb *MessageBus) Subscribe(ctx context.Context) <-chan Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if !mb.started {
		return nil
	}

	ch := make(chan Message, 10)
	mb.subscriberID++
	id := mb.subscriberID
	mb.subscribers[id] = ch

	mb.logger.DebugCtx(ctx, "subscriber added",
		logger.Field{Key: "subscriber_id", Value: id})

	return ch
}

// distribute fans published messages out to all subscribers.
func (mb *MessageBus) distribute() {
	for {
		select {
		case <-mb.ctx.Done():
			return
		case msg, ok := <-mb.ch:
			if !ok {
				return
			}
			mb.mu.RLock()
			for _, ch := range mb.subscribers {
				select {
				case ch <- msg:
				default:
					// Subscriber channel is full, skip.
					mb.logger.WarnCtx(mb.ctx, "subscriber channel full, skipping message",
						logger.Field{Key: "kind", Value: msg.Kind})
				}
			}
			mb.mu.RUnlock()
		}
	}
}

// IsStarted returns true if the bus is started.
func (mb *MessageBus) IsStarted() bool {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	return mb.started
}
