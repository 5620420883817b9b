package bus

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk3336/VK7Days/internal/logger"
)

const dialTimeout = 2 * time.Second

// SocketPath returns the workspace-local socket the two processes rendezvous
// on.
func SocketPath(workspace string) string {
	return filepath.Join(workspace, "bus.sock")
}

// SocketListener accepts peer connections on a unix socket and forwards each
// received message into the local MessageBus, so a standalone background
// worker (or the task CLI) reaches the surface's subscribers as if it
// published in-process.
type SocketListener struct {
	path   string
	sink   *MessageBus
	logger *logger.Logger

	mu       sync.Mutex
	started  bool
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSocketListener creates a listener forwarding into sink.
func NewSocketListener(path string, sink *MessageBus, log *logger.Logger) *SocketListener {
	return &SocketListener{
		path:   path,
		sink:   sink,
		logger: log,
	}
}

// Start binds the socket and begins accepting connections. A stale socket
// file from a crashed run is removed first.
func (l *SocketListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return ErrAlreadyStarted
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	_ = os.Remove(l.path)

	listener, err := net.Listen("unix", l.path)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.path, err)
	}

	l.listener = listener
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.started = true

	go l.accept()

	l.logger.Info("message socket listening",
		logger.Field{Key: "path", Value: l.path})

	return nil
}

// Stop closes the socket. Safe to call when never started.
func (l *SocketListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return
	}
	l.cancel()
	l.listener.Close()
	_ = os.Remove(l.path)
	l.started = false
	l.logger.Info("message socket stopped")
}

func (l *SocketListener) accept() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.ctx.Done():
				return
			default:
			}
			l.logger.Warn("failed to accept socket connection",
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		go l.handle(conn)
	}
}

// handle reads newline-delimited JSON messages until the peer closes.
func (l *SocketListener) handle(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := msg.FromJSON(line); err != nil {
			l.logger.Warn("dropping malformed socket message",
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if err := l.sink.Publish(msg); err != nil {
			l.logger.Warn("failed to relay socket message",
				logger.Field{Key: "kind", Value: string(msg.Kind)},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}
}

// SocketPublisher publishes messages to a peer process's SocketListener. Each
// Publish dials, writes one message and closes; when no peer is listening the
// dial error is returned and the caller decides whether that matters.
type SocketPublisher struct {
	path   string
	logger *logger.Logger
}

// NewSocketPublisher creates a publisher targeting the given socket path.
func NewSocketPublisher(path string, log *logger.Logger) *SocketPublisher {
	return &SocketPublisher{path: path, logger: log}
}

// Publish sends one message to the listening peer.
func (p *SocketPublisher) Publish(msg Message) error {
	conn, err := net.DialTimeout("unix", p.path, dialTimeout)
	if err != nil {
		return fmt.Errorf("no peer listening on %s: %w", p.path, err)
	}
	defer conn.Close()

	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(dialTimeout))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	p.logger.Debug("message sent to peer",
		logger.Field{Key: "kind", Value: string(msg.Kind)})

	return nil
}
