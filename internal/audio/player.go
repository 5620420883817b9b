package audio

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/vk3336/VK7Days/internal/logger"
)

// Player is the audio playback surface. StartLoop replays the clip at a fixed
// interval until StopLoop; StopLoop is idempotent and safe to call when
// nothing is playing.
type Player interface {
	StartLoop(clip Clip, interval time.Duration) error
	StopLoop()
	PlayOnce(clip Clip) error
}

// ExecPlayer plays clips by invoking an external player command. It owns the
// single active playback loop; starting a new loop first tears down the
// previous one.
type ExecPlayer struct {
	command string
	logger  *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewExecPlayer creates a player that runs `command <clip-path>` per play.
func NewExecPlayer(command string, log *logger.Logger) *ExecPlayer {
	return &ExecPlayer{
		command: command,
		logger:  log,
	}
}

// StartLoop starts replaying the clip at the given interval until StopLoop.
func (p *ExecPlayer) StartLoop(clip Clip, interval time.Duration) error {
	if clip.Path == "" {
		return fmt.Errorf("clip path is empty")
	}
	if interval <= 0 {
		return fmt.Errorf("replay interval must be positive")
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("starting alarm playback loop",
		logger.Field{Key: "clip", Value: clip.Path},
		logger.Field{Key: "interval", Value: interval})

	go p.loop(ctx, clip, interval)
	return nil
}

// loop plays immediately, then replays on each tick until cancelled.
func (p *ExecPlayer) loop(ctx context.Context, clip Clip, interval time.Duration) {
	p.play(ctx, clip)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.play(ctx, clip)
		}
	}
}

// StopLoop cancels the active playback loop, if any.
func (p *ExecPlayer) StopLoop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		p.logger.Debug("alarm playback loop stopped")
	}
}

// PlayOnce plays the clip a single time without looping.
func (p *ExecPlayer) PlayOnce(clip Clip) error {
	if clip.Path == "" {
		return fmt.Errorf("clip path is empty")
	}
	return p.run(context.Background(), clip)
}

// play runs one playback, logging failures. Playback errors never escalate;
// the occurrence stays marked fired either way.
func (p *ExecPlayer) play(ctx context.Context, clip Clip) {
	if err := p.run(ctx, clip); err != nil && ctx.Err() == nil {
		p.logger.Error("audio playback failed", err,
			logger.Field{Key: "clip", Value: clip.Path})
	}
}

func (p *ExecPlayer) run(ctx context.Context, clip Clip) error {
	cmd := exec.CommandContext(ctx, p.command, clip.Path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player command %q failed: %w", p.command, err)
	}
	return nil
}
