package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/vk3336/VK7Days/internal/config"
	"github.com/vk3336/VK7Days/internal/logger"
)

const callbackPrefix = "vk7"

// Telegram allows one getUpdates consumer per bot token. When the companion
// process holds it, polling retries on this schedule until the token frees
// up; sending notifications is unaffected meanwhile.
const (
	pollRetryBase = 5 * time.Second
	pollRetryMax  = time.Minute
)

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > pollRetryMax {
		return pollRetryMax
	}
	return d
}

// Telegram delivers reminder notifications to a single chat via a Telegram
// bot. Stop and Open arrive back as inline-keyboard callback queries. A
// repeated Show for the same tag edits the previous message in place instead
// of stacking a new one.
type Telegram struct {
	cfg       config.TelegramConfig
	logger    *logger.Logger
	callbacks Callbacks

	bot    *telego.Bot
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	started  bool
	messages map[string]int // tag -> telegram message id, drives replacement
}

// NewTelegram creates the Telegram notification channel.
func NewTelegram(cfg config.TelegramConfig, log *logger.Logger, cb Callbacks) *Telegram {
	return &Telegram{
		cfg:       cfg,
		logger:    log,
		callbacks: cb,
		messages:  make(map[string]int),
	}
}

// Start initializes the bot and begins long polling for callback queries.
func (t *Telegram) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.cfg.Enabled {
		t.logger.Info("telegram channel disabled in config")
		return nil
	}
	if t.started {
		return fmt.Errorf("telegram channel already started")
	}

	bot, err := telego.NewBot(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to initialize telegram bot: %w", err)
	}

	t.bot = bot
	t.ctx, t.cancel = context.WithCancel(ctx)

	botUser, err := t.bot.GetMe(t.ctx)
	if err != nil {
		t.bot = nil
		t.cancel()
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	t.logger.Info("telegram bot initialized",
		logger.Field{Key: "bot_id", Value: botUser.ID},
		logger.Field{Key: "username", Value: botUser.Username})

	t.started = true
	go t.pollCallbacks()

	return nil
}

// Stop stops long polling. Safe to call when never started.
func (t *Telegram) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	t.cancel()
	t.bot = nil
	t.started = false
	t.logger.Info("telegram channel stopped")
}

// CanNotify reports whether the channel is up.
func (t *Telegram) CanNotify() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started && t.bot != nil
}

// Show sends the notification with Stop/Open inline keyboard buttons. If a
// message for the same tag was already sent, it is edited in place.
func (t *Telegram) Show(ctx context.Context, n Notification) error {
	t.mu.Lock()
	bot := t.bot
	prevID, replace := t.messages[n.Tag]
	t.mu.Unlock()

	if bot == nil {
		return fmt.Errorf("telegram channel is not started")
	}

	text := fmt.Sprintf("%s\n%s", n.Title, n.Body)
	markup := t.buildKeyboard(n)

	if replace {
		_, err := bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:      telego.ChatID{ID: t.cfg.ChatID},
			MessageID:   prevID,
			Text:        text,
			ReplyMarkup: markup,
		})
		if err == nil {
			return nil
		}
		// Edit can fail when the old message was deleted; fall through to a
		// fresh send.
		t.logger.Warn("failed to edit notification, sending a new one",
			logger.Field{Key: "tag", Value: n.Tag},
			logger.Field{Key: "error", Value: err})
	}

	msg, err := bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: t.cfg.ChatID},
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	t.mu.Lock()
	t.messages[n.Tag] = msg.MessageID
	t.mu.Unlock()

	return nil
}

// buildKeyboard maps notification actions onto one inline keyboard row.
func (t *Telegram) buildKeyboard(n Notification) *telego.InlineKeyboardMarkup {
	if len(n.Actions) == 0 {
		return nil
	}

	taskID := strings.TrimPrefix(n.Tag, "vk7_alarm_")
	row := make([]telego.InlineKeyboardButton, 0, len(n.Actions))
	for _, action := range n.Actions {
		var text string
		switch action {
		case ActionStop:
			text = "Stop"
		case ActionOpen:
			text = "Open"
		default:
			text = string(action)
		}
		row = append(row, telego.InlineKeyboardButton{
			Text:         text,
			CallbackData: fmt.Sprintf("%s:%s:%s", callbackPrefix, action, taskID),
		})
	}

	return &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{row},
	}
}

// pollCallbacks long-polls Telegram updates and routes Stop/Open callback
// queries to the registered callbacks. A polling failure, typically a 409
// because the companion process holds the token, degrades the channel to
// send-only and retries with backoff instead of giving up.
func (t *Telegram) pollCallbacks() {
	t.mu.Lock()
	bot := t.bot
	t.mu.Unlock()

	backoff := pollRetryBase
	for {
		updates, err := bot.UpdatesViaLongPolling(t.ctx, &telego.GetUpdatesParams{
			Timeout: 30,
		})
		if err == nil {
			if t.consume(updates) {
				t.logger.Info("telegram long polling stopped")
				return
			}
			// Updates channel closed underneath us, usually a token conflict
			// with the companion process.
			backoff = pollRetryBase
		}

		t.logger.Warn("callback polling unavailable, Stop/Open buttons handled by the companion process",
			logger.Field{Key: "retry_in", Value: backoff.String()},
			logger.Field{Key: "error", Value: errString(err)})

		select {
		case <-t.ctx.Done():
			t.logger.Info("telegram long polling stopped")
			return
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

// consume drains one updates stream. Returns true when the channel should
// stop entirely, false when polling should be retried.
func (t *Telegram) consume(updates <-chan telego.Update) bool {
	for {
		select {
		case <-t.ctx.Done():
			return true
		case update, ok := <-updates:
			if !ok {
				return false
			}
			if update.CallbackQuery != nil {
				t.handleCallback(update.CallbackQuery)
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "updates stream closed"
	}
	return err.Error()
}

// handleCallback dispatches one callback query.
func (t *Telegram) handleCallback(cq *telego.CallbackQuery) {
	parts := strings.SplitN(cq.Data, ":", 3)
	if len(parts) != 3 || parts[0] != callbackPrefix {
		t.logger.Debug("ignoring unknown callback data",
			logger.Field{Key: "data", Value: cq.Data})
		return
	}

	action, taskID := Action(parts[1]), parts[2]

	switch action {
	case ActionStop:
		if t.callbacks.OnStop != nil {
			t.callbacks.OnStop(taskID)
		}
		t.answer(cq.ID, "Alarm stopped")
	case ActionOpen:
		if t.callbacks.OnOpen != nil {
			t.callbacks.OnOpen(taskID)
		}
		t.answer(cq.ID, "")
	default:
		t.logger.Warn("unknown notification action",
			logger.Field{Key: "action", Value: string(action)})
	}
}

// answer acknowledges a callback query to clear the client's loading state.
func (t *Telegram) answer(callbackID, text string) {
	timeout := time.Duration(t.cfg.AnswerCallbackTimeout) * time.Second
	ctx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	err := t.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		t.logger.ErrorCtx(t.ctx, "failed to answer callback query", err)
	}
}
