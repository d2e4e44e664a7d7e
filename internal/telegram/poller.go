package telegram

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// DefaultRestartDelay is how long the poller waits after a failed poll.
const DefaultRestartDelay = 10 * time.Second

// Handler processes one text message from the configured chat.
type Handler func(ctx context.Context, msg *Message)

// Poller feeds messages from a single chat to a handler, in order.
type Poller struct {
	client       *Client
	chatID       int64
	timeout      int
	logger       *slog.Logger
	RestartDelay time.Duration
}

func NewPoller(client *Client, chatID int64, timeout int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		client:       client,
		chatID:       chatID,
		timeout:      timeout,
		logger:       logger,
		RestartDelay: DefaultRestartDelay,
	}
}

// Run polls until ctx is done. Poll failures are logged and retried after
// RestartDelay; they never end the loop.
func (p *Poller) Run(ctx context.Context, h Handler) error {
	var offset int64
	p.logger.Info("telegram polling started", "chat_id", p.chatID)
	for {
		updates, err := p.client.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("telegram polling stopped")
				return nil
			}
			p.logger.Error("polling failed, restarting", "error", err, "delay", p.RestartDelay)
			if err := p.client.sleep(ctx, p.RestartDelay); err != nil {
				p.logger.Info("telegram polling stopped")
				return nil
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			msg := u.Message
			if msg == nil || msg.Text == "" {
				continue
			}
			if msg.Chat.ID != p.chatID {
				p.logger.Debug("ignoring message from other chat", "chat_id", msg.Chat.ID)
				continue
			}
			h(ctx, msg)
		}
	}
}
