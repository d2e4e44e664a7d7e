// Package notify delivers outbound tracker messages to more than one place.
package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/gen2brain/beeep"
)

// Sender delivers one text message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Desktop mirrors messages as desktop notifications.
type Desktop struct {
	Title string
	// notify is replaced in tests.
	notify func(title, message string) error
}

func NewDesktop(title string) *Desktop {
	return &Desktop{Title: title, notify: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func (d *Desktop) Send(ctx context.Context, text string) error {
	return d.notify(d.Title, text)
}

// Fanout sends to every sender; the primary one must succeed.
type Fanout struct {
	Primary Sender
	Mirrors []Sender
	logger  *slog.Logger
}

func NewFanout(primary Sender, logger *slog.Logger, mirrors ...Sender) *Fanout {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Fanout{Primary: primary, Mirrors: mirrors, logger: logger}
}

// Send returns the primary sender's error. Mirror failures are only logged.
func (f *Fanout) Send(ctx context.Context, text string) error {
	var errs []error
	if err := f.Primary.Send(ctx, text); err != nil {
		errs = append(errs, err)
	}
	for _, m := range f.Mirrors {
		if err := m.Send(ctx, text); err != nil {
			f.logger.Warn("mirror notification failed", "error", err)
		}
	}
	return errors.Join(errs...)
}
