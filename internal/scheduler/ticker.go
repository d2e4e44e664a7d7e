// Package scheduler drives the tracker's "ask" events and the daily vocabulary
// job, and manages daemon PID files.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/christopherklint97/slotlog/internal/clock"
)

// Ticker is the state machine side of the loop.
type Ticker interface {
	// Tick opens the due slot if needed and returns the next wake time.
	Tick(ctx context.Context) (time.Time, error)
	// Changed fires when the wake time may have moved earlier.
	Changed() <-chan struct{}
}

// Loop is the single free-running driver of slot prompts.
type Loop struct {
	ticker Ticker
	clock  clock.Clock
	logger *slog.Logger
}

func New(ticker Ticker, clk clock.Clock, logger *slog.Logger) *Loop {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loop{ticker: ticker, clock: clk, logger: logger}
}

// Run ticks the machine and sleeps until the wake time it returns, waking
// early when the machine reports a change. It returns nil when ctx ends.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("scheduler started")
	for {
		wake, err := l.ticker.Tick(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("scheduler stopped")
				return nil
			}
			return fmt.Errorf("ticking tracker: %w", err)
		}
		l.logger.Debug("next check", "at", wake.Format("15:04"))

		if !l.sleepUntil(ctx, wake) {
			l.logger.Info("scheduler stopped")
			return nil
		}
	}
}

func (l *Loop) sleepUntil(ctx context.Context, wake time.Time) bool {
	d := wake.Sub(l.clock.Now())
	if d <= 0 {
		return ctx.Err() == nil
	}

	fired := make(chan struct{})
	t := l.clock.AfterFunc(d, func() { close(fired) })
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-fired:
	case <-l.ticker.Changed():
		l.logger.Debug("tracker state changed, re-evaluating")
	}
	return true
}

// NextDaily returns the first hour:minute strictly after now, in now's location.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func pidPath(dir, name string) string {
	return filepath.Join(dir, name+".pid")
}

// WritePID records the current process ID for name under dir.
func WritePID(dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating PID directory: %w", err)
	}
	return os.WriteFile(pidPath(dir, name), []byte(strconv.Itoa(os.Getpid())), 0644)
}

func RemovePID(dir, name string) {
	os.Remove(pidPath(dir, name))
}

// ErrNotRunning is returned by ReadPID when no PID file exists.
var ErrNotRunning = errors.New("no running daemon found")

func ReadPID(dir, name string) (int, error) {
	data, err := os.ReadFile(pidPath(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotRunning
		}
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file")
	}

	return pid, nil
}
