package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/christopherklint97/slotlog/internal/slot"
)

const (
	defaultRetryDelay = time.Second
	defaultMaxBacklog = 2 * slot.PerDay
)

// Notifier receives best-effort error notices for the user.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

type write struct {
	date  time.Time
	index int
	label string
}

// Recorder writes activity records to a Table, retrying once on failure.
// A write that still fails is reported to the notifier and kept in memory;
// queued writes are replayed ahead of the next record.
type Recorder struct {
	table    Table
	notifier Notifier
	logger   *slog.Logger

	RetryDelay time.Duration
	MaxBacklog int

	mu      sync.Mutex
	backlog []write
}

func NewRecorder(table Table, notifier Notifier, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{
		table:      table,
		notifier:   notifier,
		logger:     logger,
		RetryDelay: defaultRetryDelay,
		MaxBacklog: defaultMaxBacklog,
	}
}

// Record stores label at (date, index). Failures never reach the caller.
func (r *Recorder) Record(ctx context.Context, date time.Time, index int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replay(ctx)

	w := write{date: slot.Date(date), index: index, label: label}
	err := r.put(ctx, w)
	if err == nil {
		r.forget(w)
		return
	}

	r.enqueue(w)
	if r.notifier == nil {
		return
	}
	if nerr := r.notifier.Send(ctx, fmt.Sprintf("Error saving activity log after retry: %v", err)); nerr != nil {
		r.logger.Error("failed to send save error notice", "error", nerr)
	}
}

// Pending returns the number of writes waiting for replay.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.backlog)
}

func (r *Recorder) put(ctx context.Context, w write) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if err = r.table.Put(ctx, w.date, w.index, w.label); err == nil {
			r.logger.Info("logged activity", "label", w.label, "date", w.date.Format("2006-01-02"), "slot", w.index)
			return nil
		}
		r.logger.Error("activity save failed", "attempt", attempt, "date", w.date.Format("2006-01-02"), "slot", w.index, "error", err)
		if attempt == 1 && !r.wait(ctx) {
			break
		}
	}
	return err
}

func (r *Recorder) wait(ctx context.Context) bool {
	if r.RetryDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(r.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (r *Recorder) replay(ctx context.Context) {
	for len(r.backlog) > 0 {
		w := r.backlog[0]
		if err := r.table.Put(ctx, w.date, w.index, w.label); err != nil {
			r.logger.Warn("replay of queued write failed", "pending", len(r.backlog), "error", err)
			return
		}
		r.logger.Info("replayed queued write", "label", w.label, "date", w.date.Format("2006-01-02"), "slot", w.index)
		r.backlog = r.backlog[1:]
	}
}

// forget drops queued writes superseded by w.
func (r *Recorder) forget(w write) {
	kept := r.backlog[:0]
	for _, q := range r.backlog {
		if q.index == w.index && sameDate(q.date, w.date) {
			continue
		}
		kept = append(kept, q)
	}
	r.backlog = kept
}

func (r *Recorder) enqueue(w write) {
	r.forget(w)
	r.backlog = append(r.backlog, w)

	if limit := r.MaxBacklog; limit > 0 && len(r.backlog) > limit {
		dropped := len(r.backlog) - limit
		r.logger.Error("dropping queued writes", "count", dropped)
		r.backlog = r.backlog[dropped:]
	}
}
