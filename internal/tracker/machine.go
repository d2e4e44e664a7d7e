// Package tracker owns the half-hour tracking state: the open slot, its
// timeout and the multi-slot extension window. All state lives inside one
// event loop (Run); prompts, replies and timer expiries are serialised
// through it.
package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/christopherklint97/slotlog/internal/clock"
	"github.com/christopherklint97/slotlog/internal/slot"
)

// DefaultGrace is how long after a slot's end a reply is still attributed to it.
const DefaultGrace = 5 * time.Minute

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("tracker stopped")

// Recorder persists one activity record. Failures are handled by the
// recorder itself.
type Recorder interface {
	Record(ctx context.Context, date time.Time, index int, label string)
}

// Sender delivers a message to the user.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Options struct {
	Clock    clock.Clock
	Recorder Recorder
	Sender   Sender
	Logger   *slog.Logger
	// Name is used in the prompt greeting.
	Name  string
	Grace time.Duration
}

// State is a read-only copy of the tracking state. Zero times mean "none".
type State struct {
	Current      time.Time
	Last         time.Time
	HasResponse  bool
	ExtensionEnd time.Time
	TimerArmed   bool
}

type Machine struct {
	clock    clock.Clock
	recorder Recorder
	sender   Sender
	logger   *slog.Logger
	name     string
	grace    time.Duration

	events  chan func(context.Context)
	changed chan struct{}
	stopped chan struct{}

	// Owned by the event loop.
	current      time.Time
	last         time.Time
	hasResponse  bool
	extensionEnd time.Time
	pending      clock.Timer
	gen          uint64
}

func New(opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	return &Machine{
		clock:    opts.Clock,
		recorder: opts.Recorder,
		sender:   opts.Sender,
		logger:   opts.Logger,
		name:     opts.Name,
		grace:    opts.Grace,
		events:   make(chan func(context.Context), 16),
		changed:  make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}
}

// Run processes events until ctx is done. It must be called once.
func (m *Machine) Run(ctx context.Context) error {
	defer close(m.stopped)
	defer m.cancelTimeout()

	m.logger.Info("tracker started", "grace", m.grace)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("tracker stopped")
			return nil
		case fn := <-m.events:
			fn(ctx)
		}
	}
}

// Respond interprets one inbound message and returns the reply to send.
func (m *Machine) Respond(ctx context.Context, text string) (string, error) {
	return ask(ctx, m, func(ctx context.Context) string {
		return m.respond(ctx, text)
	})
}

// Tick opens the current slot when due and returns when the scheduler should
// wake next: the end of an active extension, otherwise the next boundary.
func (m *Machine) Tick(ctx context.Context) (time.Time, error) {
	return ask(ctx, m, m.tick)
}

// State returns a snapshot of the tracking state.
func (m *Machine) State(ctx context.Context) (State, error) {
	return ask(ctx, m, func(context.Context) State {
		return m.snapshot()
	})
}

// Changed is signalled whenever the extension window changes, so a sleeping
// scheduler can re-evaluate its wake time.
func (m *Machine) Changed() <-chan struct{} {
	return m.changed
}

// ask runs fn on the event loop and waits for its result. The result channel
// is buffered: fn never blocks on a caller that has already returned.
func ask[T any](ctx context.Context, m *Machine, fn func(context.Context) T) (T, error) {
	var zero T
	result := make(chan T, 1)
	select {
	case m.events <- func(ctx context.Context) { result <- fn(ctx) }:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-m.stopped:
		return zero, ErrStopped
	}
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-m.stopped:
		return zero, ErrStopped
	}
}

// post enqueues fn from a timer callback.
func (m *Machine) post(fn func(context.Context)) {
	select {
	case m.events <- fn:
	case <-m.stopped:
	}
}

func (m *Machine) snapshot() State {
	return State{
		Current:      m.current,
		Last:         m.last,
		HasResponse:  m.hasResponse,
		ExtensionEnd: m.extensionEnd,
		TimerArmed:   m.pending != nil,
	}
}

func (m *Machine) tick(ctx context.Context) time.Time {
	now := m.clock.Now()
	if m.extendedAt(now) {
		return m.extensionEnd
	}
	start := slot.Start(now)
	if m.current.IsZero() || start.After(m.current) {
		m.open(ctx, start)
	}
	return slot.Next(start)
}

// open asks about the slot starting at start and arms its timeout. A previous
// slot that is still unanswered is resolved first, so a boundary tick that
// beats the previous timeout cannot lose its "No response" record.
func (m *Machine) open(ctx context.Context, start time.Time) {
	if !m.current.IsZero() && !m.hasResponse && !m.current.Equal(start) {
		m.resolveNoResponse(ctx, m.current)
	}
	m.cancelTimeout()

	m.current, m.last = start, start
	m.hasResponse = false

	end := slot.End(start)
	m.send(ctx, promptText(m.name, start, end))
	m.logger.Info("asked for activity", "slot", start.Format(clockFormat))
	m.armTimeout(end.Sub(m.clock.Now()))
}

func (m *Machine) timeout(ctx context.Context, gen uint64) {
	if gen != m.gen {
		m.logger.Debug("discarding stale timeout", "gen", gen, "current_gen", m.gen)
		return
	}
	m.pending = nil

	if !m.current.IsZero() {
		if !m.hasResponse {
			m.resolveNoResponse(ctx, m.current)
		}
		m.last = m.current
	}
	m.current = time.Time{}
	m.hasResponse = false
}

func (m *Machine) resolveNoResponse(ctx context.Context, start time.Time) {
	m.record(ctx, start, NoResponse)
	m.send(ctx, noResponseText(start, slot.End(start)))
	m.logger.Info("logged no response", "slot", start.Format(clockFormat))
}

func (m *Machine) armTimeout(d time.Duration) {
	m.cancelTimeout()
	if d <= 0 {
		return
	}
	gen := m.gen
	m.pending = m.clock.AfterFunc(d, func() {
		m.post(func(ctx context.Context) { m.timeout(ctx, gen) })
	})
}

// cancelTimeout stops the pending timer and invalidates any timeout event
// that already fired but is still queued.
func (m *Machine) cancelTimeout() {
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
	m.gen++
}

func (m *Machine) extendedAt(now time.Time) bool {
	return !m.extensionEnd.IsZero() && now.Before(m.extensionEnd)
}

func (m *Machine) setExtension(end time.Time) {
	if end.Equal(m.extensionEnd) {
		return
	}
	m.extensionEnd = end
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m *Machine) record(ctx context.Context, start time.Time, label string) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(ctx, slot.Date(start), slot.Index(start), label)
}

func (m *Machine) send(ctx context.Context, text string) {
	if m.sender == nil {
		return
	}
	if err := m.sender.Send(ctx, text); err != nil {
		m.logger.Error("failed to send message", "error", err)
	}
}
