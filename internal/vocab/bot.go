// Package vocab is the daily vocabulary bot: it sends a batch of words from a
// workbook every day and answers a few chat commands.
package vocab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/christopherklint97/slotlog/internal/clock"
	"github.com/christopherklint97/slotlog/internal/scheduler"
)

// Sender delivers an HTML message to the configured chat.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Options struct {
	State  *StateFile
	Source *Source
	Sender Sender
	Clock  clock.Clock
	Logger *slog.Logger
	// Intn picks the random slang row; rand.IntN when nil.
	Intn func(n int) int
}

type Bot struct {
	state  *StateFile
	source *Source
	sender Sender
	clock  clock.Clock
	logger *slog.Logger
	intn   func(n int) int

	// mu serializes read-modify-write cycles of the state file.
	mu         sync.Mutex
	reschedule chan struct{}
}

func New(opts Options) *Bot {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Intn == nil {
		opts.Intn = rand.Intn
	}
	return &Bot{
		state:      opts.State,
		source:     opts.Source,
		sender:     opts.Sender,
		clock:      opts.Clock,
		logger:     opts.Logger,
		intn:       opts.Intn,
		reschedule: make(chan struct{}, 1),
	}
}

func (b *Bot) loadState() State {
	st, err := b.state.Load()
	if err != nil {
		b.logger.Error("vocab state unreadable, using defaults", "path", b.state.Path(), "error", err)
	}
	return st
}

// Run sends the daily batch at the saved time until ctx is done. A /settime
// command moves the next delivery.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("vocab scheduler started")
	for {
		b.mu.Lock()
		st := b.loadState()
		b.mu.Unlock()

		next := scheduler.NextDaily(b.clock.Now(), st.Hour, st.Minute)
		b.logger.Info("next vocab delivery", "at", next.Format("2006-01-02 15:04"))

		fired := make(chan struct{})
		t := b.clock.AfterFunc(next.Sub(b.clock.Now()), func() { close(fired) })

		select {
		case <-ctx.Done():
			t.Stop()
			b.logger.Info("vocab scheduler stopped")
			return nil
		case <-b.reschedule:
			t.Stop()
		case <-fired:
			if err := b.Deliver(ctx); err != nil {
				b.logger.Error("daily vocab delivery failed", "error", err)
			}
		}
	}
}

// Deliver runs the daily job: unless paused, send the next batch.
func (b *Bot) Deliver(ctx context.Context) error {
	b.mu.Lock()
	st := b.loadState()
	if st.Paused {
		b.mu.Unlock()
		b.logger.Info("vocab delivery paused")
		return nil
	}
	text, err := b.nextBatch(st, msgEmptyDaily, msgResetDaily)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	for _, part := range Split(text) {
		if err := b.sender.Send(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

// nextBatch takes the next batch_size entries, wrapping to the start when the
// cursor is past the end, and saves the advanced cursor before returning the
// message. Callers hold mu.
func (b *Bot) nextBatch(st State, emptyMsg, resetMsg string) (string, error) {
	entries, err := b.source.Entries()
	if err != nil {
		return "", fmt.Errorf("loading vocabulary: %w", err)
	}
	if len(entries) == 0 {
		return emptyMsg, nil
	}

	prefix := ""
	if st.Index >= len(entries) {
		st.Index = 0
		prefix = resetMsg
	}
	end := min(st.Index+st.BatchSize, len(entries))
	batch := entries[st.Index:end]
	st.Index = end

	if err := b.state.Save(st); err != nil {
		return "", fmt.Errorf("saving vocab state: %w", err)
	}
	return renderBatch(batch, prefix), nil
}

// Handle answers a chat command. ok is false for text that is not a known
// command.
func (b *Bot) Handle(ctx context.Context, text string) (reply string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	// Commands may be addressed as /next@SomeBot.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	b.mu.Lock()
	defer b.mu.Unlock()

	switch cmd {
	case "/start":
		return formatSettings(b.loadState(), b.state.Path()), true
	case "/status":
		total := 0
		if entries, err := b.source.Entries(); err != nil {
			b.logger.Error("loading vocabulary for status", "error", err)
		} else {
			total = len(entries)
		}
		return formatStatus(b.loadState(), total, b.state.Path()), true
	case "/next":
		reply, err := b.nextBatch(b.loadState(), msgEmptyNext, msgResetNext)
		if err != nil {
			b.logger.Error("sending next batch", "error", err)
			return esc("⚠️ " + err.Error()), true
		}
		return reply, true
	case "/setbatch":
		return b.setBatch(args), true
	case "/settime":
		return b.setTime(args), true
	case "/pause":
		return b.setPaused(true), true
	case "/resume":
		return b.setPaused(false), true
	case "/slang":
		return b.randomSlang(), true
	}
	return "", false
}

func (b *Bot) save(st State) string {
	if err := b.state.Save(st); err != nil {
		b.logger.Error("saving vocab state", "error", err)
		return esc("⚠️ " + err.Error())
	}
	return ""
}

func (b *Bot) setBatch(args []string) string {
	if len(args) == 0 {
		return usageSetBatch
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > MaxBatchSize {
		return invalidBatch
	}
	st := b.loadState()
	st.BatchSize = n
	if msg := b.save(st); msg != "" {
		return msg
	}
	return fmt.Sprintf("✅ Batch set to %d.", n)
}

func (b *Bot) setTime(args []string) string {
	if len(args) == 0 {
		return usageSetTime
	}
	hh, mm, ok := parseClock(args[0])
	if !ok {
		return invalidSetTime
	}
	st := b.loadState()
	st.Hour, st.Minute = hh, mm
	if msg := b.save(st); msg != "" {
		return msg
	}

	select {
	case b.reschedule <- struct{}{}:
	default:
	}
	return esc(fmt.Sprintf("⏰ Time set to %02d:%02d (24h). Saved to %s", hh, mm, filepath.Base(b.state.Path())))
}

func (b *Bot) setPaused(paused bool) string {
	st := b.loadState()
	st.Paused = paused
	if msg := b.save(st); msg != "" {
		return msg
	}
	if paused {
		return msgPaused
	}
	return msgResumed
}

func (b *Bot) randomSlang() string {
	slang, err := b.source.Slang()
	if err != nil {
		b.logger.Error("loading slang", "error", err)
	}
	if len(slang) == 0 {
		return msgNoSlang
	}
	return formatSlang(slang[b.intn(len(slang))])
}

// parseClock parses 24-hour "HH:MM".
func parseClock(s string) (int, int, bool) {
	hs, ms, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, false
	}
	hh, err := strconv.Atoi(hs)
	if err != nil || hh < 0 || hh > 23 {
		return 0, 0, false
	}
	mm, err := strconv.Atoi(ms)
	if err != nil || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}
