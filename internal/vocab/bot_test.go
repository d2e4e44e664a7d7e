package vocab

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/christopherklint97/slotlog/internal/clock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type chanSender struct {
	sent chan string
}

func (s chanSender) Send(ctx context.Context, text string) error {
	s.sent <- text
	return nil
}

type fixture struct {
	bot   *Bot
	state *StateFile
	clock *clock.Fake
	sent  chan string
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		state: NewStateFile(filepath.Join(t.TempDir(), "vocab_state.json")),
		clock: clock.NewFake(now),
		sent:  make(chan string, 8),
	}
	f.bot = New(Options{
		State:  f.state,
		Source: NewSource(testWorkbook(t), ""),
		Sender: chanSender{f.sent},
		Clock:  f.clock,
		Intn:   func(n int) int { return n - 1 },
	})
	return f
}

func (f *fixture) handle(t *testing.T, text string) string {
	t.Helper()
	reply, ok := f.bot.Handle(context.Background(), text)
	if !ok {
		t.Fatalf("Handle(%q) not handled", text)
	}
	return reply
}

func (f *fixture) saved(t *testing.T) State {
	t.Helper()
	st, err := f.state.Load()
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func morning() time.Time {
	return time.Date(2025, time.March, 5, 8, 0, 0, 0, time.UTC)
}

func TestRenderBatch(t *testing.T) {
	got := renderBatch([]Entry{
		{Theme: "Alltag", German: "die Verabredung", English: "appointment", Example: "Ich habe eine Verabredung.", Prompt: "Hast du heute Pläne?"},
		{Theme: "R&B", German: "<laut>", English: "loud", Example: "Sehr laut.", Prompt: "nan"},
	}, "")
	want := "<b>Heutige Vokabeln</b>\n\n" +
		"• <b>die Verabredung</b> — <i>appointment</i>\n   📝 Ich habe eine Verabredung.\n   💬 Hast du heute Pläne?\n   <code>Alltag</code>\n\n" +
		"• <b>&lt;laut&gt;</b> — <i>loud</i>\n   📝 Sehr laut.\n   <code>R&amp;B</code>"
	if got != want {
		t.Errorf("renderBatch =\n%s\nwant\n%s", got, want)
	}
	if renderBatch(nil, "x") != msgNoNewWords {
		t.Error("empty batch should render the no-new-words notice")
	}
}

func TestNextAdvancesAndWraps(t *testing.T) {
	f := newFixture(t, morning())
	f.handle(t, "/setbatch 2")

	first := f.handle(t, "/next")
	if !strings.Contains(first, "die Verabredung") || !strings.Contains(first, "sich beeilen") || strings.Contains(first, "Feierabend") {
		t.Errorf("first batch:\n%s", first)
	}
	if f.saved(t).Index != 2 {
		t.Errorf("index = %d, want 2", f.saved(t).Index)
	}

	f.handle(t, "/next")
	last := f.handle(t, "/next")
	if !strings.Contains(last, "kündigen") || strings.HasPrefix(last, "🔄") {
		t.Errorf("last batch:\n%s", last)
	}
	if f.saved(t).Index != 5 {
		t.Errorf("index = %d, want 5", f.saved(t).Index)
	}

	wrapped := f.handle(t, "/next")
	if !strings.HasPrefix(wrapped, msgResetNext+"\n\n<b>Heutige Vokabeln</b>") {
		t.Errorf("wrapped batch:\n%s", wrapped)
	}
	if f.saved(t).Index != 2 {
		t.Errorf("index after wrap = %d, want 2", f.saved(t).Index)
	}
}

func TestSetBatchValidation(t *testing.T) {
	f := newFixture(t, morning())
	tests := map[string]string{
		"/setbatch":      usageSetBatch,
		"/setbatch 0":    invalidBatch,
		"/setbatch 101":  invalidBatch,
		"/setbatch many": invalidBatch,
		"/setbatch 8":    "✅ Batch set to 8.",
	}
	for cmd, want := range tests {
		if got := f.handle(t, cmd); got != want {
			t.Errorf("%s = %q, want %q", cmd, got, want)
		}
	}
	if f.saved(t).BatchSize != 8 {
		t.Errorf("batch size = %d", f.saved(t).BatchSize)
	}
}

func TestSetTimeValidation(t *testing.T) {
	f := newFixture(t, morning())
	for cmd, want := range map[string]string{
		"/settime":       usageSetTime,
		"/settime 24:00": invalidSetTime,
		"/settime 9.30":  invalidSetTime,
		"/settime 07:60": invalidSetTime,
		"/settime 15:30": "⏰ Time set to 15:30 (24h). Saved to vocab_state.json",
	} {
		if got := f.handle(t, cmd); got != want {
			t.Errorf("%s = %q, want %q", cmd, got, want)
		}
	}
	if st := f.saved(t); st.Hour != 15 || st.Minute != 30 {
		t.Errorf("saved time = %02d:%02d", st.Hour, st.Minute)
	}
}

func TestStartStatusSlang(t *testing.T) {
	f := newFixture(t, morning())
	if got := f.handle(t, "/start"); !strings.Contains(got, "⏱️ Time (24h): 09:00") || !strings.Contains(got, "📦 Batch: 10") {
		t.Errorf("/start = %q", got)
	}
	if got := f.handle(t, "/status@VocabBot"); !strings.Contains(got, "📊 Index: 0 / 5") {
		t.Errorf("/status = %q", got)
	}
	want := "🗯️ <b>Das ist mir Wurst</b> — <i>I don&#39;t care</i>\n   📝 Das ist mir echt Wurst."
	if got := f.handle(t, "/slang"); got != want {
		t.Errorf("/slang = %q, want %q", got, want)
	}
}

func TestNonCommandsIgnored(t *testing.T) {
	f := newFixture(t, morning())
	for _, text := range []string{"hello", "", "/unknown"} {
		if _, ok := f.bot.Handle(context.Background(), text); ok {
			t.Errorf("Handle(%q) handled", text)
		}
	}
}

func TestDeliverRespectsPause(t *testing.T) {
	f := newFixture(t, morning())
	if got := f.handle(t, "/pause"); got != msgPaused {
		t.Errorf("/pause = %q", got)
	}
	if err := f.bot.Deliver(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case msg := <-f.sent:
		t.Fatalf("paused bot sent %q", msg)
	default:
	}

	f.handle(t, "/resume")
	if err := f.bot.Deliver(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msg := <-f.sent; !strings.HasPrefix(msg, "<b>Heutige Vokabeln</b>") {
		t.Errorf("delivered %q", msg)
	}
}

func TestDeliverEmptyWorkbook(t *testing.T) {
	f := newFixture(t, morning())
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	writeWorkbook(t, path, sheet{name: "Leer", rows: [][]any{{"German", "English", "Example (DE)"}}})
	f.bot.source = NewSource(path, "")

	if err := f.bot.Deliver(context.Background()); err != nil {
		t.Fatal(err)
	}
	if msg := <-f.sent; msg != msgEmptyDaily {
		t.Errorf("delivered %q", msg)
	}
}

func TestDeliverSplitsLongBatch(t *testing.T) {
	f := newFixture(t, morning())
	rows := [][]any{{"German", "English", "Example (DE)"}}
	for i := 0; i < MaxBatchSize; i++ {
		rows = append(rows, []any{fmt.Sprintf("Wort%03d", i), "word", strings.Repeat("Ein ziemlich langer Beispielsatz. ", 4)})
	}
	path := filepath.Join(t.TempDir(), "long.xlsx")
	writeWorkbook(t, path, sheet{name: "Lang", rows: rows})
	f.bot.source = NewSource(path, "")
	if got := f.handle(t, fmt.Sprintf("/setbatch %d", MaxBatchSize)); !strings.HasPrefix(got, "✅") {
		t.Fatalf("/setbatch = %q", got)
	}

	if err := f.bot.Deliver(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(f.sent)
	var parts []string
	for msg := range f.sent {
		parts = append(parts, msg)
	}

	if len(parts) < 2 {
		t.Fatalf("sent %d message(s), want the batch split", len(parts))
	}
	for i, p := range parts {
		if len(p) > MaxMessageLen {
			t.Errorf("message %d is %d bytes", i, len(p))
		}
	}
	all := strings.Join(parts, "\n\n")
	if all != renderBatch(mustEntries(t, f.bot.source), "") {
		t.Error("split messages do not add up to the rendered batch")
	}
	if got := f.saved(t).Index; got != MaxBatchSize {
		t.Errorf("index = %d, want %d", got, MaxBatchSize)
	}
}

func mustEntries(t *testing.T, src *Source) []Entry {
	t.Helper()
	entries, err := src.Entries()
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestSplitShortTextUnchanged(t *testing.T) {
	if got := Split("hello"); len(got) != 1 || got[0] != "hello" {
		t.Errorf("Split = %q", got)
	}
}

// waitArmed blocks until the only armed timer is the delivery at want.
func waitArmed(t *testing.T, c *clock.Fake, want time.Time) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		d := c.Deadlines()
		if len(d) == 1 && d[0].Equal(want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("armed timers = %v, want [%v]", d, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunDeliversDailyAndReschedules(t *testing.T) {
	f := newFixture(t, morning())
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.bot.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	nine := time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)
	waitArmed(t, f.clock, nine)
	f.clock.Set(nine)
	select {
	case msg := <-f.sent:
		if !strings.Contains(msg, "die Verabredung") {
			t.Errorf("first delivery = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery at 09:00")
	}

	waitArmed(t, f.clock, nine.AddDate(0, 0, 1))
	f.handle(t, "/settime 12:00")
	noon := time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC)
	waitArmed(t, f.clock, noon)

	f.clock.Set(noon)
	select {
	case msg := <-f.sent:
		if !strings.HasPrefix(msg, msgResetDaily) {
			t.Errorf("second delivery = %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery at 12:00")
	}
}
