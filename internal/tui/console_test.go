package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// collect runs cmd and any batched commands, returning the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func typeText(c *Console, text string) {
	c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func newTestConsole(respond Responder) *Console {
	c := NewConsole("slotlog", respond)
	c.now = func() time.Time { return time.Date(2025, time.March, 5, 14, 10, 0, 0, time.UTC) }
	return c
}

func TestConsoleSubmitsAndShowsReply(t *testing.T) {
	var asked string
	c := newTestConsole(func(ctx context.Context, text string) (string, error) {
		asked = text
		return "Got it: Coding for 02:00 PM-02:30 PM", nil
	})

	typeText(c, "Coding")
	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !c.waiting {
		t.Fatal("console not waiting after submit")
	}
	if c.input.Value() != "" {
		t.Errorf("input not cleared: %q", c.input.Value())
	}

	for _, msg := range collect(cmd) {
		c.Update(msg)
	}
	if asked != "Coding" {
		t.Errorf("responder got %q", asked)
	}
	if c.waiting {
		t.Error("still waiting after reply")
	}

	view := c.View()
	for _, want := range []string{"you: ", "Coding", "Got it: Coding for 02:00 PM-02:30 PM", "14:10"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestConsoleIgnoresEmptyInput(t *testing.T) {
	c := newTestConsole(func(ctx context.Context, text string) (string, error) {
		t.Fatal("responder called")
		return "", nil
	})
	typeText(c, "   ")
	if _, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("expected no command for blank input")
	}
	if len(c.lines) != 0 {
		t.Errorf("lines = %v", c.lines)
	}
}

func TestConsoleShowsErrors(t *testing.T) {
	c := newTestConsole(func(ctx context.Context, text string) (string, error) {
		return "", errors.New("tracker stopped")
	})
	typeText(c, "Reading")
	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyEnter})
	for _, msg := range collect(cmd) {
		c.Update(msg)
	}
	if !strings.Contains(c.View(), "error: tracker stopped") {
		t.Errorf("view:\n%s", c.View())
	}
}

func TestConsolePromptsAndQuits(t *testing.T) {
	c := newTestConsole(nil)
	c.Update(botMsg{text: "Hey Mo! What are you doing for the upcoming half hour?", at: c.now()})
	if !strings.Contains(c.View(), "Hey Mo!") {
		t.Errorf("prompt not shown:\n%s", c.View())
	}

	_, cmd := c.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c did not quit")
	}
}

func TestConsoleKeepsBoundedHistory(t *testing.T) {
	c := newTestConsole(nil)
	for i := 0; i < maxLines+10; i++ {
		c.Update(botMsg{text: "x", at: c.now()})
	}
	if len(c.lines) != maxLines {
		t.Errorf("lines = %d, want %d", len(c.lines), maxLines)
	}
}
