// Package tui is the terminal front end: a local chat console that stands in
// for Telegram, and the day view printed by "slotlog status".
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Responder answers one user message.
type Responder func(ctx context.Context, text string) (string, error)

const (
	maxLines     = 200
	replyTimeout = 30 * time.Second
)

type speaker int

const (
	fromBot speaker = iota
	fromUser
	fromError
)

type line struct {
	from speaker
	text string
	at   time.Time
}

// botMsg is an unsolicited message, such as a slot prompt.
type botMsg struct {
	text string
	at   time.Time
}

type replyMsg struct {
	text string
	err  error
	at   time.Time
}

// Console is a bubbletea model of a chat with the tracker.
type Console struct {
	title   string
	input   inputModel
	spinner spinner.Model
	waiting bool
	lines   []line
	height  int

	respond Responder
	now     func() time.Time
}

func NewConsole(title string, respond Responder) *Console {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &Console{
		title:   title,
		input:   newInputModel(),
		spinner: s,
		respond: respond,
		now:     time.Now,
	}
}

func (c *Console) Init() tea.Cmd {
	return c.input.textarea.Focus()
}

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.height = msg.Height
		c.input.SetWidth(min(msg.Width, 80))
		return c, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return c, tea.Quit
		case "enter":
			return c, c.submit()
		}
	case botMsg:
		c.append(line{from: fromBot, text: msg.text, at: msg.at})
		return c, nil
	case replyMsg:
		c.waiting = false
		if msg.err != nil {
			c.append(line{from: fromError, text: msg.err.Error(), at: msg.at})
		} else {
			c.append(line{from: fromBot, text: msg.text, at: msg.at})
		}
		return c, nil
	case spinner.TickMsg:
		if !c.waiting {
			return c, nil
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

func (c *Console) submit() tea.Cmd {
	text := strings.TrimSpace(c.input.Value())
	if text == "" || c.waiting {
		return nil
	}
	c.input.Reset()
	c.append(line{from: fromUser, text: text, at: c.now()})
	c.waiting = true
	return tea.Batch(c.spinner.Tick, c.ask(text))
}

func (c *Console) ask(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
		defer cancel()

		reply, err := c.respond(ctx, text)
		return replyMsg{text: reply, err: err, at: c.now()}
	}
}

func (c *Console) append(l line) {
	c.lines = append(c.lines, l)
	if len(c.lines) > maxLines {
		c.lines = c.lines[len(c.lines)-maxLines:]
	}
}

func (c *Console) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(c.title))
	sb.WriteString("\n")

	lines := c.lines
	if c.height > 8 && len(lines) > c.height-8 {
		lines = lines[len(lines)-(c.height-8):]
	}
	if len(lines) == 0 {
		sb.WriteString(dimStyle.Render("Waiting for the next half hour..."))
		sb.WriteString("\n")
	}
	for _, l := range lines {
		sb.WriteString(dimStyle.Render(l.at.Format("15:04")))
		sb.WriteString(" ")
		switch l.from {
		case fromUser:
			sb.WriteString(userStyle.Render("you: "))
			sb.WriteString(l.text)
		case fromError:
			sb.WriteString(errorStyle.Render("error: "))
			sb.WriteString(l.text)
		default:
			sb.WriteString(botStyle.Render(l.text))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	if c.waiting {
		sb.WriteString(c.spinner.View() + " ")
	}
	sb.WriteString(c.input.View())
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Enter: send • Esc/Ctrl+C: quit"))
	return sb.String()
}

// Session runs a Console as a tea.Program and lets other goroutines post
// messages into it.
type Session struct {
	program *tea.Program
	console *Console
}

func NewSession(title string, respond Responder, opts ...tea.ProgramOption) *Session {
	c := NewConsole(title, respond)
	return &Session{program: tea.NewProgram(c, opts...), console: c}
}

// Send shows text as a bot message. It is a no-op once the program exited.
func (s *Session) Send(ctx context.Context, text string) error {
	s.program.Send(botMsg{text: text, at: s.console.now()})
	return nil
}

// Run blocks until the user quits or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.program.Quit()
		case <-done:
		}
	}()

	_, err := s.program.Run()
	return err
}
