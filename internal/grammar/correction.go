package grammar

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNotCorrection means the text does not have the correction shape.
	ErrNotCorrection = errors.New("not a correction")
	// ErrInvalidTime means a time matched the shape but is not a 12-hour clock time.
	ErrInvalidTime = errors.New("invalid 12-hour clock time")
	// ErrUnaligned means the range is empty or not a whole number of slots.
	ErrUnaligned = errors.New("range must span whole half-hour slots")
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Correction is a retroactive "for START-END: LABEL" declaration.
type Correction struct {
	Start ClockTime
	End   ClockTime
	Label string
}

// Duration returns the span in minutes, rolling End past midnight when it is
// not after Start.
func (c Correction) Duration() int {
	d := c.End.minutes() - c.Start.minutes()
	if d <= 0 {
		d += 24 * 60
	}
	return d
}

type rawTime struct {
	hour, minute string
	meridiem     string
}

// ParseCorrection reads "for <start>-<end>: <label>" where start and end are
// h:mm with an AM/PM marker.
func ParseCorrection(text string) (Correction, error) {
	p := &scanner{s: strings.TrimSpace(text)}

	if !p.keyword("for") || !p.space() {
		return Correction{}, ErrNotCorrection
	}
	start, ok := p.clock()
	p.skipSpace()
	if !ok || !p.dash() {
		return Correction{}, ErrNotCorrection
	}
	p.skipSpace()
	end, ok := p.clock()
	p.skipSpace()
	if !ok || !p.literal(':') {
		return Correction{}, ErrNotCorrection
	}
	label := strings.TrimSpace(p.rest())

	st, err := start.resolve()
	if err != nil {
		return Correction{}, err
	}
	et, err := end.resolve()
	if err != nil {
		return Correction{}, err
	}

	c := Correction{Start: st, End: et, Label: label}
	if st == et || c.Duration()%30 != 0 {
		return Correction{}, fmt.Errorf("%w: %s-%s", ErrUnaligned, st, et)
	}
	return c, nil
}

func (r rawTime) resolve() (ClockTime, error) {
	h, ok := parseDigits(r.hour)
	if !ok {
		return ClockTime{}, ErrInvalidTime
	}
	m, ok := parseDigits(r.minute)
	if !ok || r.meridiem == "" || h < 1 || h > 12 || m > 59 {
		return ClockTime{}, fmt.Errorf("%w: %s:%s%s", ErrInvalidTime, r.hour, r.minute, r.meridiem)
	}
	h %= 12
	if r.meridiem == "pm" {
		h += 12
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

type scanner struct {
	s   string
	pos int
}

func (p *scanner) rest() string { return p.s[p.pos:] }

func (p *scanner) keyword(word string) bool {
	if len(p.rest()) < len(word) || asciiLower(p.rest()[:len(word)]) != word {
		return false
	}
	p.pos += len(word)
	return true
}

// space consumes at least one whitespace byte.
func (p *scanner) space() bool {
	start := p.pos
	p.skipSpace()
	return p.pos > start
}

func (p *scanner) skipSpace() {
	for p.pos < len(p.s) && isSpace(p.s[p.pos]) {
		p.pos++
	}
}

func (p *scanner) literal(c byte) bool {
	if p.pos < len(p.s) && p.s[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *scanner) dash() bool {
	if p.literal('-') {
		return true
	}
	r, size := utf8.DecodeRuneInString(p.rest())
	if r == '–' || r == '—' {
		p.pos += size
		return true
	}
	return false
}

func (p *scanner) digits(min, max int) (string, bool) {
	start := p.pos
	for p.pos < len(p.s) && p.pos-start < max && p.s[p.pos] >= '0' && p.s[p.pos] <= '9' {
		p.pos++
	}
	if p.pos-start < min {
		p.pos = start
		return "", false
	}
	return p.s[start:p.pos], true
}

// clock reads h:mm followed by an optional, optionally spaced, AM/PM marker.
func (p *scanner) clock() (rawTime, bool) {
	hour, ok := p.digits(1, 2)
	if !ok || !p.literal(':') {
		return rawTime{}, false
	}
	minute, ok := p.digits(2, 2)
	if !ok {
		return rawTime{}, false
	}
	t := rawTime{hour: hour, minute: minute}

	mark := p.pos
	p.skipSpace()
	switch {
	case p.keyword("am"):
		t.meridiem = "am"
	case p.keyword("pm"):
		t.meridiem = "pm"
	default:
		p.pos = mark
	}
	return t, true
}
