package tracker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/christopherklint97/slotlog/internal/grammar"
	"github.com/christopherklint97/slotlog/internal/slot"
)

func (m *Machine) respond(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		return helpText(m.name)
	}
	now := m.clock.Now()

	c, err := grammar.ParseCorrection(text)
	if err == nil {
		return m.correct(ctx, c, now)
	}
	if !errors.Is(err, grammar.ErrNotCorrection) {
		m.logger.Debug("correction rejected, treating reply as activity", "error", err)
	}

	start, reply, ok := m.effectiveSlot(now)
	if !ok {
		m.logger.Info("reply not accepted", "reply", reply)
		return reply
	}

	m.cancelTimeout()
	act := grammar.ParseActivity(text)
	end := start.Add(time.Duration(act.Slots) * slot.Length)

	// A shorter declaration truncates a longer one still in effect.
	if m.extensionEnd.After(end) {
		for _, t := range slot.Between(end, m.extensionEnd) {
			m.record(ctx, t, "")
		}
	}
	for _, t := range slot.Span(start, act.Slots) {
		m.record(ctx, t, act.Label)
	}

	m.current = start
	m.hasResponse = true

	if act.Slots > 1 {
		m.setExtension(end)
		m.logger.Info("logged multi-slot activity", "label", act.Label, "from", start.Format(clockFormat), "to", end.Format(clockFormat))
		return multiText(act.Label, start, end)
	}

	m.setExtension(time.Time{})
	m.armTimeout(end.Sub(m.clock.Now()))
	m.logger.Info("logged activity", "label", act.Label, "from", start.Format(clockFormat), "to", end.Format(clockFormat))
	return singleText(act.Label, start, end)
}

// effectiveSlot picks the slot a plain reply applies to. Precedence: the open
// slot, then the last slot within its grace window, then the slot containing
// now while an extension is active. The state is only changed by the caller
// once the reply is accepted.
func (m *Machine) effectiveSlot(now time.Time) (time.Time, string, bool) {
	extending := m.extendedAt(now)

	var start time.Time
	switch {
	case !m.current.IsZero():
		start = m.current
	case !m.last.IsZero() && now.Before(slot.End(m.last).Add(m.grace)):
		start = m.last
	case extending:
		start = slot.Start(now)
	default:
		return time.Time{}, replyNoActiveQuery, false
	}

	if !now.Before(slot.End(start)) {
		if !extending {
			return time.Time{}, replyTooLate, false
		}
		// Inside an extension the reply overrides from the slot it arrived in.
		start = slot.Start(now)
	}
	return start, "", true
}

// correct applies a retroactive "for START-END: LABEL" reply. It writes one
// record per slot and leaves the tracking state alone.
func (m *Machine) correct(ctx context.Context, c grammar.Correction, now time.Time) string {
	start := onDay(now, c.Start)
	if start.After(now) {
		start = start.AddDate(0, 0, -1)
	}
	end := onDay(now, c.End)
	if end.After(now) {
		end = end.AddDate(0, 0, -1)
	}
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}

	n := int(end.Sub(start) / slot.Length)
	for _, t := range slot.Span(start, n) {
		m.record(ctx, t, c.Label)
	}

	m.logger.Info("applied correction", "label", c.Label, "from", start.Format(clockFormat), "to", end.Format(clockFormat), "slots", n)
	return singleText(c.Label, start, end)
}

func onDay(day time.Time, t grammar.ClockTime) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}
