package grammar

import (
	"math"
	"strings"
)

// MaxSlots bounds a single declaration to one day of slots.
const MaxSlots = 48

// Activity is the interpretation of a reply to a slot prompt.
type Activity struct {
	Label string
	Slots int
}

// ParseActivity reads "<activity> for <quantity> hour(s)|minute(s)". Anything
// else, including an unparseable quantity, is logged verbatim as a single
// slot.
func ParseActivity(text string) Activity {
	trimmed := strings.TrimSpace(text)
	fallback := Activity{Label: trimmed, Slots: 1}

	lower := asciiLower(trimmed)
	body, perUnit, ok := cutUnit(lower)
	if !ok {
		return fallback
	}

	// Right-most "for" first, so labels such as "waiting for Bob" survive.
	end := len(body)
	for {
		i := lastForWord(body[:end])
		if i < 0 {
			return fallback
		}
		label := strings.TrimSpace(trimmed[:i])
		if label != "" {
			if v, ok := ParseQuantity(body[i+len("for"):]); ok {
				return Activity{Label: label, Slots: slotsFor(v * perUnit)}
			}
		}
		end = i
	}
}

// cutUnit strips a trailing hour(s)/minute(s) and returns the minutes per unit.
func cutUnit(s string) (string, float64, bool) {
	s = strings.TrimSuffix(s, "s")
	switch {
	case strings.HasSuffix(s, "hour"):
		return s[:len(s)-len("hour")], 60, true
	case strings.HasSuffix(s, "minute"):
		return s[:len(s)-len("minute")], 1, true
	}
	return "", 0, false
}

// lastForWord returns the offset of the last "for" that starts a word.
func lastForWord(s string) int {
	for i := strings.LastIndex(s, "for"); i >= 0; i = strings.LastIndex(s[:i], "for") {
		if i == 0 || isSpace(s[i-1]) {
			return i
		}
	}
	return -1
}

func slotsFor(minutes float64) int {
	n := int(math.Ceil(minutes/30 - 1e-9))
	if n < 1 {
		return 1
	}
	if n > MaxSlots {
		return MaxSlots
	}
	return n
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
