// Package grammar recognises the small reply language understood by the
// tracker: quantities, "X for N hours" declarations and retroactive
// "for 9:00AM-10:00AM: X" corrections.
package grammar

import (
	"math"
	"strconv"
	"strings"
)

var numberWords = map[string]float64{
	"zero":    0,
	"one":     1,
	"two":     2,
	"three":   3,
	"four":    4,
	"five":    5,
	"six":     6,
	"seven":   7,
	"eight":   8,
	"nine":    9,
	"ten":     10,
	"half":    0.5,
	"quarter": 0.25,
}

var fractionWords = map[string]float64{
	"half":    0.5,
	"quarter": 0.25,
}

// ParseQuantity converts "1.5", "90", "one and a half", "1 1/2" or "3/4" into
// a number. The boolean is false when no rule matches.
func ParseQuantity(text string) (float64, bool) {
	s := asciiLower(strings.TrimSpace(text))
	if s == "" {
		return 0, false
	}
	if v, ok := numberWords[s]; ok {
		return v, true
	}
	if v, ok := parseDecimal(s); ok {
		return v, true
	}

	fields := strings.Fields(s)
	if v, ok := parseCompound(fields); ok {
		return v, true
	}
	return parseFraction(fields)
}

func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseCompound handles "<base> and [a] half|quarter".
func parseCompound(fields []string) (float64, bool) {
	if len(fields) < 3 || fields[1] != "and" {
		return 0, false
	}
	rest := fields[2:]
	if len(rest) == 2 && rest[0] == "a" {
		rest = rest[1:]
	}
	if len(rest) != 1 {
		return 0, false
	}
	frac, ok := fractionWords[rest[0]]
	if !ok {
		return 0, false
	}
	base, ok := ParseQuantity(fields[0])
	if !ok {
		return 0, false
	}
	return base + frac, true
}

// parseFraction handles "<int> <int>/<int>" and "<int>/<int>".
func parseFraction(fields []string) (float64, bool) {
	switch len(fields) {
	case 1:
		return parseRatio(fields[0])
	case 2:
		whole, ok := parseDigits(fields[0])
		if !ok {
			return 0, false
		}
		frac, ok := parseRatio(fields[1])
		if !ok {
			return 0, false
		}
		return float64(whole) + frac, true
	}
	return 0, false
}

func parseRatio(s string) (float64, bool) {
	num, den, found := strings.Cut(s, "/")
	if !found {
		return 0, false
	}
	n, ok := parseDigits(num)
	if !ok {
		return 0, false
	}
	d, ok := parseDigits(den)
	if !ok || d == 0 {
		return 0, false
	}
	return float64(n) / float64(d), true
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// asciiLower lowercases ASCII letters only, so byte offsets stay valid for
// the original string.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
