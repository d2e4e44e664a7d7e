// Package slot maps wall-clock time onto the half-hour grid used by the
// activity log.
package slot

import "time"

const (
	// Length is the width of one slot.
	Length = 30 * time.Minute
	// PerDay is the number of slots in a calendar day.
	PerDay = 48
	// DaysPerWeek is the number of day columns in a weekly table.
	DaysPerWeek = 7
)

// Start floors t to the minute and then to the enclosing :00 or :30 boundary.
func Start(t time.Time) time.Time {
	minute := 0
	if t.Minute() >= 30 {
		minute = 30
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// Next returns the start of the slot following the one starting at start.
func Next(start time.Time) time.Time {
	return start.Add(Length)
}

// End is an alias of Next that reads better at call sites dealing with a
// single slot.
func End(start time.Time) time.Time {
	return Next(start)
}

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Sunday on or before date.
func WeekStart(date time.Time) time.Time {
	d := Date(date)
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// Index returns the position of t's slot within its day, 0..47.
func Index(t time.Time) int {
	i := t.Hour() * 2
	if t.Minute() >= 30 {
		i++
	}
	return i
}

// At returns the start of slot index on the calendar day of date.
func At(date time.Time, index int) time.Time {
	d := Date(date)
	return time.Date(d.Year(), d.Month(), d.Day(), index/2, (index%2)*30, 0, 0, d.Location())
}

// Span returns the starts of n consecutive slots beginning at start.
func Span(start time.Time, n int) []time.Time {
	starts := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		starts = append(starts, start.Add(time.Duration(i)*Length))
	}
	return starts
}

// Between returns the slot starts in [from, to).
func Between(from, to time.Time) []time.Time {
	var starts []time.Time
	for t := from; t.Before(to); t = t.Add(Length) {
		starts = append(starts, t)
	}
	return starts
}
