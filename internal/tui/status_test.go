package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/slotlog/internal/slot"
)

func TestRenderDay(t *testing.T) {
	var labels [slot.PerDay]string
	labels[18] = "Gym"
	labels[19] = "Gym"
	labels[28] = "Coding"
	labels[29] = "No response"
	labels[47] = "Sleep"

	out := RenderDay(time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), labels, "No response")
	for _, want := range []string{
		"Wednesday, 05 Mar 2025",
		"09:00 AM-10:00 AM  1h      Gym",
		"02:00 PM-02:30 PM  30m     Coding",
		"11:30 PM-12:00 AM  30m     Sleep",
		"Logged 2h, 1 unanswered",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDayEmpty(t *testing.T) {
	out := RenderDay(time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC), [slot.PerDay]string{}, "No response")
	if !strings.Contains(out, "No activities logged.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Minute:  "30m",
		time.Hour:         "1h",
		150 * time.Minute: "2h30m",
	}
	for d, want := range tests {
		if got := formatDuration(d); got != want {
			t.Errorf("formatDuration(%v) = %q, want %q", d, got, want)
		}
	}
}
