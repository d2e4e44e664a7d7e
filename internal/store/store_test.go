package store

import (
	"testing"
	"time"
)

func TestDateSerial(t *testing.T) {
	tests := []struct {
		date time.Time
		want int
	}{
		{time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), 61},
		{time.Date(2025, 3, 2, 23, 30, 0, 0, time.FixedZone("EET", 2*3600)), 45718},
	}
	for _, tt := range tests {
		if got := DateSerial(tt.date); got != tt.want {
			t.Errorf("DateSerial(%v) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestSheetName(t *testing.T) {
	if got := SheetName(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)); got != "Week_2025-03-02" {
		t.Errorf("SheetName = %q", got)
	}
}

func TestWeekDay(t *testing.T) {
	w := &Week{Start: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}
	w.Labels[3][28] = "Coding"

	day, err := w.Day(time.Date(2025, 3, 5, 14, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if day[28] != "Coding" {
		t.Errorf("day[28] = %q, want Coding", day[28])
	}

	if _, err := w.Day(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Error("expected error for a date in the following week")
	}
}
