package store

import (
	"context"
	"fmt"
	"time"

	"github.com/christopherklint97/slotlog/internal/slot"
)

// Table is the durable weekly activity table keyed by (week, day, slot).
type Table interface {
	// Put writes label at the slot index of date, creating the week on first
	// use. It returns only after the change is persisted.
	Put(ctx context.Context, date time.Time, index int, label string) error
	// Week returns every label of the week starting on weekStart.
	Week(ctx context.Context, weekStart time.Time) (*Week, error)
	Close() error
}

// Week is a snapshot of one weekly section. Labels[day][index] is empty for
// slots that were never logged or were blanked.
type Week struct {
	Start  time.Time
	Labels [slot.DaysPerWeek][slot.PerDay]string
}

// Day returns the labels of the given calendar day, which must fall inside the week.
func (w *Week) Day(date time.Time) ([slot.PerDay]string, error) {
	offset, err := dayOffset(w.Start, date)
	if err != nil {
		return [slot.PerDay]string{}, err
	}
	return w.Labels[offset], nil
}

// SheetName names the weekly section starting on weekStart.
func SheetName(weekStart time.Time) string {
	return "Week_" + weekStart.Format("2006-01-02")
}

var dayNames = [slot.DaysPerWeek]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// excelEpoch is day zero of spreadsheet date serials.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// DateSerial converts a calendar date to its spreadsheet serial number.
func DateSerial(date time.Time) int {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(excelEpoch).Hours() / 24)
}

func dayOffset(weekStart, date time.Time) (int, error) {
	ws := slot.WeekStart(date)
	if !sameDate(ws, weekStart) {
		return 0, fmt.Errorf("date %s is outside week %s", date.Format("2006-01-02"), weekStart.Format("2006-01-02"))
	}
	return int(date.Weekday()), nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func checkIndex(index int) error {
	if index < 0 || index >= slot.PerDay {
		return fmt.Errorf("slot index %d out of range", index)
	}
	return nil
}
