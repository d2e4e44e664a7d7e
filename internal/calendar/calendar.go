// Package calendar converts logged weeks to and from iCalendar.
package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/christopherklint97/slotlog/internal/slot"
	"github.com/christopherklint97/slotlog/internal/store"
)

const prodID = "-//slotlog//activity log//EN"

// uidSpace namespaces event UIDs so re-exporting a week yields the same UIDs.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/christopherklint97/slotlog"))

func eventUID(e Event) string {
	return uuid.NewSHA1(uidSpace, []byte(e.StartTime.UTC().Format(time.RFC3339)+"|"+e.Summary)).String()
}

// Event is a run of consecutive slots with the same label.
type Event struct {
	Summary   string
	StartTime time.Time
	EndTime   time.Time
}

// Events merges consecutive equal labels of a week into events. Runs continue
// across midnight. Labels listed in skip are left out.
func Events(week *store.Week, skip ...string) []Event {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var (
		events []Event
		cur    *Event
	)
	for day := 0; day < slot.DaysPerWeek; day++ {
		date := week.Start.AddDate(0, 0, day)
		for i, label := range week.Labels[day] {
			start := slot.At(date, i)
			if label == "" || skipped[label] {
				cur = nil
				continue
			}
			if cur != nil && cur.Summary == label && cur.EndTime.Equal(start) {
				cur.EndTime = slot.End(start)
				continue
			}
			events = append(events, Event{Summary: label, StartTime: start, EndTime: slot.End(start)})
			cur = &events[len(events)-1]
		}
	}
	return events
}

// Export writes events as one VCALENDAR. stamp is used for DTSTAMP.
func Export(w io.Writer, events []Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for _, e := range events {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, eventUID(e))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
		ev.Props.SetText(ical.PropSummary, e.Summary)
		cal.Children = append(cal.Children, ev.Component)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

// Read parses the events of an iCalendar stream that overlap
// [windowStart, windowEnd), in loc.
func Read(r io.Reader, windowStart, windowEnd time.Time, loc *time.Location) ([]Event, error) {
	dec := ical.NewDecoder(r)
	var events []Event

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing calendar: %w", err)
		}

		for _, component := range cal.Children {
			if component.Name != ical.CompEvent {
				continue
			}
			event := ical.Event{Component: component}

			start, err := event.DateTimeStart(loc)
			if err != nil {
				continue // skip malformed events
			}
			end, err := event.DateTimeEnd(loc)
			if err != nil {
				continue
			}

			if start.Before(windowEnd) && end.After(windowStart) {
				summary, _ := event.Props.Text(ical.PropSummary)
				if summary != "" {
					events = append(events, Event{
						Summary:   summary,
						StartTime: start.In(loc),
						EndTime:   end.In(loc),
					})
				}
			}
		}
	}

	return events, nil
}
