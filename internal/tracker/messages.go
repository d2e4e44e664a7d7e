package tracker

import (
	"fmt"
	"time"
)

const clockFormat = "03:04 PM"

const (
	replyNoActiveQuery = "No active query to respond to."
	replyTooLate       = "Sorry, too late! Already logged as no response."
)

// NoResponse is the label recorded for a slot nobody answered.
const NoResponse = "No response"

func promptText(name string, start, end time.Time) string {
	greeting := "Hey!"
	if name != "" {
		greeting = fmt.Sprintf("Hey %s!", name)
	}
	return fmt.Sprintf("%s What are you doing for the upcoming half hour? (%s - %s) 📅",
		greeting, start.Format(clockFormat), end.Format(clockFormat))
}

func helpText(name string) string {
	greeting := "Hi!"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s!", name)
	}
	return greeting + " I ask every half hour what you are doing. Reply with an activity, " +
		"e.g. \"Reading\" or \"Coding for 2 hours\". To fix an earlier slot: \"For 9:00AM-10:00AM: Gym\"."
}

func noResponseText(start, end time.Time) string {
	return fmt.Sprintf("Got it: %s for %s-%s", NoResponse, start.Format(clockFormat), end.Format(clockFormat))
}

func singleText(label string, start, end time.Time) string {
	return fmt.Sprintf("Got it: %s for %s-%s", label, start.Format(clockFormat), end.Format(clockFormat))
}

func multiText(label string, start, end time.Time) string {
	return fmt.Sprintf("Got it: %s from %s to %s 🚀", label, start.Format(clockFormat), end.Format(clockFormat))
}
