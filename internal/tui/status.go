package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/christopherklint97/slotlog/internal/slot"
)

// RenderDay formats one day of the log, merging consecutive equal labels.
// noResponse labels are dimmed.
func RenderDay(date time.Time, labels [slot.PerDay]string, noResponse string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(date.Format("Monday, 02 Jan 2006")))
	sb.WriteString("\n")

	var rows []string
	logged, missed := 0, 0
	for i := 0; i < slot.PerDay; {
		label := labels[i]
		j := i + 1
		for j < slot.PerDay && labels[j] == label {
			j++
		}
		if label != "" {
			start := slot.At(date, i)
			end := slot.At(date, 0).Add(time.Duration(j) * slot.Length)
			row := fmt.Sprintf("  %s-%s  %-6s  %s",
				start.Format("03:04 PM"),
				end.Format("03:04 PM"),
				formatDuration(time.Duration(j-i)*slot.Length),
				label,
			)
			if label == noResponse {
				row = dimStyle.Render(row)
				missed += j - i
			} else {
				logged += j - i
			}
			rows = append(rows, row)
		}
		i = j
	}

	if len(rows) == 0 {
		sb.WriteString(warningStyle.Render("No activities logged."))
		return sb.String()
	}
	sb.WriteString(strings.Join(rows, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(subtitleStyle.Render(fmt.Sprintf("Logged %s, %d unanswered",
		formatDuration(time.Duration(logged)*slot.Length), missed)))
	return boxStyle.Render(sb.String())
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}
