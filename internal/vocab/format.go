package vocab

import (
	"fmt"
	"html"
	"strings"
)

const (
	batchHeading   = "<b>Heutige Vokabeln</b>"
	msgNoNewWords  = "🎉 Keine neuen Wörter verfügbar."
	msgEmptyDaily  = "📭 In der Vokabelliste wurden keine Einträge gefunden."
	msgEmptyNext   = "📭 Keine Vokabeln zum Versenden gefunden."
	msgResetDaily  = "🔄 Alle Wörter wurden bereits versendet – beginne wieder von vorne."
	msgResetNext   = "🔄 Alle Wörter wurden bereits versendet – starte wieder am Anfang."
	msgNoSlang     = "No slang sheet found."
	msgPaused      = "⏸️ Paused (saved)."
	msgResumed     = "▶️ Resumed (saved)."
	usageSetBatch  = "Usage: /setbatch 8"
	invalidBatch   = "Enter a number 1–100."
	usageSetTime   = "Usage: /settime HH:MM (24h). Example: /settime 09:00"
	invalidSetTime = "Use HH:MM in 24h format. Example: /settime 15:30"
)

var esc = html.EscapeString

// MaxMessageLen is Telegram's limit for one message. Counting bytes never
// undercounts it.
const MaxMessageLen = 4096

// Split breaks text at blank lines into messages of at most MaxMessageLen
// bytes. Entries never straddle two messages; a single block over the limit
// is sent on its own.
func Split(text string) []string {
	if len(text) <= MaxMessageLen {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
	)
	for _, block := range strings.Split(text, "\n\n") {
		if cur.Len() > 0 && cur.Len()+2+len(block) > MaxMessageLen {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(block)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func formatEntry(e Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "• <b>%s</b> — <i>%s</i>\n", esc(e.German), esc(e.English))
	fmt.Fprintf(&sb, "   📝 %s", esc(e.Example))
	if p := strings.TrimSpace(e.Prompt); p != "" && p != "nan" {
		fmt.Fprintf(&sb, "\n   💬 %s", esc(p))
	}
	fmt.Fprintf(&sb, "\n   <code>%s</code>", esc(e.Theme))
	return sb.String()
}

// renderBatch formats a batch, or the "no new words" notice when it is empty.
// A non-empty prefix is put above the batch.
func renderBatch(batch []Entry, prefix string) string {
	if len(batch) == 0 {
		return msgNoNewWords
	}
	rows := make([]string, len(batch))
	for i, e := range batch {
		rows[i] = formatEntry(e)
	}
	text := batchHeading + "\n\n" + strings.Join(rows, "\n\n")
	if prefix != "" {
		text = prefix + "\n\n" + text
	}
	return text
}

func formatSlang(s Slang) string {
	return fmt.Sprintf("🗯️ <b>%s</b> — <i>%s</i>\n   📝 %s", esc(s.Expression), esc(s.English), esc(s.Example))
}

func formatSettings(st State, statePath string) string {
	return esc(fmt.Sprintf("⏱️ Time (24h): %02d:%02d\n📦 Batch: %d\n⏸️ Paused: %t\n💾 State: %s",
		st.Hour, st.Minute, st.BatchSize, st.Paused, statePath))
}

func formatStatus(st State, total int, statePath string) string {
	return esc(fmt.Sprintf("📊 Index: %d / %d\n📦 Batch: %d\n⏱️ Time (24h): %02d:%02d\n⏸️ Paused: %t\n💾 State file: %s",
		st.Index, total, st.BatchSize, st.Hour, st.Minute, st.Paused, statePath))
}
