package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

// FormatSummary renders the today card as Telegram HTML
func FormatSummary(s calendar.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📆 You have <b>%d</b> event(s) today.\n", s.Count())
	if s.Count() == 0 {
		return sb.String()
	}

	sb.WriteString("\n")
	for _, e := range s.Events {
		fmt.Fprintf(&sb, "• %s %s\n", e.EventTime, html.EscapeString(e.Title))
	}
	sb.WriteString("\n")

	if s.Next != nil {
		fmt.Fprintf(&sb, "⏰ Next: <b>%s</b> at <b>%s</b>", html.EscapeString(s.Next.Title), s.Next.EventTime)
	} else {
		sb.WriteString("✅ All events for today are done!")
	}
	return sb.String()
}

// FormatDay renders the events of one date, like the day dialog
func FormatDay(date string, events []domain.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Events on %s</b>\n\n", calendar.DisplayDate(date))
	if len(events) == 0 {
		sb.WriteString("No events on this date.")
		return sb.String()
	}

	for _, e := range events {
		fmt.Fprintf(&sb, "#%d <b>%s</b>\n%s\n", e.ID, html.EscapeString(e.Title), html.EscapeString(e.DetailLine()))
		if e.Attendees > 0 {
			fmt.Fprintf(&sb, "👥 %s\n", e.AttendeesLabel())
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatReminder renders an upcoming-event reminder
func FormatReminder(e domain.Event, minutes int) string {
	text := fmt.Sprintf("🔔 <b>%s</b> at %s", html.EscapeString(e.Title), e.EventTime)
	if minutes > 0 {
		text += fmt.Sprintf(" (in %d min)", minutes)
	}
	if e.Description != "" {
		text += "\n" + html.EscapeString(e.Description)
	}
	return text
}
