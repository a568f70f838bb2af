package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.cmdHelp(chatID)
	case "today":
		b.cmdToday(ctx, chatID)
	case "date":
		b.cmdDate(ctx, chatID, args)
	case "add":
		b.cmdAdd(ctx, chatID, args)
	case "delete":
		b.cmdDelete(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. /help for the list of commands")
	}
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Commands:</b>

/today - today's summary
/date YYYY-MM-DD - events on a date
/add YYYY-MM-DD HH:MM Title | description - add an event
/delete ID - delete an event`
	b.reply(chatID, text)
}

func (b *Bot) cmdToday(ctx context.Context, chatID int64) {
	summary, err := b.calendar.Today(ctx)
	if err != nil {
		b.logger.Error("today summary", zap.Error(err))
		b.reply(chatID, "❌ Could not load events")
		return
	}
	b.reply(chatID, FormatSummary(summary))
}

func (b *Bot) cmdDate(ctx context.Context, chatID int64, args string) {
	date, ok := calendar.NormalizeDate(args)
	if !ok {
		b.reply(chatID, "Usage: /date YYYY-MM-DD")
		return
	}

	events, err := b.calendar.EventsOnDate(ctx, date)
	if err != nil {
		b.logger.Error("events on date", zap.String("date", date), zap.Error(err))
		b.reply(chatID, "❌ Could not load events")
		return
	}

	text := FormatDay(date, events)
	if kb := dayKeyboard(events); kb != nil {
		if err := b.SendMessageWithKeyboard(chatID, text, *kb); err != nil {
			b.logger.Warn("send message failed", zap.Error(err))
		}
		return
	}
	b.reply(chatID, text)
}

// parseAddArgs reads "YYYY-MM-DD HH:MM Title | description"
func parseAddArgs(args string) (domain.EventInput, bool) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return domain.EventInput{}, false
	}

	rest := strings.Join(fields[2:], " ")
	title, desc, _ := strings.Cut(rest, "|")

	return domain.EventInput{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(desc),
		EventDate:   fields[0],
		EventTime:   fields[1],
	}, true
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, args string) {
	in, ok := parseAddArgs(args)
	if !ok {
		b.reply(chatID, "Usage: /add YYYY-MM-DD HH:MM Title | description")
		return
	}

	event, err := b.calendar.CreateEvent(ctx, in)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEvent) {
			b.reply(chatID, "❌ "+html.EscapeString(err.Error()))
			return
		}
		b.logger.Error("create from bot", zap.Error(err))
		b.reply(chatID, "❌ Could not save the event")
		return
	}

	b.reply(chatID, fmt.Sprintf("✅ Added #%d <b>%s</b> on %s at %s",
		event.ID, html.EscapeString(event.Title), event.EventDate, event.EventTime))
}

func (b *Bot) cmdDelete(ctx context.Context, chatID int64, args string) {
	id, err := strconv.ParseInt(strings.TrimPrefix(args, "#"), 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /delete ID")
		return
	}

	if err := b.calendar.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Event #%d not found", id))
			return
		}
		b.logger.Error("delete from bot", zap.Int64("id", id), zap.Error(err))
		b.reply(chatID, "❌ Could not delete the event")
		return
	}

	b.reply(chatID, fmt.Sprintf("🗑 Deleted #%d", id))
}
