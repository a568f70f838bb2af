package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tazhate/familycal/internal/domain"
)

// Delete buttons for a day listing, one row per event
func dayKeyboard(events []domain.Event) *tgbotapi.InlineKeyboardMarkup {
	if len(events) == 0 {
		return nil
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range events {
		title := e.Title
		if len([]rune(title)) > 24 {
			title = string([]rune(title)[:24]) + "…"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+e.EventTime+" "+title, fmt.Sprintf("del:%d", e.ID)),
		))
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}
