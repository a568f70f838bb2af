package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/domain"
)

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(ctx, update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) isOwner(user *tgbotapi.User) bool {
	return user != nil && user.ID == b.ownerID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.isOwner(msg.From) {
		b.reply(chatID, "⛔ Access denied")
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.reply(chatID, "Send /help for the list of commands")
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if !b.isOwner(callback.From) {
		b.answer(callback.ID, "⛔ Access denied")
		return
	}

	parts := strings.SplitN(callback.Data, ":", 2)
	if len(parts) != 2 {
		return
	}

	switch parts[0] {
	case "del":
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return
		}

		if err := b.calendar.DeleteEvent(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				b.answer(callback.ID, "Event already deleted")
				return
			}
			b.logger.Error("delete from callback", zap.Int64("id", id), zap.Error(err))
			b.answer(callback.ID, "❌ Delete failed")
			return
		}

		b.answer(callback.ID, "🗑 Deleted")
		if callback.Message != nil {
			edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, "🗑 Event deleted")
			if _, err := b.api.Request(edit); err != nil {
				b.logger.Warn("edit message failed", zap.Error(err))
			}
		}
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Warn("answer callback failed", zap.Error(err))
	}
}
