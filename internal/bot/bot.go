package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

// Calendar is the part of the event service the bot uses
type Calendar interface {
	CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	EventsOnDate(ctx context.Context, date string) ([]domain.Event, error)
	Today(ctx context.Context) (calendar.Summary, error)
}

type Bot struct {
	api      *tgbotapi.BotAPI
	ownerID  int64
	calendar Calendar
	logger   *zap.Logger
}

// New connects to the Bot API with token
func New(token string, ownerID int64, cal Calendar, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, ownerID, cal, logger), nil
}

// NewWithEndpoint is New against a custom Bot API endpoint
// ("https://host/bot%s/%s")
func NewWithEndpoint(token, endpoint string, ownerID int64, cal Calendar, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, ownerID, cal, logger), nil
}

func newBot(api *tgbotapi.BotAPI, ownerID int64, cal Calendar, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bot{
		api:      api,
		ownerID:  ownerID,
		calendar: cal,
		logger:   logger.Named("bot"),
	}
	b.logger.Info("authorized", zap.String("username", api.Self.UserName))
	return b
}

// SetCommands publishes the command menu
func (b *Bot) SetCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "today", Description: "📆 Today's summary"},
		{Command: "date", Description: "🗓 Events on a date"},
		{Command: "add", Description: "➕ Add an event"},
		{Command: "delete", Description: "🗑 Delete an event"},
		{Command: "help", Description: "❓ Help"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		b.logger.Warn("failed to set commands", zap.Error(err))
	}
}

// Start long-polls for updates until ctx is done
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMessage(chatID, text); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
