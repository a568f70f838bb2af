package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/bot"
	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// EventSource lists the events the jobs look at
type EventSource interface {
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

type Scheduler struct {
	cron     *cron.Cron
	cfg      *config.Config
	events   EventSource
	sender   MessageSender
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.Mutex
	reminded map[string]time.Time // reminder key -> event start
}

func New(cfg *config.Config, events EventSource, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(cfg.Timezone)),
		cfg:      cfg,
		events:   events,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
		reminded: make(map[string]time.Time),
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// morningSpec turns "HH:MM" into a daily cron spec
func morningSpec(clock string) (string, error) {
	hour, minute, err := calendar.ParseClock(clock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Start registers the jobs and runs them until ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	spec, err := morningSpec(s.cfg.MorningTime)
	if err != nil {
		return fmt.Errorf("morning time: %w", err)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.morningBriefing(ctx) }); err != nil {
		return fmt.Errorf("add morning briefing: %w", err)
	}

	if s.cfg.ReminderMinutes > 0 {
		if _, err := s.cron.AddFunc("* * * * *", func() { s.checkReminders(ctx) }); err != nil {
			return fmt.Errorf("add reminder check: %w", err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("timezone", s.cfg.Timezone.String()),
		zap.String("morning", s.cfg.MorningTime),
		zap.Int("reminder_minutes", s.cfg.ReminderMinutes),
	)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) localNow() time.Time {
	return s.now().In(s.cfg.Timezone)
}

func (s *Scheduler) morningBriefing(ctx context.Context) {
	if s.sender == nil {
		return
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		s.logger.Error("list events for briefing", zap.Error(err))
		return
	}

	summary := calendar.Summarize(events, s.localNow())
	text := "☀️ <b>Good morning!</b>\n\n" + bot.FormatSummary(summary)

	if err := s.sender.SendMessage(s.cfg.OwnerTelegramID, text); err != nil {
		s.logger.Error("send morning briefing", zap.Error(err))
	}
}

func reminderKey(e domain.Event) string {
	return fmt.Sprintf("%d|%s|%s", e.ID, e.EventDate, e.EventTime)
}

// checkReminders sends one message per event starting within the next
// ReminderMinutes. An edited date or time re-arms the reminder.
func (s *Scheduler) checkReminders(ctx context.Context) {
	if s.sender == nil || s.cfg.ReminderMinutes <= 0 {
		return
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		s.logger.Error("list events for reminders", zap.Error(err))
		return
	}

	now := s.localNow()
	horizon := now.Add(time.Duration(s.cfg.ReminderMinutes) * time.Minute)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, start := range s.reminded {
		if start.Before(now) {
			delete(s.reminded, key)
		}
	}

	for _, e := range events {
		start, err := calendar.Timestamp(e.EventDate, e.EventTime, s.cfg.Timezone)
		if err != nil || !start.After(now) || start.After(horizon) {
			continue
		}

		key := reminderKey(e)
		if _, done := s.reminded[key]; done {
			continue
		}

		minutes := int(math.Ceil(start.Sub(now).Minutes()))
		if err := s.sender.SendMessage(s.cfg.OwnerTelegramID, bot.FormatReminder(e, minutes)); err != nil {
			s.logger.Error("send reminder", zap.Int64("id", e.ID), zap.Error(err))
			continue
		}
		s.reminded[key] = start
	}
}
