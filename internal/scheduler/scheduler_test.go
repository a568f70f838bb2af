package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/domain"
)

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
	err   error
}

func (r *recordingSender) SendMessage(chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.chats = append(r.chats, chatID)
	r.texts = append(r.texts, text)
	return nil
}

type staticEvents []domain.Event

func (s *staticEvents) ListEvents(context.Context) ([]domain.Event, error) {
	return append([]domain.Event{}, (*s)...), nil
}

func newTestScheduler(events *staticEvents, now time.Time) (*Scheduler, *recordingSender) {
	cfg := &config.Config{
		Timezone:        time.UTC,
		OwnerTelegramID: 42,
		MorningTime:     "08:00",
		ReminderMinutes: 15,
	}
	s := New(cfg, events, zap.NewNop())
	s.now = func() time.Time { return now }
	sender := &recordingSender{}
	s.SetSender(sender)
	return s, sender
}

func TestMorningSpec(t *testing.T) {
	spec, err := morningSpec("07:30")
	require.NoError(t, err)
	assert.Equal(t, "30 7 * * *", spec)

	_, err = morningSpec("7h30")
	assert.Error(t, err)
}

func TestMorningBriefing(t *testing.T) {
	events := &staticEvents{
		{ID: 1, Title: "School run", EventDate: "2024-06-01", EventTime: "08:30"},
		{ID: 2, Title: "Tomorrow", EventDate: "2024-06-02", EventTime: "08:30"},
	}
	s, sender := newTestScheduler(events, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))

	s.morningBriefing(context.Background())

	require.Len(t, sender.texts, 1)
	assert.Equal(t, int64(42), sender.chats[0])
	assert.Contains(t, sender.texts[0], "Good morning!")
	assert.Contains(t, sender.texts[0], "You have <b>1</b> event(s) today.")
	assert.Contains(t, sender.texts[0], "Next: <b>School run</b>")
}

func TestCheckRemindersSendsOnce(t *testing.T) {
	events := &staticEvents{
		{ID: 1, Title: "Soon", EventDate: "2024-06-01", EventTime: "09:10"},
		{ID: 2, Title: "Later", EventDate: "2024-06-01", EventTime: "10:00"},
		{ID: 3, Title: "Past", EventDate: "2024-06-01", EventTime: "08:55"},
	}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s, sender := newTestScheduler(events, now)
	ctx := context.Background()

	s.checkReminders(ctx)
	s.checkReminders(ctx)

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "Soon")
	assert.Contains(t, sender.texts[0], "in 10 min")

	// moving the event re-arms its reminder
	(*events)[0].EventTime = "09:12"
	s.checkReminders(ctx)
	assert.Len(t, sender.texts, 2)
}

func TestCheckRemindersAcrossMidnight(t *testing.T) {
	events := &staticEvents{
		{ID: 1, Title: "Midnight snack", EventDate: "2024-06-02", EventTime: "00:05"},
	}
	s, sender := newTestScheduler(events, time.Date(2024, 6, 1, 23, 55, 0, 0, time.UTC))

	s.checkReminders(context.Background())
	assert.Len(t, sender.texts, 1)
}

func TestCheckRemindersRetriesAfterSendFailure(t *testing.T) {
	events := &staticEvents{{ID: 1, Title: "Soon", EventDate: "2024-06-01", EventTime: "09:05"}}
	s, sender := newTestScheduler(events, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	sender.err = errors.New("telegram down")
	s.checkReminders(ctx)
	assert.Empty(t, s.reminded)

	sender.err = nil
	s.checkReminders(ctx)
	assert.Len(t, sender.texts, 1)
}

func TestCheckRemindersPrunesPastKeys(t *testing.T) {
	events := &staticEvents{{ID: 1, Title: "Soon", EventDate: "2024-06-01", EventTime: "09:05"}}
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s, _ := newTestScheduler(events, now)
	ctx := context.Background()

	s.checkReminders(ctx)
	require.Len(t, s.reminded, 1)

	s.now = func() time.Time { return now.Add(10 * time.Minute) }
	s.checkReminders(ctx)
	assert.Empty(t, s.reminded)
}

func TestNoSenderIsNoop(t *testing.T) {
	events := &staticEvents{{ID: 1, Title: "Soon", EventDate: "2024-06-01", EventTime: "09:05"}}
	s, _ := newTestScheduler(events, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	s.SetSender(nil)

	s.morningBriefing(context.Background())
	s.checkReminders(context.Background())
	assert.Empty(t, s.reminded)
}

func TestStartStop(t *testing.T) {
	s, _ := newTestScheduler(&staticEvents{}, time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.Stop()
}
