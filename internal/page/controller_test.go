package page

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/domain"
)

// memStore is an in-memory EventStore. failNext makes the next mutation fail,
// failList the next read.
type memStore struct {
	mu       sync.Mutex
	events   []domain.Event
	nextID   int64
	failNext error
	failList error
}

func (s *memStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

func (s *memStore) CreateEvent(_ context.Context, in domain.EventInput) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, domain.FieldError("title", "cannot be empty")
	}
	s.nextID++
	e := domain.Event{ID: s.nextID}
	e.Apply(in)
	s.events = append(s.events, e)
	return &e, nil
}

func (s *memStore) UpdateEvent(_ context.Context, id int64, in domain.EventInput) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Apply(in)
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) DeleteEvent(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *memStore) ListEvents(context.Context) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failList; err != nil {
		s.failList = nil
		return nil, err
	}
	return append([]domain.Event{}, s.events...), nil
}

var testNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, seed ...domain.EventInput) (*Controller, *memStore) {
	t.Helper()
	store := &memStore{}
	for _, in := range seed {
		_, err := store.CreateEvent(context.Background(), in)
		require.NoError(t, err)
	}
	c := NewController(store, time.UTC, time.Monday, zap.NewNop())
	c.now = func() time.Time { return testNow }
	c.state.SelectedDate = "2024-06-01"
	return c, store
}

func in(title, date, clock string) domain.EventInput {
	return domain.EventInput{Title: title, EventDate: date, EventTime: clock}
}

func TestNewControllerStartsIdle(t *testing.T) {
	c := NewController(&memStore{}, time.UTC, time.Monday, nil)
	st := c.State()
	assert.Equal(t, ModeIdle, st.Mode)
	assert.NotEmpty(t, st.SelectedDate)
}

func TestAddFlow(t *testing.T) {
	c, store := newTestController(t)
	ctx := context.Background()

	_, err := c.SubmitCreate(ctx, in("x", "2024-06-02", "10:00"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, c.OpenAdd())
	assert.Equal(t, ModeAdding, c.State().Mode)
	require.NoError(t, c.CloseAdd())
	assert.Equal(t, ModeIdle, c.State().Mode)
	assert.ErrorIs(t, c.CloseAdd(), ErrInvalidTransition)

	require.NoError(t, c.OpenAdd())
	created, err := c.SubmitCreate(ctx, in("Picnic", "2024-06-02", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "Picnic", created.Title)
	assert.Equal(t, ModeIdle, c.State().Mode)
	assert.Len(t, store.events, 1)

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	assert.True(t, v.Highlighted.Has("2024-06-02"))
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	c, store := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.OpenAdd())
	store.failNext = errors.New("disk full")
	_, err := c.SubmitCreate(ctx, in("Picnic", "2024-06-02", "10:00"))
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, ModeAdding, st.Mode)
	assert.Equal(t, "disk full", st.FormError)
	require.NotNil(t, st.FormInput)
	assert.Equal(t, "Picnic", st.FormInput.Title)

	_, err = c.SubmitCreate(ctx, in("Picnic", "2024-06-02", "10:00"))
	require.NoError(t, err)
	st = c.State()
	assert.Equal(t, ModeIdle, st.Mode)
	assert.Empty(t, st.FormError)
	assert.Nil(t, st.FormInput)
}

func TestEditFlow(t *testing.T) {
	c, store := newTestController(t, in("Swim", "2024-06-01", "09:00"), in("Run", "2024-06-01", "07:00"))
	ctx := context.Background()

	target := store.events[0]
	require.NoError(t, c.EditEvent(target))
	st := c.State()
	assert.Equal(t, ModeEditing, st.Mode)
	require.NotNil(t, st.Editing)
	assert.Equal(t, target.ID, st.Editing.ID)

	_, err := c.SubmitUpdate(ctx, store.events[1].ID, in("x", "2024-06-01", "09:00"))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := c.SubmitUpdate(ctx, target.ID, in("Swim (pool)", "2024-06-03", "09:30"))
	require.NoError(t, err)
	assert.Equal(t, "Swim (pool)", updated.Title)
	assert.Equal(t, ModeIdle, c.State().Mode)

	require.NoError(t, c.EditEvent(store.events[1]))
	require.NoError(t, c.CloseEdit())
	assert.Equal(t, ModeIdle, c.State().Mode)
	assert.ErrorIs(t, c.CloseEdit(), ErrInvalidTransition)
}

func TestDialogsAreMutuallyExclusive(t *testing.T) {
	c, store := newTestController(t, in("Swim", "2024-06-01", "09:00"))
	ctx := context.Background()

	require.NoError(t, c.OpenAdd())
	assert.ErrorIs(t, c.EditEvent(store.events[0]), ErrDialogOpen)
	assert.ErrorIs(t, c.OpenAdd(), ErrDialogOpen)
	require.NoError(t, c.SelectDate(ctx, "2024-06-01"))
	assert.Equal(t, ModeAdding, c.State().Mode)
	require.NoError(t, c.CloseAdd())

	require.NoError(t, c.EditEvent(store.events[0]))
	assert.ErrorIs(t, c.OpenAdd(), ErrDialogOpen)
	require.NoError(t, c.CloseEdit())

	require.NoError(t, c.SelectDate(ctx, "2024-06-01"))
	assert.Equal(t, ModeViewingDay, c.State().Mode)
	assert.ErrorIs(t, c.OpenAdd(), ErrDialogOpen)
	assert.ErrorIs(t, c.EditEvent(store.events[0]), ErrDialogOpen)
	assert.ErrorIs(t, c.CloseAdd(), ErrInvalidTransition)
}

func TestSelectDateOpensDayDialog(t *testing.T) {
	c, _ := newTestController(t,
		in("A", "2024-06-03", "09:00"),
		in("B", "2024-06-04", "09:00"),
		in("C", "2024-06-03", "07:00"),
	)
	ctx := context.Background()

	require.NoError(t, c.SelectDate(ctx, "2024-06-03T00:00:00Z"))
	st := c.State()
	assert.Equal(t, ModeViewingDay, st.Mode)
	assert.Equal(t, "2024-06-03", st.DayDate)
	assert.Equal(t, "2024-06-03", st.SelectedDate)
	require.Len(t, st.DayEvents, 2)
	assert.Equal(t, "A", st.DayEvents[0].Title)
	assert.Equal(t, "C", st.DayEvents[1].Title)

	require.NoError(t, c.DismissDay())
	st = c.State()
	assert.Equal(t, ModeIdle, st.Mode)
	assert.Empty(t, st.DayEvents)
	assert.ErrorIs(t, c.DismissDay(), ErrInvalidTransition)
}

func TestSelectDateWithoutEvents(t *testing.T) {
	c, _ := newTestController(t, in("A", "2024-06-03", "09:00"))
	ctx := context.Background()

	require.NoError(t, c.SelectDate(ctx, "2024-06-05"))
	st := c.State()
	assert.Equal(t, ModeIdle, st.Mode)
	assert.Equal(t, "2024-06-01", st.SelectedDate)

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	require.Len(t, v.Toasts, 1)
	assert.Equal(t, "Date Selected", v.Toasts[0].Title)
	assert.Equal(t, "Selected Wed Jun 05 2024", v.Toasts[0].Description)
}

func TestSelectDateIgnoresBlankAndGarbage(t *testing.T) {
	c, _ := newTestController(t, in("A", "2024-06-03", "09:00"))
	ctx := context.Background()

	require.NoError(t, c.SelectDate(ctx, ""))
	require.NoError(t, c.SelectDate(ctx, "   "))
	require.NoError(t, c.SelectDate(ctx, "tomorrow"))

	assert.Equal(t, ModeIdle, c.State().Mode)
	v, err := c.View(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, v.Toasts)
}

func TestDeletePrunesDayDialog(t *testing.T) {
	c, store := newTestController(t, in("A", "2024-06-03", "09:00"), in("B", "2024-06-03", "10:00"))
	ctx := context.Background()

	require.NoError(t, c.SelectDate(ctx, "2024-06-03"))
	require.NoError(t, c.Delete(ctx, store.events[0].ID))

	st := c.State()
	assert.Equal(t, ModeViewingDay, st.Mode)
	require.Len(t, st.DayEvents, 1)
	assert.Equal(t, "B", st.DayEvents[0].Title)

	require.NoError(t, c.Delete(ctx, st.DayEvents[0].ID))
	st = c.State()
	assert.Equal(t, ModeViewingDay, st.Mode)
	assert.Empty(t, st.DayEvents)

	assert.ErrorIs(t, c.Delete(ctx, 999), domain.ErrNotFound)
}

func TestDeleteKeepsMode(t *testing.T) {
	c, store := newTestController(t, in("A", "2024-06-03", "09:00"), in("B", "2024-06-04", "10:00"))
	ctx := context.Background()

	require.NoError(t, c.OpenAdd())
	require.NoError(t, c.Delete(ctx, store.events[0].ID))
	assert.Equal(t, ModeAdding, c.State().Mode)

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	assert.False(t, v.Highlighted.Has("2024-06-03"))
	assert.True(t, v.Highlighted.Has("2024-06-04"))
}

func TestViewSummaryAndMonth(t *testing.T) {
	c, _ := newTestController(t,
		in("A", "2024-06-01", "09:00"),
		in("B", "2024-06-01", "07:00"),
		in("C", "2024-06-02", "12:00"),
	)
	ctx := context.Background()

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", v.Today)
	assert.Equal(t, 2, v.Summary.Count())
	require.NotNil(t, v.Summary.Next)
	assert.Equal(t, "A", v.Summary.Next.Title)
	assert.Equal(t, "2024-06", v.Month.Key())
	assert.Len(t, v.Events, 3)

	v, err = c.View(ctx, "2024-07")
	require.NoError(t, err)
	assert.Equal(t, "2024-07", v.Month.Key())

	v, err = c.View(ctx, "not-a-month")
	require.NoError(t, err)
	assert.Equal(t, "2024-06", v.Month.Key())
}

func TestViewDrainsToasts(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.SelectDate(ctx, "2024-06-10"))
	require.NoError(t, c.SelectDate(ctx, "2024-06-11"))

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	assert.Len(t, v.Toasts, 2)

	v, err = c.View(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, v.Toasts)
}

func TestSelectDateStoreFailureQueuesNoToast(t *testing.T) {
	c, store := newTestController(t, in("A", "2024-06-03", "09:00"))
	ctx := context.Background()

	store.failList = errors.New("database is locked")
	assert.Error(t, c.SelectDate(ctx, "2024-06-03"))
	assert.Equal(t, ModeIdle, c.State().Mode)

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, v.Toasts)
}

func TestToastsAreCapped(t *testing.T) {
	c, _ := newTestController(t)
	ctx := context.Background()

	for day := 1; day <= maxToasts+3; day++ {
		date := time.Date(2024, 7, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		require.NoError(t, c.SelectDate(ctx, date))
	}

	v, err := c.View(ctx, "")
	require.NoError(t, err)
	require.Len(t, v.Toasts, maxToasts)
	assert.Equal(t, "Selected Thu Jul 04 2024", v.Toasts[0].Description)
	assert.Equal(t, "Selected Mon Jul 08 2024", v.Toasts[maxToasts-1].Description)
}

func TestStateIsACopy(t *testing.T) {
	c, store := newTestController(t, in("A", "2024-06-03", "09:00"))
	require.NoError(t, c.SelectDate(context.Background(), "2024-06-03"))

	st := c.State()
	st.DayEvents[0].Title = "changed"
	assert.Equal(t, "A", c.State().DayEvents[0].Title)

	require.NoError(t, c.DismissDay())
	require.NoError(t, c.EditEvent(store.events[0]))
	st = c.State()
	st.Editing.Title = "changed"
	assert.Equal(t, "A", c.State().Editing.Title)
}
