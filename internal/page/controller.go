// Package page holds the server-side state of the calendar page: which
// dialog is open, which event is being edited, the selected date and the
// pending toasts. State only changes through the Controller's transitions.
package page

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

var (
	// ErrDialogOpen is returned when opening a dialog while another one is open.
	ErrDialogOpen = errors.New("another dialog is open")
	// ErrInvalidTransition is returned when an action does not apply to the current mode.
	ErrInvalidTransition = errors.New("action not allowed in current mode")
)

// Mode is the UI mode of the page. At most one dialog is open at a time.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeAdding     Mode = "adding"
	ModeEditing    Mode = "editing"
	ModeViewingDay Mode = "viewing-day"
)

// maxToasts bounds the toast queue between renders
const maxToasts = 5

// EventStore is the persistence the controller drives
type EventStore interface {
	CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error)
	UpdateEvent(ctx context.Context, id int64, in domain.EventInput) (*domain.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
}

// Toast is a transient notification shown once on the next render
type Toast struct {
	Title       string
	Description string
}

// State is a snapshot of the page's UI state
type State struct {
	Mode         Mode
	SelectedDate string
	Editing      *domain.Event // set in ModeEditing
	DayDate      string        // set in ModeViewingDay
	DayEvents    []domain.Event
	FormError    string             // last failed submit, shown in the open form
	FormInput    *domain.EventInput // values of the failed submit
}

// View is everything the page template needs for one render
type View struct {
	Events      []domain.Event
	Highlighted calendar.DateSet
	Summary     calendar.Summary
	Month       calendar.Month
	State       State
	Toasts      []Toast
	Today       string
}

// Controller owns the page state. Every transition holds the lock, including
// across store calls, so page mutations never overlap.
type Controller struct {
	mu        sync.Mutex
	store     EventStore
	state     State
	toasts    []Toast
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
	logger    *zap.Logger
}

// NewController creates a controller in idle mode with today selected
func NewController(store EventStore, loc *time.Location, weekStart time.Weekday, logger *zap.Logger) *Controller {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		store:     store,
		loc:       loc,
		weekStart: weekStart,
		now:       time.Now,
		logger:    logger.Named("page"),
	}
	c.state = State{Mode: ModeIdle, SelectedDate: calendar.ISODate(c.today())}
	return c
}

func (c *Controller) today() time.Time {
	return c.now().In(c.loc)
}

// State returns a copy of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	if s.Editing != nil {
		ev := *s.Editing
		s.Editing = &ev
	}
	if s.FormInput != nil {
		in := *s.FormInput
		s.FormInput = &in
	}
	if s.DayEvents != nil {
		s.DayEvents = append([]domain.Event(nil), s.DayEvents...)
	}
	return s
}

func (c *Controller) clearForm() {
	c.state.FormError = ""
	c.state.FormInput = nil
}

func (c *Controller) toIdle() {
	c.state.Mode = ModeIdle
	c.state.Editing = nil
	c.state.DayDate = ""
	c.state.DayEvents = nil
	c.clearForm()
}

// OpenAdd opens the create form
func (c *Controller) OpenAdd() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeIdle {
		return ErrDialogOpen
	}
	c.state.Mode = ModeAdding
	c.clearForm()
	return nil
}

// CloseAdd closes the create form without saving
func (c *Controller) CloseAdd() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeAdding {
		return ErrInvalidTransition
	}
	c.toIdle()
	return nil
}

// SubmitCreate stores a new event and closes the form once the store has
// acknowledged it. On failure the form stays open with the error.
func (c *Controller) SubmitCreate(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeAdding {
		return nil, ErrInvalidTransition
	}

	event, err := c.store.CreateEvent(ctx, in)
	if err != nil {
		c.state.FormError = err.Error()
		c.state.FormInput = &in
		c.logger.Debug("create failed", zap.Error(err))
		return nil, err
	}

	c.toIdle()
	return event, nil
}

// EditEvent opens the update form for event
func (c *Controller) EditEvent(event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeIdle {
		return ErrDialogOpen
	}
	c.state.Mode = ModeEditing
	c.state.Editing = &event
	c.clearForm()
	return nil
}

// CloseEdit closes the update form without saving
func (c *Controller) CloseEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeEditing {
		return ErrInvalidTransition
	}
	c.toIdle()
	return nil
}

// SubmitUpdate saves the edited event and closes the form once the store has
// acknowledged it. id must be the event the form was opened for.
func (c *Controller) SubmitUpdate(ctx context.Context, id int64, in domain.EventInput) (*domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeEditing || c.state.Editing == nil || c.state.Editing.ID != id {
		return nil, ErrInvalidTransition
	}

	event, err := c.store.UpdateEvent(ctx, id, in)
	if err != nil {
		c.state.FormError = err.Error()
		c.state.FormInput = &in
		c.logger.Debug("update failed", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	c.toIdle()
	return event, nil
}

// SelectDate handles a click on the date picker. A blank or unparseable date
// is ignored. Otherwise a toast is queued and, if the date has events and no
// dialog is open, the day dialog opens with them.
func (c *Controller) SelectDate(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	date, ok := calendar.NormalizeDate(raw)
	if !ok {
		c.logger.Debug("ignoring unparseable date", zap.String("date", raw))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeIdle {
		c.pushToast(selectedToast(date))
		return nil
	}

	events, err := c.store.ListEvents(ctx)
	if err != nil {
		return err
	}
	c.pushToast(selectedToast(date))

	matches := calendar.EventsOnDate(date, events)
	if len(matches) == 0 {
		return nil
	}

	c.state.Mode = ModeViewingDay
	c.state.SelectedDate = date
	c.state.DayDate = date
	c.state.DayEvents = matches
	return nil
}

func selectedToast(date string) Toast {
	return Toast{
		Title:       "Date Selected",
		Description: "Selected " + calendar.DisplayDate(date),
	}
}

// pushToast queues t, dropping the oldest toasts beyond maxToasts
func (c *Controller) pushToast(t Toast) {
	c.toasts = append(c.toasts, t)
	if over := len(c.toasts) - maxToasts; over > 0 {
		c.toasts = append(c.toasts[:0:0], c.toasts[over:]...)
	}
}

// DismissDay closes the day dialog
func (c *Controller) DismissDay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Mode != ModeViewingDay {
		return ErrInvalidTransition
	}
	c.toIdle()
	return nil
}

// Delete removes an event. The mode is unchanged; an open day dialog drops
// the deleted event from its list.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.DeleteEvent(ctx, id); err != nil {
		return err
	}

	if c.state.Mode == ModeViewingDay {
		kept := make([]domain.Event, 0, len(c.state.DayEvents))
		for _, e := range c.state.DayEvents {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		c.state.DayEvents = kept
	}
	return nil
}

// View assembles a render of the page for month ("YYYY-MM"; empty or
// invalid shows the month of the selected date) and drains the toasts.
func (c *Controller) View(ctx context.Context, month string) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	events, err := c.store.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	now := c.today()
	today := calendar.ISODate(now)
	highlighted := calendar.HighlightedDates(events)

	year, mon, ok := calendar.ParseMonthKey(month)
	if !ok {
		anchor, err := calendar.ParseDate(c.state.SelectedDate, c.loc)
		if err != nil {
			anchor = now
		}
		year, mon = anchor.Year(), anchor.Month()
	}

	v := &View{
		Events:      events,
		Highlighted: highlighted,
		Summary:     calendar.Summarize(events, now),
		Month:       calendar.NewMonth(year, mon, c.weekStart, highlighted, c.state.SelectedDate, today),
		State:       c.snapshot(),
		Toasts:      c.toasts,
		Today:       today,
	}
	c.toasts = nil
	return v, nil
}
