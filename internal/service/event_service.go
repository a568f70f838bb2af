package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/clients/caldav"
	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/ics"
	"github.com/tazhate/familycal/internal/storage"
)

// EventService validates event input, persists it and mirrors changes to
// CalDAV when a calendar is configured
type EventService struct {
	storage  *storage.Storage
	caldav   *caldav.Client
	timezone *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewEventService creates a new event service. client may be nil.
func NewEventService(s *storage.Storage, client *caldav.Client, tz *time.Location, logger *zap.Logger) *EventService {
	if tz == nil {
		tz = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		storage:  s,
		caldav:   client,
		timezone: tz,
		logger:   logger.Named("events"),
		now:      time.Now,
	}
}

// Now returns the current time in the service timezone
func (s *EventService) Now() time.Time {
	return s.now().In(s.timezone)
}

// Normalize trims and canonicalizes the input. Dates become YYYY-MM-DD and
// times HH:MM; anything else is rejected with domain.ErrInvalidEvent.
func Normalize(in domain.EventInput) (domain.EventInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.Title == "" {
		return in, domain.FieldError("title", "cannot be empty")
	}

	date, ok := calendar.NormalizeDate(in.EventDate)
	if !ok {
		return in, domain.FieldError("event_date", "must be YYYY-MM-DD")
	}
	in.EventDate = date

	clock, ok := calendar.NormalizeTime(in.EventTime)
	if !ok {
		return in, domain.FieldError("event_time", "must be HH:MM")
	}
	in.EventTime = clock

	if in.Attendees < 0 {
		return in, domain.FieldError("attendees", "cannot be negative")
	}
	return in, nil
}

// CreateEvent validates and stores a new event
func (s *EventService) CreateEvent(ctx context.Context, in domain.EventInput) (*domain.Event, error) {
	in, err := Normalize(in)
	if err != nil {
		return nil, err
	}

	event := &domain.Event{}
	event.Apply(in)
	if err := s.storage.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Info("event created", zap.Int64("id", event.ID), zap.String("date", event.EventDate))
	s.push(ctx, event)
	return event, nil
}

// GetEvent returns an event by ID
func (s *EventService) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	event, err := s.storage.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// UpdateEvent replaces every editable field of event id
func (s *EventService) UpdateEvent(ctx context.Context, id int64, in domain.EventInput) (*domain.Event, error) {
	in, err := Normalize(in)
	if err != nil {
		return nil, err
	}

	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	event.Apply(in)
	if err := s.storage.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.logger.Info("event updated", zap.Int64("id", event.ID), zap.String("date", event.EventDate))
	s.push(ctx, event)
	return event, nil
}

// DeleteEvent removes event id
func (s *EventService) DeleteEvent(ctx context.Context, id int64) error {
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}

	s.logger.Info("event deleted", zap.Int64("id", id))

	if event.CalDAVUID != "" && s.caldav.CanPush() {
		if err := s.caldav.DeleteEvent(ctx, event.CalDAVUID); err != nil {
			s.logger.Warn("caldav delete failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	return nil
}

// ListEvents returns every event in insertion order
func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	events, err := s.storage.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// HighlightedDates returns the set of dates that have at least one event
func (s *EventService) HighlightedDates(ctx context.Context) (calendar.DateSet, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.HighlightedDates(events), nil
}

// EventsOnDate returns the events on date (YYYY-MM-DD or a datetime)
func (s *EventService) EventsOnDate(ctx context.Context, date string) ([]domain.Event, error) {
	normalized, ok := calendar.NormalizeDate(date)
	if !ok {
		return nil, domain.FieldError("date", "must be YYYY-MM-DD")
	}
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	return calendar.EventsOnDate(normalized, events), nil
}

// Today returns today's summary in the service timezone
func (s *EventService) Today(ctx context.Context) (calendar.Summary, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return calendar.Summary{}, err
	}
	return calendar.Summarize(events, s.Now()), nil
}

// Export writes every event as an iCalendar stream
func (s *EventService) Export(ctx context.Context, w io.Writer) error {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return err
	}
	if err := ics.Encode(w, events, s.timezone); err != nil {
		var encErr *ics.EncodeError
		if errors.As(err, &encErr) {
			return err
		}
		s.logger.Warn("events not exported", zap.Error(err))
	}
	return nil
}

// ImportResult counts the outcome of an iCalendar import
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Import creates one event per VEVENT in r. Invalid entries are skipped.
func (s *EventService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	inputs, unreadable, err := ics.Decode(r, s.timezone)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, err := range unreadable {
		result.Skipped++
		result.Errors = append(result.Errors, err.Error())
	}
	for _, in := range inputs {
		if _, err := s.CreateEvent(ctx, in); err != nil {
			if !errors.Is(err, domain.ErrInvalidEvent) {
				return result, err
			}
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %v", in.Title, err))
			continue
		}
		result.Imported++
	}

	s.logger.Info("calendar imported", zap.Int("imported", result.Imported), zap.Int("skipped", result.Skipped))
	return result, nil
}

// push mirrors event to CalDAV. Failures are logged, the local write stands.
func (s *EventService) push(ctx context.Context, event *domain.Event) {
	if !s.caldav.CanPush() {
		return
	}

	uid, err := s.caldav.PutEvent(ctx, *event, s.timezone)
	if err != nil {
		s.logger.Warn("caldav push failed", zap.Int64("id", event.ID), zap.Error(err))
		return
	}

	if uid != event.CalDAVUID {
		if err := s.storage.SetEventCalDAVUID(ctx, event.ID, uid); err != nil {
			s.logger.Warn("save caldav uid", zap.Int64("id", event.ID), zap.Error(err))
			return
		}
		event.CalDAVUID = uid
	}
}
