package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
)

// maxImportSize caps the body of POST /api/import
const maxImportSize = 5 << 20

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type EventResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"`
	EventTime   string `json:"event_time"`
	Attendees   int    `json:"attendees"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type TodayResponse struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Events  []EventResponse `json:"events"`
	Next    *EventResponse  `json:"next,omitempty"`
	AllDone bool            `json:"all_done"`
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.jsonStatus(w, http.StatusOK, data)
}

func (s *Server) jsonStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (s *Server) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// serviceError maps service errors onto status codes
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		s.jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		s.jsonError(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error("api error", zap.Error(err))
		s.jsonError(w, "Internal error", http.StatusInternalServerError)
	}
}

func eventToResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		EventDate:   e.EventDate,
		EventTime:   e.EventTime,
		Attendees:   e.Attendees,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

func eventsToResponse(events []domain.Event) []EventResponse {
	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = eventToResponse(e)
	}
	return result
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// GET /api/events - list events, ?date=YYYY-MM-DD filters to one day
func (s *Server) apiListEvents(w http.ResponseWriter, r *http.Request) {
	if date := r.URL.Query().Get("date"); date != "" {
		events, err := s.events.EventsOnDate(r.Context(), date)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		s.jsonResponse(w, eventsToResponse(events))
		return
	}

	events, err := s.events.ListEvents(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, eventsToResponse(events))
}

// POST /api/events - create event
func (s *Server) apiCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req domain.EventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	event, err := s.events.CreateEvent(r.Context(), req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonStatus(w, http.StatusCreated, eventToResponse(*event))
}

// GET /api/events/{id}
func (s *Server) apiGetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.jsonError(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	event, err := s.events.GetEvent(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, eventToResponse(*event))
}

// PUT /api/events/{id} - replace every editable field
func (s *Server) apiUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.jsonError(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	var req domain.EventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	event, err := s.events.UpdateEvent(r.Context(), id, req)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, eventToResponse(*event))
}

// DELETE /api/events/{id}
func (s *Server) apiDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.jsonError(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	if err := s.events.DeleteEvent(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, map[string]interface{}{
		"deleted": id,
		"message": "Event deleted",
	})
}

// GET /api/dates - sorted highlighted dates
func (s *Server) apiDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.events.HighlightedDates(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, dates.Sorted())
}

// GET /api/today - today's summary
func (s *Server) apiToday(w http.ResponseWriter, r *http.Request) {
	summary, err := s.events.Today(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, summaryToResponse(summary))
}

func summaryToResponse(summary calendar.Summary) TodayResponse {
	resp := TodayResponse{
		Date:    summary.Date,
		Count:   summary.Count(),
		Events:  eventsToResponse(summary.Events),
		AllDone: summary.AllDone(),
	}
	if summary.Next != nil {
		next := eventToResponse(*summary.Next)
		resp.Next = &next
	}
	return resp
}

// POST /api/import - text/calendar body
func (s *Server) apiImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportSize)
	defer body.Close()

	result, err := s.events.Import(r.Context(), body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.jsonError(w, "Calendar too large", http.StatusRequestEntityTooLarge)
			return
		}
		if result == nil {
			s.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, result)
}

// GET /calendar.ics - every event as an iCalendar feed
func (s *Server) icsFeed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="familycal.ics"`)
	if err := s.events.Export(r.Context(), w); err != nil {
		s.logger.Error("export calendar", zap.Error(err))
	}
}
