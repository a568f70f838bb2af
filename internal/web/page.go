package web

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/domain"
	"github.com/tazhate/familycal/internal/page"
)

// formData holds the values shown in the add or edit form
type formData struct {
	Action string
	Close  string
	Submit string
	Title  string
	Input  domain.EventInput
	Error  string
}

type pageData struct {
	*page.View
	MonthKey string
	Form     *formData
}

func (s *Server) newPageData(v *page.View) pageData {
	data := pageData{View: v, MonthKey: v.Month.Key()}
	st := v.State

	switch st.Mode {
	case page.ModeAdding:
		in := domain.EventInput{EventDate: st.SelectedDate}
		if st.FormInput != nil {
			in = *st.FormInput
		}
		data.Form = &formData{
			Action: "/events",
			Close:  "/add/close",
			Submit: "Add Event",
			Title:  "Add New Event",
			Input:  in,
			Error:  st.FormError,
		}
	case page.ModeEditing:
		in := st.Editing.Input()
		if st.FormInput != nil {
			in = *st.FormInput
		}
		data.Form = &formData{
			Action: "/events/" + strconv.FormatInt(st.Editing.ID, 10),
			Close:  "/edit/close",
			Submit: "Update Event",
			Title:  "Edit Event",
			Input:  in,
			Error:  st.FormError,
		}
	}
	return data
}

// GET / - render the page
func (s *Server) pageIndex(w http.ResponseWriter, r *http.Request) {
	v, err := s.page.View(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "calendar.html", s.newPageData(v)); err != nil {
		s.logger.Error("execute template", zap.Error(err))
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// redirect sends the browser back to the page, keeping the displayed month
func redirect(w http.ResponseWriter, r *http.Request) {
	target := "/"
	if _, _, ok := calendar.ParseMonthKey(r.FormValue("month")); ok {
		target += "?month=" + url.QueryEscape(strings.TrimSpace(r.FormValue("month")))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// transitionDone reloads the page after a controller transition. Rejected
// actions (double submit, back button) are expected and only logged at
// debug; a failed submit is already recorded as the form error.
func (s *Server) transitionDone(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
	case errors.Is(err, page.ErrDialogOpen),
		errors.Is(err, page.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidEvent),
		errors.Is(err, domain.ErrNotFound):
		s.logger.Debug("page action rejected", zap.String("path", r.URL.Path), zap.Error(err))
	default:
		s.logger.Error("page action failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	redirect(w, r)
}

func formInput(r *http.Request) domain.EventInput {
	attendees, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("attendees")))
	return domain.EventInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		EventDate:   r.FormValue("event_date"),
		EventTime:   r.FormValue("event_time"),
		Attendees:   attendees,
	}
}

// POST /add
func (s *Server) pageOpenAdd(w http.ResponseWriter, r *http.Request) {
	s.transitionDone(w, r, s.page.OpenAdd())
}

// POST /add/close
func (s *Server) pageCloseAdd(w http.ResponseWriter, r *http.Request) {
	s.transitionDone(w, r, s.page.CloseAdd())
}

// POST /events - submit the add form
func (s *Server) pageCreate(w http.ResponseWriter, r *http.Request) {
	_, err := s.page.SubmitCreate(r.Context(), formInput(r))
	s.transitionDone(w, r, err)
}

// POST /events/{id}/edit - open the edit form
func (s *Server) pageEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	event, err := s.events.GetEvent(r.Context(), id)
	if err != nil {
		s.transitionDone(w, r, err)
		return
	}
	s.transitionDone(w, r, s.page.EditEvent(*event))
}

// POST /events/{id} - submit the edit form
func (s *Server) pageUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}

	_, err := s.page.SubmitUpdate(r.Context(), id, formInput(r))
	s.transitionDone(w, r, err)
}

// POST /edit/close
func (s *Server) pageCloseEdit(w http.ResponseWriter, r *http.Request) {
	s.transitionDone(w, r, s.page.CloseEdit())
}

// POST /events/{id}/delete
func (s *Server) pageDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid event ID", http.StatusBadRequest)
		return
	}
	s.transitionDone(w, r, s.page.Delete(r.Context(), id))
}

// POST /select - a click on the date picker
func (s *Server) pageSelect(w http.ResponseWriter, r *http.Request) {
	s.transitionDone(w, r, s.page.SelectDate(r.Context(), r.FormValue("date")))
}

// POST /day/close
func (s *Server) pageCloseDay(w http.ResponseWriter, r *http.Request) {
	s.transitionDone(w, r, s.page.DismissDay())
}
