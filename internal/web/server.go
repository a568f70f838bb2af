// Package web serves the calendar page, its form actions, the JSON API and
// the iCalendar feed.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tazhate/familycal/config"
	"github.com/tazhate/familycal/internal/calendar"
	"github.com/tazhate/familycal/internal/page"
	"github.com/tazhate/familycal/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

type Server struct {
	cfg    *config.Config
	events *service.EventService
	page   *page.Controller
	logger *zap.Logger
	tmpl   *template.Template
	server *http.Server
}

func New(cfg *config.Config, events *service.EventService, ctrl *page.Controller, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"displayDate": calendar.DisplayDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		events: events,
		page:   ctrl,
		logger: logger.Named("web"),
		tmpl:   tmpl,
	}
	s.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the full route table wrapped in auth and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Page
	mux.HandleFunc("GET /{$}", s.pageIndex)
	mux.HandleFunc("POST /add", s.pageOpenAdd)
	mux.HandleFunc("POST /add/close", s.pageCloseAdd)
	mux.HandleFunc("POST /events", s.pageCreate)
	mux.HandleFunc("POST /events/{id}", s.pageUpdate)
	mux.HandleFunc("POST /events/{id}/edit", s.pageEdit)
	mux.HandleFunc("POST /edit/close", s.pageCloseEdit)
	mux.HandleFunc("POST /events/{id}/delete", s.pageDelete)
	mux.HandleFunc("POST /select", s.pageSelect)
	mux.HandleFunc("POST /day/close", s.pageCloseDay)

	// JSON API
	mux.HandleFunc("GET /api/events", s.apiListEvents)
	mux.HandleFunc("POST /api/events", s.apiCreateEvent)
	mux.HandleFunc("GET /api/events/{id}", s.apiGetEvent)
	mux.HandleFunc("PUT /api/events/{id}", s.apiUpdateEvent)
	mux.HandleFunc("DELETE /api/events/{id}", s.apiDeleteEvent)
	mux.HandleFunc("GET /api/dates", s.apiDates)
	mux.HandleFunc("GET /api/today", s.apiToday)
	mux.HandleFunc("POST /api/import", s.apiImport)

	// iCalendar feed
	mux.HandleFunc("GET /calendar.ics", s.icsFeed)

	return s.logRequests(s.basicAuth(mux))
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.server.Addr), zap.Bool("auth", s.cfg.APIEnabled()))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// basicAuth guards everything except /health once credentials are configured
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.APIEnabled() || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok || username != s.cfg.APIUsername || password != s.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="FamilyCal"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
