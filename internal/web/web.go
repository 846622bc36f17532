package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"planner/internal/calendar"
	"planner/internal/config"
	"planner/internal/datemath"
	appLog "planner/internal/log"
	"planner/internal/model"
	"planner/internal/store"
)

// Server serves the planner: event CRUD, calendar views, the printable
// pages, the ICS feed and the last captured preview.
type Server struct {
	cfg   *config.Config
	store store.Store
	mux   *http.ServeMux
	pages *pages

	// views aggregates with the configured week length; printView always
	// uses a full seven-day week.
	views     *calendar.Aggregator
	printView *calendar.Aggregator

	// now is the clock used for "today" defaults.
	now func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides the server clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a new Server over st.
func NewServer(cfg *config.Config, st store.Store, opts ...Option) (*Server, error) {
	p, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		store: st,
		mux:   http.NewServeMux(),
		pages: p,
		views: calendar.NewAggregator(st, calendar.Options{
			WeekDays:     cfg.WeekDays,
			UpcomingDays: cfg.UpcomingDays,
		}),
		printView: calendar.NewAggregator(st, calendar.Options{
			WeekDays:     datemath.FullWeekDays,
			UpcomingDays: cfg.UpcomingDays,
		}),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Event CRUD (JSON).
	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)

	// Calendar views (JSON).
	s.mux.HandleFunc("GET /api/week", s.apiView(s.weekRequest))
	s.mux.HandleFunc("GET /api/week/{date}", s.apiView(s.weekRequest))
	s.mux.HandleFunc("GET /api/month", s.apiView(s.monthRequest))
	s.mux.HandleFunc("GET /api/month/{year}/{month}", s.apiView(s.monthRequest))
	s.mux.HandleFunc("GET /api/year", s.apiView(s.yearRequest))
	s.mux.HandleFunc("GET /api/year/{year}", s.apiView(s.yearRequest))

	// HTML pages and form posts.
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /add", s.handleFormAdd)
	s.mux.HandleFunc("GET /edit/{id}", s.handleEditPage)
	s.mux.HandleFunc("POST /edit/{id}", s.handleFormEdit)
	s.mux.HandleFunc("POST /delete/{id}", s.handleFormDelete)

	s.mux.HandleFunc("GET /week", s.redirectToday(calendar.KindWeek))
	s.mux.HandleFunc("GET /week/{date}", s.pageView(s.weekRequest, "week.html"))
	s.mux.HandleFunc("GET /month", s.redirectToday(calendar.KindMonth))
	s.mux.HandleFunc("GET /month/{year}/{month}", s.pageView(s.monthRequest, "month.html"))
	s.mux.HandleFunc("GET /year", s.redirectToday(calendar.KindYear))
	s.mux.HandleFunc("GET /year/{year}", s.pageView(s.yearRequest, "year.html"))
	s.mux.HandleFunc("GET /print/week/{date}", s.handlePrintWeek)
	s.mux.HandleFunc("GET /print/planner/{date}", s.handlePrintPlanner)

	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last PNG written by the capture job.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Capture.OutputPath)
}

func (s *Server) today() datemath.Date {
	return datemath.FromTime(s.now())
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidEvent),
		errors.Is(err, errBadInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calendar.ErrStoreUnavailable),
		errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// failJSON writes err with its mapped status. Server-side failures are
// logged and reported without internals.
func failJSON(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path == "/health" {
			return
		}
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).String(),
		)
	})
}
