package web

import (
	"fmt"
	"net/http"
	"strings"

	"planner/internal/calendar"
	"planner/internal/ics"
	appLog "planner/internal/log"
	"planner/internal/store"
)

// requestFunc resolves the view request from path values, falling back to
// query parameters and then to today.
type requestFunc func(r *http.Request) (calendar.Request, error)

func param(r *http.Request, name string) string {
	if v := r.PathValue(name); v != "" {
		return v
	}
	return r.URL.Query().Get(name)
}

func (s *Server) weekRequest(r *http.Request) (calendar.Request, error) {
	return calendar.WeekRequest(param(r, "date"), s.today())
}

func (s *Server) monthRequest(r *http.Request) (calendar.Request, error) {
	return calendar.MonthRequest(param(r, "year"), param(r, "month"), s.today())
}

func (s *Server) yearRequest(r *http.Request) (calendar.Request, error) {
	return calendar.YearRequest(param(r, "year"), s.today())
}

// wantsJSON reports whether a page route should answer with the view model.
func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

func (s *Server) aggregate(r *http.Request, agg *calendar.Aggregator, resolve requestFunc) (calendar.View, error) {
	req, err := resolve(r)
	if err != nil {
		return calendar.View{}, err
	}
	v, err := agg.Aggregate(r.Context(), req)
	if err != nil {
		return calendar.View{}, err
	}
	logSkipped(v)
	return v, nil
}

func logSkipped(v calendar.View) {
	for _, sk := range v.Skipped {
		appLog.Warn("event skipped during aggregation",
			"view", string(v.Kind),
			"event_id", sk.EventID,
			"date", sk.Date,
			"reason", sk.Reason,
		)
	}
}

func (s *Server) apiView(resolve requestFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.aggregate(r, s.views, resolve)
		if err != nil {
			failJSON(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) pageView(resolve requestFunc, tmpl string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asJSON := wantsJSON(r)
		v, err := s.aggregate(r, s.views, resolve)
		if err != nil {
			if asJSON {
				failJSON(w, r, err)
			} else {
				failPage(w, r, err)
			}
			return
		}
		if asJSON {
			writeJSON(w, http.StatusOK, v)
			return
		}
		data := s.pageData()
		data.View = &v
		s.pages.render(w, http.StatusOK, tmpl, data)
	}
}

// redirectToday sends /week, /month and /year to the canonical page for the
// requested (or current) period.
func (s *Server) redirectToday(kind calendar.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			req calendar.Request
			err error
		)
		switch kind {
		case calendar.KindWeek:
			req, err = s.weekRequest(r)
		case calendar.KindMonth:
			req, err = s.monthRequest(r)
		default:
			req, err = s.yearRequest(r)
		}
		if err != nil {
			failPage(w, r, err)
			return
		}

		var target string
		switch kind {
		case calendar.KindWeek:
			target = "/week/" + req.Reference.String()
		case calendar.KindMonth:
			target = fmt.Sprintf("/month/%d/%d", req.Year, req.Month)
		default:
			target = fmt.Sprintf("/year/%d", req.Year)
		}
		if q := r.URL.Query().Get("format"); q != "" {
			target += "?format=" + q
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// handlePrintWeek renders the full Monday to Sunday page captured to PNG.
func (s *Server) handlePrintWeek(w http.ResponseWriter, r *http.Request) {
	v, err := s.aggregate(r, s.printView, s.weekRequest)
	if err != nil {
		failPage(w, r, err)
		return
	}
	data := s.pageData()
	data.View = &v
	s.pages.render(w, http.StatusOK, "print_week.html", data)
}

// handlePrintPlanner renders the weekly timetable: the configured slots for
// each day of the week next to that day's events.
func (s *Server) handlePrintPlanner(w http.ResponseWriter, r *http.Request) {
	v, err := s.aggregate(r, s.views, s.weekRequest)
	if err != nil {
		failPage(w, r, err)
		return
	}
	days := make([]plannerDay, 0, len(v.Days))
	for _, d := range v.Days {
		days = append(days, plannerDay{
			Date:   d.Date,
			Slots:  s.cfg.Slots(d.Date.Time().Weekday()),
			Events: d.Events,
		})
	}
	data := s.pageData()
	data.View = &v
	data.Planner = days
	s.pages.render(w, http.StatusOK, "print_planner.html", data)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.LoadAll(r.Context())
	if err != nil {
		failPage(w, r, fmt.Errorf("%w: %w", store.ErrUnavailable, err))
		return
	}
	store.SortByDate(events)
	data := s.pageData()
	data.Events = events
	s.pages.render(w, http.StatusOK, "index.html", data)
}

// handleICS exports every stored event as an iCalendar feed.
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.LoadAll(r.Context())
	if err != nil {
		failJSON(w, r, fmt.Errorf("%w: %w", store.ErrUnavailable, err))
		return
	}
	store.SortByDate(events)
	body := ics.Export(s.cfg.Title, events, s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
