package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"planner/internal/calendar"
	"planner/internal/config"
	"planner/internal/datemath"
	appLog "planner/internal/log"
	"planner/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	tmpl *template.Template
}

func loadPages() (*pages, error) {
	tmpl, err := template.New("planner").Funcs(template.FuncMap{
		"monthName": func(m int) string { return time.Month(m).String() },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	return &pages{tmpl: tmpl}, nil
}

// pageData is the root value every template sees.
type pageData struct {
	Title string
	Owner string
	// Today is YYYY-MM-DD, compared against grid dates.
	Today string

	View    *calendar.View
	Events  []model.Event
	Event   model.Event
	Planner []plannerDay
}

// plannerDay is one column of the printable timetable.
type plannerDay struct {
	Date   datemath.Date
	Slots  []config.Slot
	Events []model.Event
}

// render executes name into a buffer first so a template error never leaves
// a half-written 200 response.
func (p *pages) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("template render failed", err, "template", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) pageData() pageData {
	return pageData{
		Title: s.cfg.Title,
		Owner: s.cfg.Owner,
		Today: s.today().String(),
	}
}

// failPage reports err as plain text with its mapped status.
func failPage(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		appLog.Error("request failed", err, "method", r.Method, "path", r.URL.Path)
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Error(w, err.Error(), status)
}
