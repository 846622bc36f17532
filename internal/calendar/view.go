// Package calendar turns a snapshot of events into week, month and year view
// models. Aggregation is a single synchronous pass with no shared state; the
// same snapshot and request always produce the same View.
package calendar

import (
	"errors"
	"fmt"
	"strings"

	"planner/internal/datemath"
	"planner/internal/model"
)

var (
	// ErrInvalidRequest marks malformed or out-of-range view parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMalformedEventDate is recorded (never returned) for events whose
	// stored date cannot be parsed.
	ErrMalformedEventDate = errors.New("malformed event date")
	// ErrStoreUnavailable wraps failures of the event source.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Kind selects the view.
type Kind string

const (
	KindWeek  Kind = "week"
	KindMonth Kind = "month"
	KindYear  Kind = "year"
)

// ParseKind accepts "week", "month" or "year" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindWeek, KindMonth, KindYear:
		return k, nil
	default:
		return "", fmt.Errorf("%w: view must be week, month or year, got %q", ErrInvalidRequest, s)
	}
}

// Day is one grid cell.
type Day struct {
	Date datemath.Date `json:"date"`
	// InPeriod is false for padding days outside [Start, End].
	InPeriod bool          `json:"in_period"`
	Events   []model.Event `json:"events"`
}

// Month is one year-view bucket.
type Month struct {
	Month  int           `json:"month"`
	Events []model.Event `json:"events"`
}

// Anchor is a navigation target. Week anchors carry Date; month anchors carry
// Year and Month; year anchors carry Year.
type Anchor struct {
	Kind  Kind          `json:"kind"`
	Date  datemath.Date `json:"date,omitzero"`
	Year  int           `json:"year,omitempty"`
	Month int           `json:"month,omitempty"`
}

// IsZero reports whether a is "no target".
func (a Anchor) IsZero() bool { return a.Kind == "" }

// Path is the URL path of the anchored page, e.g. /month/2026/1.
func (a Anchor) Path() string {
	switch a.Kind {
	case KindWeek:
		return "/week/" + a.Date.String()
	case KindMonth:
		return fmt.Sprintf("/month/%d/%d", a.Year, a.Month)
	default:
		return fmt.Sprintf("/year/%d", a.Year)
	}
}

// Skipped records an event left out because its date did not parse.
type Skipped struct {
	EventID string `json:"event_id"`
	Date    string `json:"date"`
	Reason  string `json:"reason"`
}

// View is the renderer-ready result of aggregation.
type View struct {
	Kind  Kind          `json:"kind"`
	Start datemath.Date `json:"start"`
	End   datemath.Date `json:"end"`

	// Days is set for week and month views, in grid order.
	Days []Day `json:"days,omitempty"`
	// Months is set for year views and always has twelve entries.
	Months []Month `json:"months,omitempty"`

	UpcomingStart datemath.Date `json:"upcoming_start"`
	UpcomingEnd   datemath.Date `json:"upcoming_end"`
	Upcoming      []model.Event `json:"upcoming"`

	// Prev and Next are zero at the edges of the supported year range.
	Prev Anchor `json:"prev,omitzero"`
	Next Anchor `json:"next,omitzero"`

	Skipped []Skipped `json:"skipped,omitempty"`
}

// Bucket returns the events for an ISO date and whether the date is on the
// grid.
func (v View) Bucket(iso string) ([]model.Event, bool) {
	for _, d := range v.Days {
		if d.Date.String() == iso {
			return d.Events, true
		}
	}
	return nil, false
}

// MonthEvents returns the year-view bucket for month 1–12.
func (v View) MonthEvents(month int) ([]model.Event, bool) {
	if month < 1 || month > len(v.Months) {
		return nil, false
	}
	return v.Months[month-1].Events, true
}

// EventCount counts bucketed events, excluding the upcoming list.
func (v View) EventCount() int {
	n := 0
	for _, d := range v.Days {
		n += len(d.Events)
	}
	for _, m := range v.Months {
		n += len(m.Events)
	}
	return n
}

// Weeks splits Days into rows of seven for month grids.
func (v View) Weeks() [][]Day {
	rows := make([][]Day, 0, len(v.Days)/7+1)
	for i := 0; i < len(v.Days); i += 7 {
		end := min(i+7, len(v.Days))
		rows = append(rows, v.Days[i:end])
	}
	return rows
}
