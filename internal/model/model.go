package model

import (
	"errors"
	"fmt"
	"strings"

	"planner/internal/datemath"
)

// ErrInvalidEvent marks an event rejected on write.
var ErrInvalidEvent = errors.New("invalid event")

// Event is a single dated planner entry as persisted by the store.
//
// Date stays a string: records written by older versions or imported from
// elsewhere may carry malformed dates, and those must survive a load so the
// calendar can skip them instead of refusing the whole file.
type Event struct {
	// ID is assigned at creation and never changes.
	ID    string `json:"id"`
	Title string `json:"title"`
	// Date is YYYY-MM-DD.
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

// ParsedDate parses e.Date.
func (e Event) ParsedDate() (datemath.Date, error) {
	return datemath.ParseDate(e.Date)
}

// Validate checks the fields a caller may set on add or update.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidEvent)
	}
	if _, err := e.ParsedDate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return nil
}

// Normalize trims surrounding whitespace from title and date.
func (e *Event) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Date = strings.TrimSpace(e.Date)
}
