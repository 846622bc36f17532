package calendar

import (
	"fmt"
	"strconv"
	"strings"

	"planner/internal/datemath"
)

const (
	minYear = 1
	maxYear = 9999
)

// Request names the period to aggregate.
type Request struct {
	Kind Kind
	// Reference is any day in the requested week.
	Reference datemath.Date
	Year      int
	Month     int
}

// WeekRequest parses a YYYY-MM-DD reference; an empty string means today.
func WeekRequest(raw string, today datemath.Date) (Request, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Request{Kind: KindWeek, Reference: today}, nil
	}
	ref, err := datemath.ParseDate(raw)
	if err != nil {
		return Request{}, fmt.Errorf("%w: invalid date format, use YYYY-MM-DD: %v", ErrInvalidRequest, err)
	}
	return Request{Kind: KindWeek, Reference: ref}, nil
}

// MonthRequest parses a year and a 1–12 month; empty values default to
// today's year and month.
func MonthRequest(yearRaw, monthRaw string, today datemath.Date) (Request, error) {
	year, err := parseYear(yearRaw, today)
	if err != nil {
		return Request{}, err
	}
	month := int(today.Month)
	if s := strings.TrimSpace(monthRaw); s != "" {
		month, err = strconv.Atoi(s)
		if err != nil {
			return Request{}, fmt.Errorf("%w: month must be an integer between 1 and 12, got %q", ErrInvalidRequest, monthRaw)
		}
	}
	r := Request{Kind: KindMonth, Year: year, Month: month}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}

// YearRequest parses a year; an empty value means today's year.
func YearRequest(yearRaw string, today datemath.Date) (Request, error) {
	year, err := parseYear(yearRaw, today)
	if err != nil {
		return Request{}, err
	}
	return Request{Kind: KindYear, Year: year}, nil
}

// Validate rejects structurally invalid requests before any store read.
func (r Request) Validate() error {
	switch r.Kind {
	case KindWeek:
		if r.Reference.IsZero() {
			return fmt.Errorf("%w: week view needs a reference date", ErrInvalidRequest)
		}
		if _, err := datemath.NewDate(r.Reference.Year, r.Reference.Month, r.Reference.Day); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil
	case KindMonth:
		if err := checkYear(r.Year); err != nil {
			return err
		}
		if err := datemath.ValidateMonth(r.Month); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil
	case KindYear:
		return checkYear(r.Year)
	default:
		return fmt.Errorf("%w: unknown view %q", ErrInvalidRequest, r.Kind)
	}
}

func parseYear(raw string, today datemath.Date) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return today.Year, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: year must be an integer, got %q", ErrInvalidRequest, raw)
	}
	if err := checkYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return fmt.Errorf("%w: year must be between %d and %d, got %d", ErrInvalidRequest, minYear, maxYear, year)
	}
	return nil
}
