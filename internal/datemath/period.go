package datemath

import (
	"fmt"
	"time"
)

const (
	// WorkWeekDays is the Mon–Fri week shown by default.
	WorkWeekDays = 5
	// FullWeekDays is a Mon–Sun week.
	FullWeekDays = 7
	// DefaultUpcomingDays is the look-ahead window after a period: one week.
	DefaultUpcomingDays = 7
)

// WeekBounds returns the work week (Mon–Fri) containing reference.
// A Saturday or Sunday reference maps to the week that began on the
// preceding Monday.
func WeekBounds(reference Date) (start, end Date) {
	return WeekBoundsN(reference, WorkWeekDays)
}

// WeekBoundsN is WeekBounds for a week of the given length (5 or 7).
// Other lengths are treated as 7.
func WeekBoundsN(reference Date, days int) (start, end Date) {
	if days != WorkWeekDays {
		days = FullWeekDays
	}
	start = reference.AddDays(-reference.Weekday())
	end = start.AddDays(days - 1)
	return start, end
}

// MonthBounds returns the first and last day of the month. The last day is
// the first of the following month minus one day.
func MonthBounds(year, month int) (start, end Date, err error) {
	if err := ValidateMonth(month); err != nil {
		return Date{}, Date{}, err
	}
	start = Date{Year: year, Month: time.Month(month), Day: 1}
	ny, nm, _ := AdjacentPeriod(year, month, +1)
	next := Date{Year: ny, Month: time.Month(nm), Day: 1}
	return start, next.AddDays(-1), nil
}

// YearBounds returns January 1 and December 31 of year.
func YearBounds(year int) (start, end Date) {
	return Date{Year: year, Month: time.January, Day: 1}, Date{Year: year, Month: time.December, Day: 31}
}

// CalendarGrid pads start back to its Monday and end forward to its Sunday
// and returns every date in between, ascending. The result length is a
// positive multiple of 7. Reversed arguments are swapped.
func CalendarGrid(start, end Date) []Date {
	if end.Before(start) {
		start, end = end, start
	}
	first := start.AddDays(-start.Weekday())
	last := end.AddDays(6 - end.Weekday())

	n := int(last.Time().Sub(first.Time()).Hours()/24) + 1
	out := make([]Date, 0, n)
	for d := first; !d.After(last); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// AdjacentPeriod steps a (year, month) pair by direction months. Only -1 and
// +1 are meaningful; any other direction is an ErrInvalidPeriod.
func AdjacentPeriod(year, month, direction int) (int, int, error) {
	if err := ValidateMonth(month); err != nil {
		return 0, 0, err
	}
	switch direction {
	case -1:
		if month == 1 {
			return year - 1, 12, nil
		}
		return year, month - 1, nil
	case +1:
		if month == 12 {
			return year + 1, 1, nil
		}
		return year, month + 1, nil
	default:
		return 0, 0, fmt.Errorf("%w: direction %d", ErrInvalidPeriod, direction)
	}
}

// NextPeriodWindow returns the lengthDays-long window that starts the day
// after periodEnd. A non-positive length uses DefaultUpcomingDays.
func NextPeriodWindow(periodEnd Date, lengthDays int) (windowStart, windowEnd Date) {
	if lengthDays <= 0 {
		lengthDays = DefaultUpcomingDays
	}
	windowStart = periodEnd.AddDays(1)
	windowEnd = windowStart.AddDays(lengthDays - 1)
	return windowStart, windowEnd
}

// ValidateMonth rejects months outside 1–12.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d must be between 1 and 12", ErrInvalidPeriod, month)
	}
	return nil
}
