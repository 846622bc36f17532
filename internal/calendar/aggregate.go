package calendar

import (
	"context"
	"fmt"
	"time"

	"planner/internal/datemath"
	"planner/internal/model"
)

// EventSource is the read side of the event store.
type EventSource interface {
	LoadAll(ctx context.Context) ([]model.Event, error)
}

// Options tunes aggregation.
type Options struct {
	// WeekDays is 5 (Mon–Fri, default) or 7 (Mon–Sun).
	WeekDays int
	// UpcomingDays is the look-ahead window after a period (default 7).
	UpcomingDays int
}

func (o Options) normalized() Options {
	if o.WeekDays != datemath.FullWeekDays {
		o.WeekDays = datemath.WorkWeekDays
	}
	if o.UpcomingDays <= 0 {
		o.UpcomingDays = datemath.DefaultUpcomingDays
	}
	return o
}

// Aggregator reads a fresh snapshot per call and builds the requested view.
type Aggregator struct {
	events EventSource
	opts   Options
}

// NewAggregator returns an Aggregator over events.
func NewAggregator(events EventSource, opts Options) *Aggregator {
	return &Aggregator{events: events, opts: opts.normalized()}
}

// Aggregate validates req, loads the snapshot and builds the view. Request
// errors are returned before the store is touched; store errors are wrapped
// in ErrStoreUnavailable and returned as-is otherwise.
func (a *Aggregator) Aggregate(ctx context.Context, req Request) (View, error) {
	if err := req.Validate(); err != nil {
		return View{}, err
	}
	events, err := a.events.LoadAll(ctx)
	if err != nil {
		return View{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return Build(events, req, a.opts)
}

// Build is the pure aggregation step over an in-memory snapshot.
func Build(events []model.Event, req Request, opts Options) (View, error) {
	if err := req.Validate(); err != nil {
		return View{}, err
	}
	opts = opts.normalized()

	switch req.Kind {
	case KindWeek:
		return buildWeek(events, req.Reference, opts), nil
	case KindMonth:
		return buildMonth(events, req.Year, req.Month, opts)
	default:
		return buildYear(events, req.Year, opts), nil
	}
}

func buildWeek(events []model.Event, ref datemath.Date, opts Options) View {
	start, end := datemath.WeekBoundsN(ref, opts.WeekDays)

	grid := make([]datemath.Date, 0, opts.WeekDays)
	for d := start; !d.After(end); d = d.AddDays(1) {
		grid = append(grid, d)
	}

	v := View{
		Kind:  KindWeek,
		Start: start,
		End:   end,
		Prev:  bounded(Anchor{Kind: KindWeek, Date: ref.AddDays(-7)}),
		Next:  bounded(Anchor{Kind: KindWeek, Date: ref.AddDays(7)}),
	}
	fillDays(&v, events, grid, opts.UpcomingDays)
	return v
}

func buildMonth(events []model.Event, year, month int, opts Options) (View, error) {
	start, end, err := datemath.MonthBounds(year, month)
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	py, pm, err := datemath.AdjacentPeriod(year, month, -1)
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	ny, nm, err := datemath.AdjacentPeriod(year, month, +1)
	if err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	v := View{
		Kind:  KindMonth,
		Start: start,
		End:   end,
		Prev:  bounded(Anchor{Kind: KindMonth, Year: py, Month: pm}),
		Next:  bounded(Anchor{Kind: KindMonth, Year: ny, Month: nm}),
	}
	fillDays(&v, events, datemath.CalendarGrid(start, end), opts.UpcomingDays)
	return v, nil
}

// fillDays seeds one empty bucket per grid date, then makes a single pass
// over events: grid dates are bucketed, dates in the upcoming window go to
// Upcoming, everything else is dropped from this view.
func fillDays(v *View, events []model.Event, grid []datemath.Date, upcomingDays int) {
	v.UpcomingStart, v.UpcomingEnd = datemath.NextPeriodWindow(v.End, upcomingDays)
	v.Upcoming = []model.Event{}

	v.Days = make([]Day, len(grid))
	index := make(map[datemath.Date]int, len(grid))
	for i, d := range grid {
		v.Days[i] = Day{Date: d, InPeriod: d.Within(v.Start, v.End), Events: []model.Event{}}
		index[d] = i
	}

	for _, ev := range events {
		d, ok := parseOrSkip(v, ev)
		if !ok {
			continue
		}
		if i, ok := index[d]; ok {
			v.Days[i].Events = append(v.Days[i].Events, ev)
			continue
		}
		if d.Within(v.UpcomingStart, v.UpcomingEnd) {
			v.Upcoming = append(v.Upcoming, ev)
		}
	}
}

func buildYear(events []model.Event, year int, opts Options) View {
	start, end := datemath.YearBounds(year)
	v := View{
		Kind:     KindYear,
		Start:    start,
		End:      end,
		Months:   make([]Month, 12),
		Upcoming: []model.Event{},
		Prev:     bounded(Anchor{Kind: KindYear, Year: year - 1}),
		Next:     bounded(Anchor{Kind: KindYear, Year: year + 1}),
	}
	v.UpcomingStart, v.UpcomingEnd = datemath.NextPeriodWindow(end, opts.UpcomingDays)
	for i := range v.Months {
		v.Months[i] = Month{Month: int(time.January) + i, Events: []model.Event{}}
	}

	for _, ev := range events {
		d, ok := parseOrSkip(&v, ev)
		if !ok {
			continue
		}
		if d.Year == year {
			m := int(d.Month) - 1
			v.Months[m].Events = append(v.Months[m].Events, ev)
			continue
		}
		if d.Within(v.UpcomingStart, v.UpcomingEnd) {
			v.Upcoming = append(v.Upcoming, ev)
		}
	}
	return v
}

// bounded drops an anchor whose year could not be requested, so views at
// the edges of the supported range have no link past it.
func bounded(a Anchor) Anchor {
	year := a.Year
	if a.Kind == KindWeek {
		year = a.Date.Year
	}
	if year < minYear || year > maxYear {
		return Anchor{}
	}
	return a
}

func parseOrSkip(v *View, ev model.Event) (datemath.Date, bool) {
	d, err := ev.ParsedDate()
	if err != nil {
		v.Skipped = append(v.Skipped, Skipped{
			EventID: ev.ID,
			Date:    ev.Date,
			Reason:  fmt.Errorf("%w: %v", ErrMalformedEventDate, err).Error(),
		})
		return datemath.Date{}, false
	}
	return d, true
}
