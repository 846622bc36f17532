package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "planner/internal/log"
	"planner/internal/model"
)

const productID = "-//planner//planner calendar//EN"

// Export renders events as an iCalendar feed of all-day VEVENTs. Events with
// malformed dates are left out and logged. stamp is used for every DTSTAMP
// so the output is stable for a given input.
func Export(name string, events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}

	skipped := 0
	for _, ev := range events {
		d, err := ev.ParsedDate()
		if err != nil {
			skipped++
			appLog.Warn("ics export skipped event", "event_id", ev.ID, "date", ev.Date, "err", err)
			continue
		}
		start := d.Time()

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp.UTC())
		ve.SetSummary(ev.Title)
		if ev.Notes != "" {
			ve.SetDescription(ev.Notes)
		}
		ve.SetAllDayStartAt(start)
		ve.SetAllDayEndAt(start.AddDate(0, 0, 1))
	}

	appLog.Debug("ics export completed", "event_count", len(events)-skipped, "skipped", skipped)
	return cal.Serialize()
}
