package ics

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	ical "github.com/arran4/golang-ical"

	"planner/internal/datemath"
	appLog "planner/internal/log"
	"planner/internal/model"
)

// ParseICS converts every VEVENT in body into a planner event.
//
//   - date is the calendar date of DTSTART as written (no timezone shift)
//   - title is SUMMARY, notes is DESCRIPTION (LOCATION appended if set)
//   - id is derived from source + UID, so re-importing replaces instead of
//     duplicating
//
// A VEVENT without UID or with an unreadable DTSTART is logged and skipped.
func ParseICS(src Source, body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics vevent skipped", "err", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.ID = EventID(src.ID, uidProp.Value)

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = strings.TrimSpace(p.Value)
	}
	if out.Title == "" {
		out.Title = "(untitled)"
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Notes = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil && p.Value != "" {
		if out.Notes != "" {
			out.Notes += "\n"
		}
		out.Notes += "Location: " + p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("uid %s: missing DTSTART", uidProp.Value)
	}
	d, err := parseICSDate(dtStart.Value)
	if err != nil {
		return out, fmt.Errorf("uid %s: %w", uidProp.Value, err)
	}
	out.Date = d.String()

	return out, nil
}

// parseICSDate takes the YYYYMMDD prefix of a DATE or DATE-TIME value.
func parseICSDate(v string) (datemath.Date, error) {
	v = strings.TrimSpace(v)
	if len(v) < 8 {
		return datemath.Date{}, fmt.Errorf("DTSTART %q too short", v)
	}
	if len(v) > 8 && v[8] != 'T' {
		return datemath.Date{}, fmt.Errorf("DTSTART %q is not an ICS date", v)
	}
	return datemath.ParseDate(v[0:4] + "-" + v[4:6] + "-" + v[6:8])
}

// SourcePrefix is the id prefix shared by every event imported from
// sourceID.
func SourcePrefix(sourceID string) string {
	sum := sha256.Sum256([]byte(sourceID))
	return "ics-" + hex.EncodeToString(sum[:4]) + "-"
}

// EventID derives the stable planner id of an imported VEVENT.
func EventID(sourceID, uid string) string {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + uid))
	return SourcePrefix(sourceID) + hex.EncodeToString(sum[:8])
}
