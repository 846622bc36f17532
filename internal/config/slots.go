package config

import (
	"sort"
	"strings"
	"time"
)

// Slot is one timetable row on the planner page.
type Slot struct {
	// Time is free text such as "09:00" or "09:00-10:00"; rows sort by it.
	Time  string `yaml:"time" json:"time"`
	Label string `yaml:"label" json:"label"`
}

// Slots returns the timetable for a weekday.
func (c *Config) Slots(day time.Weekday) []Slot {
	return c.WeeklySlots[day.String()]
}

// parseWeekday accepts full or three-letter English day names in any case.
func parseWeekday(s string) (time.Weekday, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// normalizeSlots keys the timetable by canonical weekday name, drops
// unknown days and empty rows, and orders each day by Time.
func normalizeSlots(in map[string][]Slot) map[string][]Slot {
	out := make(map[string][]Slot, len(in))
	// Iterate keys in order so merged aliases ("mon" and "Monday") are
	// deterministic.
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		day, ok := parseWeekday(k)
		if !ok {
			continue
		}
		name := day.String()
		for _, sl := range in[k] {
			sl.Time = strings.TrimSpace(sl.Time)
			sl.Label = strings.TrimSpace(sl.Label)
			if sl.Time == "" && sl.Label == "" {
				continue
			}
			out[name] = append(out[name], sl)
		}
	}
	for name := range out {
		sort.SliceStable(out[name], func(i, j int) bool {
			return out[name][i].Time < out[name][j].Time
		})
	}
	return out
}
