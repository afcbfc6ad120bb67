// Package calendar maps events onto a month grid and day-detail lists. It
// operates on the already-loaded event snapshot; month navigation never
// triggers a refetch.
package calendar

import (
	"sort"
	"time"

	"pitlog/internal/event"
)

// MaxDayMarkers is how many distinct category indicators a day shows before
// the overflow marker takes over.
const MaxDayMarkers = 3

// Day is one calendar cell. Categories holds up to MaxDayMarkers distinct
// categories in first-occurrence order; Overflow reports that more were
// present.
type Day struct {
	Date       time.Time        `json:"date"`
	Count      int              `json:"count"`
	Categories []event.Category `json:"categories,omitempty"`
	Overflow   bool             `json:"overflow,omitempty"`
}

// Active reports whether at least one event happened on the day.
func (d Day) Active() bool { return d.Count > 0 }

// Month is a full month grid: one Day per calendar day, in order.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []Day      `json:"days"`
}

// MonthGrid buckets events onto the days of one month in loc. Every day of
// the month is present, inactive days included.
func MonthGrid(events []event.Event, year int, month time.Month, loc *time.Location) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	grid := Month{Year: year, Month: month, Days: make([]Day, daysInMonth)}
	for i := range grid.Days {
		grid.Days[i].Date = first.AddDate(0, 0, i)
	}

	seen := make(map[int]map[event.Category]struct{})
	for _, e := range events {
		local := e.CreatedAt.In(loc)
		if local.Year() != year || local.Month() != month {
			continue
		}

		i := local.Day() - 1
		day := &grid.Days[i]
		day.Count++

		cats, ok := seen[i]
		if !ok {
			cats = make(map[event.Category]struct{})
			seen[i] = cats
		}
		if _, dup := cats[e.Category]; dup {
			continue
		}
		cats[e.Category] = struct{}{}
		if len(day.Categories) < MaxDayMarkers {
			day.Categories = append(day.Categories, e.Category)
		} else {
			day.Overflow = true
		}
	}
	return grid
}

// DayEvents returns the events of one calendar day in loc, ascending by
// time of day. date's own time-of-day is ignored.
func DayEvents(events []event.Event, date time.Time, loc *time.Location) []event.Event {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	out := make([]event.Event, 0)
	for _, e := range events {
		if e.Day(loc).Equal(day) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
