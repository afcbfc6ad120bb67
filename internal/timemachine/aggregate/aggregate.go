// Package aggregate derives every statistical view of the event log. All
// functions are pure: they take the full event slice and return fresh
// structures, so callers can recompute on every change signal without caring
// how often that happens.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"pitlog/internal/event"
	id "pitlog/pkg/domain"
)

// Truncation limits for ranked views.
const (
	TopContributorCount = 3
	PeakWeekCount       = 3
	TopActiveCount      = 5
)

// Histogram is a count per bucket over a fixed integer domain. Every bucket
// in the domain is present even at zero. Max is the largest count, floored at
// 1 so intensity scaling (count/Max) never divides by zero.
type Histogram struct {
	Counts map[int]int `json:"counts"`
	Max    int         `json:"max"`
}

// HourHistogram buckets events by hour of day (0-23) in loc.
func HourHistogram(events []event.Event, loc *time.Location) Histogram {
	h := Histogram{Counts: make(map[int]int, 24), Max: 1}
	for i := range 24 {
		h.Counts[i] = 0
	}
	for _, e := range events {
		hour := e.CreatedAt.In(loc).Hour()
		h.Counts[hour]++
		if h.Counts[hour] > h.Max {
			h.Max = h.Counts[hour]
		}
	}
	return h
}

// WeekdayHistogram buckets events by day of week (0=Sunday .. 6=Saturday)
// in loc.
func WeekdayHistogram(events []event.Event, loc *time.Location) Histogram {
	h := Histogram{Counts: make(map[int]int, 7), Max: 1}
	for i := range 7 {
		h.Counts[i] = 0
	}
	for _, e := range events {
		day := int(e.CreatedAt.In(loc).Weekday())
		h.Counts[day]++
		if h.Counts[day] > h.Max {
			h.Max = h.Counts[day]
		}
	}
	return h
}

// WeekCount is the event count of one ISO week.
type WeekCount struct {
	Year  int    `json:"year"`
	Week  int    `json:"week"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklyCounts buckets events by ISO week, returned in chronological order.
// Only weeks with at least one event appear; an empty log yields an empty
// slice.
func WeeklyCounts(events []event.Event, loc *time.Location) []WeekCount {
	type key struct{ year, week int }
	counts := make(map[key]int)
	for _, e := range events {
		y, w := e.CreatedAt.In(loc).ISOWeek()
		counts[key{y, w}]++
	}

	out := make([]WeekCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, WeekCount{
			Year:  k.year,
			Week:  k.week,
			Label: fmt.Sprintf("%d-W%02d", k.year, k.week),
			Count: c,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Week < out[j].Week
	})
	return out
}

// PeakWeeks returns the busiest weeks, highest count first, truncated to
// PeakWeekCount. Ties keep chronological order.
func PeakWeeks(weeks []WeekCount) []WeekCount {
	ranked := append([]WeekCount{}, weeks...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return truncate(ranked, PeakWeekCount)
}

// FilterByCategories keeps events whose category is in categories, preserving
// input order. An empty filter means no filter: the input is returned as a
// copy.
func FilterByCategories(events []event.Event, categories []event.Category) []event.Event {
	if len(categories) == 0 {
		return append([]event.Event{}, events...)
	}

	wanted := make(map[event.Category]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	out := make([]event.Event, 0, len(events))
	for _, e := range events {
		if _, ok := wanted[e.Category]; ok {
			out = append(out, e)
		}
	}
	return out
}

// MemberRollup summarizes one member's activity.
type MemberRollup struct {
	MemberID       id.MemberID `json:"member_id"`
	Name           string      `json:"name"`
	AvatarURL      string      `json:"avatar_url,omitempty"`
	Total          int         `json:"total"`
	GoalsCompleted int         `json:"goals_completed"`
	TasksCompleted int         `json:"tasks_completed"`
	Uploads        int         `json:"uploads"`

	ByCategory map[event.Category]int `json:"by_category"`

	FirstAt time.Time `json:"first_at"`
	LastAt  time.Time `json:"last_at"`

	// ActiveDays is the number of distinct calendar days with activity;
	// StreakDays the longest run of consecutive active days.
	ActiveDays int `json:"active_days"`
	StreakDays int `json:"streak_days"`
}

// MemberRollups groups events by acting member. Events without an actor are
// excluded, not lumped into an "unknown" member. The result is sorted by
// total descending; ties keep first-encounter order.
func MemberRollups(events []event.Event, loc *time.Location) []MemberRollup {
	index := make(map[id.MemberID]int)
	var rollups []MemberRollup
	days := make(map[id.MemberID]map[time.Time]struct{})

	for _, e := range events {
		if !e.HasActor() {
			continue
		}

		i, ok := index[e.MemberID]
		if !ok {
			i = len(rollups)
			index[e.MemberID] = i
			rollups = append(rollups, MemberRollup{
				MemberID:   e.MemberID,
				ByCategory: make(map[event.Category]int),
				FirstAt:    e.CreatedAt,
			})
			days[e.MemberID] = make(map[time.Time]struct{})
		}

		r := &rollups[i]
		r.Total++
		r.ByCategory[e.Category]++
		if e.CreatedAt.Before(r.FirstAt) {
			r.FirstAt = e.CreatedAt
		}
		if e.CreatedAt.After(r.LastAt) {
			r.LastAt = e.CreatedAt
		}
		if e.Member != nil {
			if e.Member.Name != "" {
				r.Name = e.Member.Name
			}
			if e.Member.AvatarURL != "" {
				r.AvatarURL = e.Member.AvatarURL
			}
		}
		if e.Type == event.TypeCompletion {
			switch e.Category {
			case event.CategoryGoal:
				r.GoalsCompleted++
			case event.CategoryTask:
				r.TasksCompleted++
			}
		}
		if e.Type == event.TypeUpload {
			r.Uploads++
		}
		days[e.MemberID][e.Day(loc)] = struct{}{}
	}

	for i := range rollups {
		active := days[rollups[i].MemberID]
		rollups[i].ActiveDays = len(active)
		rollups[i].StreakDays = longestStreak(active)
	}

	sort.SliceStable(rollups, func(i, j int) bool {
		return rollups[i].Total > rollups[j].Total
	})
	return rollups
}

// longestStreak finds the longest run of consecutive calendar days.
func longestStreak(days map[time.Time]struct{}) int {
	if len(days) == 0 {
		return 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) <= 26*time.Hour {
			// A calendar day apart; the slack absorbs DST shifts.
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}
	return best
}

// TopContributors returns the highest-total rollups, truncated to
// TopContributorCount.
func TopContributors(rollups []MemberRollup) []MemberRollup {
	return truncate(rollups, TopContributorCount)
}

// TopActive returns the highest-total rollups for dashboard tiles, truncated
// to TopActiveCount.
func TopActive(rollups []MemberRollup) []MemberRollup {
	return truncate(rollups, TopActiveCount)
}

// CategoryCount is the event count of one category.
type CategoryCount struct {
	Category event.Category `json:"category"`
	Count    int            `json:"count"`
}

// Distribution counts events per category, sorted descending by count.
// Categories with no events are omitted; ties keep the canonical category
// order so output is deterministic.
func Distribution(events []event.Event) []CategoryCount {
	counts := make(map[event.Category]int)
	for _, e := range events {
		counts[e.Category]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for _, c := range event.Categories() {
		if n, ok := counts[c]; ok {
			out = append(out, CategoryCount{Category: c, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Stats bundles every derived view for the dashboard endpoint.
type Stats struct {
	TotalEvents     int             `json:"total_events"`
	Distribution    []CategoryCount `json:"distribution"`
	Hours           Histogram       `json:"hours"`
	Weekdays        Histogram       `json:"weekdays"`
	Weeks           []WeekCount     `json:"weeks"`
	PeakWeeks       []WeekCount     `json:"peak_weeks"`
	Rollups         []MemberRollup  `json:"rollups"`
	TopContributors []MemberRollup  `json:"top_contributors"`
}

// Compute derives the full stats bundle from one snapshot of the log.
// Idempotent: identical input produces identical output.
func Compute(events []event.Event, loc *time.Location) Stats {
	weeks := WeeklyCounts(events, loc)
	rollups := MemberRollups(events, loc)
	return Stats{
		TotalEvents:     len(events),
		Distribution:    Distribution(events),
		Hours:           HourHistogram(events, loc),
		Weekdays:        WeekdayHistogram(events, loc),
		Weeks:           weeks,
		PeakWeeks:       PeakWeeks(weeks),
		Rollups:         rollups,
		TopContributors: TopContributors(rollups),
	}
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return append([]T{}, s...)
}
