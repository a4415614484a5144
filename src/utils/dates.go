package utils

import (
	"sort"
	"time"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

const (
	// DefaultEventLength is how far past the start the event form pre-fills the end
	DefaultEventLength = 15 * time.Minute

	dayLayout = "2006-01-02"
)

// IsDateAfter reports whether end is strictly later than start.
func IsDateAfter(start, end time.Time) bool {
	return end.After(start)
}

// DefaultEnd returns the end time the event form starts with.
func DefaultEnd(start time.Time) time.Time {
	return start.Add(DefaultEventLength)
}

// SameDay compares calendar days of a and b as seen in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// DayBounds returns the half-open range [midnight, next midnight) of day in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay parses a yyyy-MM-dd string as midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(dayLayout, value, loc)
}

// FormatDay renders t as yyyy-MM-dd in loc.
func FormatDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayLayout)
}

// FilterDay keeps the events starting on the given day.
func FilterDay(events []models.Event, day time.Time, loc *time.Location) []models.Event {
	filtered := make([]models.Event, 0)
	for _, event := range events {
		if SameDay(event.Start, day, loc) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// MarkedDates collects the yyyy-MM-dd keys of every event start.
func MarkedDates(events []models.Event, loc *time.Location) map[string]bool {
	marked := make(map[string]bool)
	for _, event := range events {
		marked[FormatDay(event.Start, loc)] = true
	}
	return marked
}

// MarkedDatesInMonth is MarkedDates restricted to the month containing month, sorted.
func MarkedDatesInMonth(events []models.Event, month time.Time, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	y, m, _ := month.In(loc).Date()

	days := make([]string, 0)
	for day := range MarkedDates(events, loc) {
		t, err := ParseDay(day, loc)
		if err != nil {
			continue
		}
		if ty, tm, _ := t.Date(); ty == y && tm == m {
			days = append(days, day)
		}
	}
	sort.Strings(days)
	return days
}

// SortByStart orders events by start time, then by id.
func SortByStart(events []models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Start.Equal(events[j].Start) {
			return events[i].ID < events[j].ID
		}
		return events[i].Start.Before(events[j].Start)
	})
}
