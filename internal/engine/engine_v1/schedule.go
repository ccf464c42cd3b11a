package engine

import (
	"slices"
	"time"
)

// Midnight returns midnight UTC of t's calendar date in t's own location.
// Bars are stamped at midnight UTC, so a decision time keys on its date, not its instant.
func Midnight(t time.Time) time.Time {
	year, month, day := t.Date()

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isBusinessDay(t time.Time) bool {
	weekday := t.Weekday()

	return weekday != time.Saturday && weekday != time.Sunday
}

// AddBusinessDays moves t forward by n weekdays. With n = 0 it returns t unchanged,
// even on a weekend.
func AddBusinessDays(t time.Time, n int) time.Time {
	for n > 0 {
		t = t.AddDate(0, 0, 1)
		if isBusinessDay(t) {
			n--
		}
	}

	return t
}

// BusinessDays lists every weekday between start and end, both inclusive, at midnight.
func BusinessDays(start, end time.Time) []time.Time {
	var days []time.Time

	last := Midnight(end)
	for day := Midnight(start); !day.After(last); day = day.AddDate(0, 0, 1) {
		if isBusinessDay(day) {
			days = append(days, day)
		}
	}

	return days
}

// normalizeDates truncates dates to midnight, sorts them and removes duplicates.
func normalizeDates(dates []time.Time) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, Midnight(d))
	}

	slices.SortFunc(out, func(a, b time.Time) int {
		return a.Compare(b)
	})

	return slices.CompactFunc(out, func(a, b time.Time) bool {
		return a.Equal(b)
	})
}
