// Package interval holds the calendar-day arithmetic used by the
// distribution engine. Every function ignores the time-of-day component:
// two instants on the same calendar date compare equal.
package interval

import (
	"time"

	"github.com/jinzhu/now"
)

// Day returns the calendar date of t (read in t's own location) as
// midnight UTC, the form stored in date columns.
func Day(t time.Time) time.Time {
	y, m, d := now.With(t).BeginningOfDay().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of t as seen from loc.
func Today(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.With(t.In(loc)).BeginningOfDay())
}

// Contains reports whether date falls within [start, end], both inclusive.
func Contains(date, start, end time.Time) bool {
	d := Day(date)
	return !d.Before(Day(start)) && !d.After(Day(end))
}

// Overlaps reports whether [startA, endA] and [startB, endB] share at least
// one calendar day.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return !Day(startA).After(Day(endB)) && !Day(startB).After(Day(endA))
}

// Valid reports whether start is not after end.
func Valid(start, end time.Time) bool {
	return !Day(start).After(Day(end))
}

// Within reports whether [start, end] lies entirely inside [outerStart, outerEnd].
func Within(start, end, outerStart, outerEnd time.Time) bool {
	return Contains(start, outerStart, outerEnd) && Contains(end, outerStart, outerEnd)
}

// DaysBetween returns the signed number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}
