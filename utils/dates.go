// utils/dates.go
package utils

import "time"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Today is the UTC calendar date of t, which is how visit dates are stored.
func Today(t time.Time) time.Time {
	return BeginningOfDay(t.UTC())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// DayWindow returns the bounds (from, to] selecting visits made exactly
// `days` calendar days before the date of now. Visits from earlier dates are
// never selected again, so a skipped daily run is not caught up.
func DayWindow(now time.Time, days int) (from, to time.Time) {
	day := Today(now)
	to = day.AddDate(0, 0, -days)
	from = to.AddDate(0, 0, -1)
	return from, to
}
