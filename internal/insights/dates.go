// Package insights implements the study-log rules: gap detection, revision
// scheduling, velocity projection, and streaks.
package insights

import (
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Day truncates t to its calendar day in t's location. The result is
// expressed at UTC midnight so day arithmetic is unaffected by DST.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD date. Empty or malformed input reports false.
func ParseDay(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// sessionDay returns the calendar day of a session, preferring the
// denormalized date field and falling back to its start.
func sessionDay(s model.Session) (time.Time, bool) {
	if day, ok := ParseDay(s.Date); ok {
		return day, true
	}
	if s.Start.IsZero() {
		return time.Time{}, false
	}
	return Day(s.Start), true
}

// FirstLogDay returns the earliest calendar day with a session.
func FirstLogDay(sessions []model.Session) (time.Time, bool) {
	var first time.Time
	found := false
	for _, s := range sessions {
		day, ok := sessionDay(s)
		if !ok {
			continue
		}
		if !found || day.Before(first) {
			first = day
			found = true
		}
	}
	return first, found
}
