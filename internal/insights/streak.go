package insights

import (
	"sort"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// DateSet is a set of calendar days as produced by Day.
type DateSet map[time.Time]struct{}

// Add inserts the calendar day of t.
func (s DateSet) Add(t time.Time) {
	s[Day(t)] = struct{}{}
}

// Has reports whether the calendar day of t is present.
func (s DateSet) Has(t time.Time) bool {
	_, ok := s[Day(t)]
	return ok
}

// SessionDates collects the distinct days that have at least one session.
func SessionDates(sessions []model.Session) DateSet {
	set := DateSet{}
	for _, s := range sessions {
		if day, ok := sessionDay(s); ok {
			set[day] = struct{}{}
		}
	}
	return set
}

// CurrentStreak counts consecutive days ending today, or ending yesterday
// when nothing has been logged today yet.
func CurrentStreak(dates DateSet, today time.Time) int {
	day := Day(today)
	streak := 0
	switch {
	case dates.Has(day):
		streak = 1
		day = day.AddDate(0, 0, -1)
	case dates.Has(day.AddDate(0, 0, -1)):
		day = day.AddDate(0, 0, -1)
	default:
		return 0
	}
	for dates.Has(day) {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// LongestStreak returns the longest run of consecutive days in dates.
func LongestStreak(dates DateSet) int {
	if len(dates) == 0 {
		return 0
	}
	days := make([]time.Time, 0, len(dates))
	for d := range dates {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if DaysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
