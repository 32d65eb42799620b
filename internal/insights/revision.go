package insights

import (
	"fmt"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Cadence holds the minimum days between revisions, indexed by revision
// count. Counts past the end reuse the last entry.
type Cadence []int

// DefaultCadence is the 1/3/7/15 day schedule.
var DefaultCadence = Cadence{1, 3, 7, 15}

// Validate checks that the cadence is usable.
func (c Cadence) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("revision cadence must not be empty")
	}
	for i, days := range c {
		if days < 0 {
			return fmt.Errorf("revision cadence entry %d must be >= 0", i)
		}
	}
	return nil
}

// Threshold returns the number of days that must pass for a topic with the
// given revision count.
func (c Cadence) Threshold(revCount int) int {
	if len(c) == 0 {
		c = DefaultCadence
	}
	if revCount < 0 {
		revCount = 0
	}
	if revCount >= len(c) {
		revCount = len(c) - 1
	}
	return c[revCount]
}

// Scheduler decides which topics are due for revision.
type Scheduler struct {
	Cadence Cadence
}

// NewScheduler returns a scheduler using cadence, or the default when empty.
func NewScheduler(cadence Cadence) Scheduler {
	if len(cadence) == 0 {
		cadence = DefaultCadence
	}
	return Scheduler{Cadence: cadence}
}

// Due reports whether topic is due on today. Topics without a parseable
// last-studied date are never due.
func (s Scheduler) Due(topic model.Topic, today time.Time) bool {
	last, ok := ParseDay(topic.LastStudied)
	if !ok {
		return false
	}
	return DaysBetween(last, today) >= s.Cadence.Threshold(topic.RevCount)
}

// ListDue returns the due topics in input order.
func (s Scheduler) ListDue(topics []model.Topic, today time.Time) []model.Topic {
	var due []model.Topic
	for _, topic := range topics {
		if s.Due(topic, today) {
			due = append(due, topic)
		}
	}
	return due
}

// NextDue returns the day the topic becomes due.
func (s Scheduler) NextDue(topic model.Topic) (time.Time, bool) {
	last, ok := ParseDay(topic.LastStudied)
	if !ok {
		return time.Time{}, false
	}
	return last.AddDate(0, 0, s.Cadence.Threshold(topic.RevCount)), true
}
