package insights

import (
	"math"
	"time"
)

// ProjectionStatus classifies a velocity projection.
type ProjectionStatus int

const (
	// InsufficientData means there is nothing to extrapolate from.
	InsufficientData ProjectionStatus = iota
	// Stalled means the completion rate is not positive.
	Stalled
	// Projected means Finish holds an estimated finish day.
	Projected
)

func (s ProjectionStatus) String() string {
	switch s {
	case Stalled:
		return "stalled"
	case Projected:
		return "projected"
	default:
		return "insufficient data"
	}
}

// Projection is the result of ProjectFinish.
type Projection struct {
	Status     ProjectionStatus
	Rate       float64
	DaysPassed int
	DaysNeeded int
	Finish     time.Time
}

// ProjectFinish extrapolates the cumulative completion rate linearly.
// A zero firstLog means there is no log history. Fractional days needed
// round up to the next whole day.
func ProjectFinish(total, done int, firstLog, today time.Time) Projection {
	if total == 0 || done == 0 || firstLog.IsZero() {
		return Projection{Status: InsufficientData}
	}
	daysPassed := DaysBetween(firstLog, today) + 1
	if daysPassed <= 0 {
		return Projection{Status: InsufficientData}
	}
	rate := float64(done) / float64(daysPassed)
	if rate <= 0 {
		return Projection{Status: Stalled, Rate: rate, DaysPassed: daysPassed}
	}
	needed := int(math.Ceil(float64(total-done)/rate - 1e-9))
	if needed < 0 {
		needed = 0
	}
	return Projection{
		Status:     Projected,
		Rate:       rate,
		DaysPassed: daysPassed,
		DaysNeeded: needed,
		Finish:     Day(today).AddDate(0, 0, needed),
	}
}
