package insights

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// GapLabel is the activity and note attached to synthesized gap records.
const GapLabel = "Unaccounted gap"

// DefaultGapTolerance is used when no tolerance is configured.
const DefaultGapTolerance = 10 * time.Minute

// ErrOverlap reports a new session starting before the last logged end.
var ErrOverlap = errors.New("new session starts before the last logged session ended")

// DetectGap decides whether an idle block between the last session of the
// day and newStart should be logged. It returns nil when there is nothing to
// record. A start that precedes the last end yields ErrOverlap and no record.
func DetectGap(today []model.Session, newStart time.Time, tolerance time.Duration) (*model.Session, error) {
	last, ok := lastEnded(today)
	if !ok {
		return nil, nil
	}
	gap := newStart.Sub(last.End)
	if gap < 0 {
		return nil, ErrOverlap
	}
	if gap <= tolerance {
		return nil, nil
	}
	return &model.Session{
		Start:           last.End,
		End:             newStart,
		Date:            last.End.Format(model.DateLayout),
		Category:        model.CategoryWasted,
		Activity:        GapLabel,
		Topic:           GapLabel,
		Note:            GapLabel,
		DurationMinutes: Minutes(gap),
		Focus:           0,
	}, nil
}

// SessionsOn returns the valid sessions logged on day, sorted by end time.
func SessionsOn(sessions []model.Session, day time.Time) []model.Session {
	target := Day(day)
	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Valid() {
			continue
		}
		d, ok := sessionDay(s)
		if !ok || !d.Equal(target) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].End.Before(out[j].End)
	})
	return out
}

// Minutes converts a duration to minutes rounded to two decimals.
func Minutes(d time.Duration) float64 {
	return math.Round(d.Minutes()*100) / 100
}

func lastEnded(sessions []model.Session) (model.Session, bool) {
	var last model.Session
	found := false
	for _, s := range sessions {
		if s.End.IsZero() {
			continue
		}
		if !found || s.End.After(last.End) {
			last = s
			found = true
		}
	}
	return last, found
}
