// Package stats contains statistics calculations and reporting.
package stats

import (
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions   []model.Session
	Summary    Summary
	Daily      []model.DayTotal
	Activities []model.LabelTotal
	Categories []model.LabelTotal
	Targets    []model.TargetProgress
}

// BuildReport filters sessions and prepares data for stats rendering.
func BuildReport(sessions []model.Session, cfg model.StatsConfig, targets map[string]float64, now time.Time) Report {
	filtered := FilterSessions(sessions, cfg, now)
	return Report{
		Sessions:   filtered,
		Summary:    Summarize(filtered),
		Daily:      DailyTotals(filtered),
		Activities: ByActivity(filtered),
		Categories: ByCategory(filtered),
		Targets:    TargetProgressFor(filtered, targets),
	}
}

// FilterSessions keeps valid sessions matching the since and last-days filters.
func FilterSessions(sessions []model.Session, cfg model.StatsConfig, now time.Time) []model.Session {
	var cutoff string
	if cfg.Since != nil {
		cutoff = cfg.Since.Format(model.DateLayout)
	}
	if cfg.Days > 0 {
		from := now.AddDate(0, 0, -(cfg.Days - 1)).Format(model.DateLayout)
		if from > cutoff {
			cutoff = from
		}
	}
	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if !s.Valid() {
			continue
		}
		date := s.Date
		if date == "" {
			date = s.Start.Format(model.DateLayout)
		}
		if cutoff != "" && date < cutoff {
			continue
		}
		out = append(out, s)
	}
	return out
}
