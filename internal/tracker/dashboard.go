package tracker

import (
	"context"
	"time"

	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
)

// Insights holds the rule-based observations about the log.
type Insights struct {
	Streak        int
	LongestStreak int
	Due           []model.Topic
	Projection    insights.Projection
	TotalTopics   int
	DoneTopics    int
	// DaysToExam is nil when no exam date is configured.
	DaysToExam *int
}

// Dashboard bundles the filtered report with the insights.
type Dashboard struct {
	Report   stats.Report
	Insights Insights
	Topics   []model.Topic
}

// Insights recomputes streaks, revision reminders and the velocity
// projection from the full log.
func (t *Tracker) Insights(ctx context.Context) Insights {
	return t.insightsFor(t.Sessions(ctx), t.Topics(ctx), t.now())
}

// Dashboard loads everything the dashboard shows.
func (t *Tracker) Dashboard(ctx context.Context, cfg model.StatsConfig, targets map[string]float64) Dashboard {
	sessions := t.Sessions(ctx)
	topics := t.Topics(ctx)
	now := t.now()
	return Dashboard{
		Report:   stats.BuildReport(sessions, cfg, targets, now),
		Insights: t.insightsFor(sessions, topics, now),
		Topics:   topics,
	}
}

// Scheduler returns the configured revision scheduler.
func (t *Tracker) Scheduler() insights.Scheduler {
	return t.scheduler
}

func (t *Tracker) insightsFor(sessions []model.Session, topics []model.Topic, now time.Time) Insights {
	dates := insights.SessionDates(sessions)
	out := Insights{
		Streak:        insights.CurrentStreak(dates, now),
		LongestStreak: insights.LongestStreak(dates),
		Due:           t.scheduler.ListDue(topics, now),
		TotalTopics:   len(topics),
	}
	for _, topic := range topics {
		if topic.Status.Completed() {
			out.DoneTopics++
		}
	}
	first, ok := insights.FirstLogDay(sessions)
	if !ok {
		first = time.Time{}
	}
	out.Projection = insights.ProjectFinish(out.TotalTopics, out.DoneTopics, first, now)
	if t.examDate != nil {
		days := insights.DaysBetween(now, *t.examDate)
		out.DaysToExam = &days
	}
	return out
}
