package tracker

import (
	"fmt"
	"io"

	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
)

// DescribeProjection renders a velocity projection as one line.
func DescribeProjection(p insights.Projection) string {
	switch p.Status {
	case insights.Projected:
		return fmt.Sprintf("%s (%.2f topics/day, %d days left)", p.Finish.Format(model.DateLayout), p.Rate, p.DaysNeeded)
	case insights.Stalled:
		return "stalled"
	default:
		return "insufficient data"
	}
}

// RenderInsights prints streaks, exam countdown, projection and due topics.
func RenderInsights(w io.Writer, in Insights) error {
	lines := []string{"Insights"}
	if in.DaysToExam != nil {
		lines = append(lines, fmt.Sprintf("Days to exam: %d", *in.DaysToExam))
	}
	lines = append(lines,
		fmt.Sprintf("Current streak: %d days (longest %d)", in.Streak, in.LongestStreak),
		fmt.Sprintf("Syllabus: %d/%d topics covered", in.DoneTopics, in.TotalTopics),
		fmt.Sprintf("Projected finish: %s", DescribeProjection(in.Projection)),
		fmt.Sprintf("Due for revision: %d", len(in.Due)),
	)
	for _, topic := range in.Due {
		lines = append(lines, fmt.Sprintf("  - %s (rev %d, last %s)", topic.Key(), topic.RevCount, topic.LastStudied))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderDashboard prints the full plain-text report.
func RenderDashboard(w io.Writer, d Dashboard, width int) error {
	if err := stats.RenderSummary(w, d.Report.Summary); err != nil {
		return err
	}
	if err := RenderInsights(w, d.Insights); err != nil {
		return err
	}
	if err := stats.RenderBreakdown(w, "By Category", d.Report.Categories); err != nil {
		return err
	}
	if err := stats.RenderBreakdown(w, "By Activity", d.Report.Activities); err != nil {
		return err
	}
	if err := stats.RenderTargets(w, d.Report.Targets, width); err != nil {
		return err
	}
	return stats.RenderDaily(w, d.Report.Daily, 7, width)
}
