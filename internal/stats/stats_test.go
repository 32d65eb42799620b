package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"
)

func mkSession(day int, hour int, minutes int, category model.Category, activity string, focus int) model.Session {
	start := time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(minutes) * time.Minute)
	return model.Session{
		Start:           start,
		End:             end,
		Date:            start.Format(model.DateLayout),
		Category:        category,
		Activity:        activity,
		DurationMinutes: float64(minutes),
		Focus:           focus,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func sampleSessions() []model.Session {
	return []model.Session{
		mkSession(1, 8, 60, model.CategoryStudy, "FR Study", 5),
		mkSession(1, 10, 30, model.CategoryClasses, "AFM Class", 3),
		mkSession(2, 8, 120, model.CategoryStudy, "FR Study", 4),
		mkSession(2, 22, 480, model.CategoryBiological, "Sleep", 0),
		{Date: "2026-03-02", Activity: "broken", DurationMinutes: 50},
	}
}

func TestSessionMetrics(t *testing.T) {
	minutes, quality := SessionMetrics(mkSession(1, 8, 60, model.CategoryStudy, "FR Study", 4))
	if minutes != 60 || !almostEqual(quality, 48) {
		t.Fatalf("unexpected metrics %.2f %.2f", minutes, quality)
	}
	_, quality = SessionMetrics(mkSession(1, 8, 60, model.CategoryLeisure, "Walk", 0))
	if quality != 0 {
		t.Fatalf("expected unrated session to have no quality time")
	}
	if minutes, _ := SessionMetrics(model.Session{DurationMinutes: 20}); minutes != 0 {
		t.Fatalf("expected invalid session to be skipped")
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(sampleSessions())
	if sum.Sessions != 4 {
		t.Fatalf("expected 4 valid sessions, got %d", sum.Sessions)
	}
	if sum.Minutes != 690 {
		t.Fatalf("expected 690 minutes, got %.2f", sum.Minutes)
	}
	if !almostEqual(sum.QualityMinutes, 60+18+96) {
		t.Fatalf("unexpected quality minutes %.2f", sum.QualityMinutes)
	}
	if sum.RatedSessions != 3 || !almostEqual(sum.AvgFocus, 4) {
		t.Fatalf("unexpected focus stats %+v", sum)
	}
	if empty := Summarize(nil); empty.Sessions != 0 || empty.AvgFocus != 0 {
		t.Fatalf("expected zero summary for no sessions")
	}
}

func TestDailyTotals(t *testing.T) {
	days := DailyTotals(sampleSessions())
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Date != "2026-03-01" || days[0].Minutes != 90 || days[0].Sessions != 2 {
		t.Fatalf("unexpected first day %+v", days[0])
	}
	if days[1].Minutes != 600 {
		t.Fatalf("unexpected second day %+v", days[1])
	}
}

func TestByActivityAndCategory(t *testing.T) {
	activities := ByActivity(sampleSessions())
	if len(activities) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(activities))
	}
	if activities[0].Label != "Sleep" || activities[1].Label != "FR Study" || activities[1].Minutes != 180 {
		t.Fatalf("unexpected order: %+v", activities)
	}
	categories := ByCategory(sampleSessions())
	if categories[1].Label != string(model.CategoryStudy) || categories[1].Sessions != 2 {
		t.Fatalf("unexpected categories: %+v", categories)
	}
	if top := TopLabels(activities, 2); len(top) != 2 || top[0] != "Sleep" {
		t.Fatalf("unexpected top labels: %v", top)
	}
	if top := TopLabels(activities, 0); top != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestTargetProgress(t *testing.T) {
	sessions := sampleSessions()
	sessions = append(sessions, model.Session{
		Start:           time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC),
		End:             time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC),
		Date:            "2026-03-03",
		Subject:         "AFM",
		Activity:        "Full Mock (3Hr)",
		DurationMinutes: 60,
	})
	progress := TargetProgressFor(sessions, map[string]float64{"FR": 250, "AFM": 1})
	if len(progress) != 2 || progress[0].Subject != "AFM" {
		t.Fatalf("expected sorted subjects, got %+v", progress)
	}
	if !almostEqual(progress[0].DoneHours, 1.5) {
		t.Fatalf("unexpected AFM hours %.2f", progress[0].DoneHours)
	}
	if Fraction(progress[0]) != 1 {
		t.Fatalf("expected fraction to be clamped at 1")
	}
	if !almostEqual(progress[1].DoneHours, 3) {
		t.Fatalf("unexpected FR hours %.2f", progress[1].DoneHours)
	}
}

func TestFilterSessions(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	if got := FilterSessions(sampleSessions(), model.StatsConfig{Days: 1}, now); len(got) != 2 {
		t.Fatalf("expected 2 sessions for last day, got %d", len(got))
	}
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := FilterSessions(sampleSessions(), model.StatsConfig{Since: &since}, now); len(got) != 4 {
		t.Fatalf("expected all valid sessions since Mar 1, got %d", len(got))
	}
}

func TestBuildReport(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	report := BuildReport(sampleSessions(), model.StatsConfig{}, map[string]float64{"FR": 10}, now)
	if len(report.Sessions) != 4 || report.Summary.Sessions != 4 {
		t.Fatalf("unexpected report sessions: %d", len(report.Sessions))
	}
	if len(report.Daily) != 2 || len(report.Activities) != 3 || len(report.Targets) != 1 {
		t.Fatalf("unexpected report shape: %+v", report)
	}
}

func TestMovingAverageAndSparkline(t *testing.T) {
	avg := MovingAverage([]float64{1, 2, 3, 4}, 2)
	want := []float64{1, 1.5, 2.5, 3.5}
	for i := range want {
		if !almostEqual(avg[i], want[i]) {
			t.Fatalf("unexpected moving average %v", avg)
		}
	}
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{2, 2, 2}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Summarize(sampleSessions())); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, needle := range []string{"Sessions: 4", "Total Hours: 11.5", "Quality Hours: 2.9", "Avg Focus: 4.0"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("summary missing %q:\n%s", needle, out)
		}
	}
	buf.Reset()
	if err := RenderSummary(&buf, Summary{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No sessions found.") {
		t.Fatalf("expected empty message")
	}
}

func TestRenderBars(t *testing.T) {
	var buf bytes.Buffer
	err := RenderBars(&buf, "Chart", []Bar{{Label: "a", Value: 1}, {Label: "bb", Value: 2}}, 0, 25, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected title and 2 bars, got %d lines", len(lines))
	}
	barWidth := BarWidthFor(25, 2, 3)
	if got := strings.Count(lines[2], barFill); got != barWidth {
		t.Fatalf("expected full bar of %d, got %d", barWidth, got)
	}
	if got := strings.Count(lines[1], barFill); got != barWidth/2 {
		t.Fatalf("expected half bar of %d, got %d", barWidth/2, got)
	}
}

func TestRenderDailyAndTargets(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDaily(&buf, DailyTotals(sampleSessions()), 7, 60); err != nil {
		t.Fatalf("render daily: %v", err)
	}
	if !strings.Contains(buf.String(), "2026-03-01") || !strings.Contains(buf.String(), "Trend (7-day avg)") {
		t.Fatalf("unexpected daily output:\n%s", buf.String())
	}
	buf.Reset()
	if err := RenderTargets(&buf, []model.TargetProgress{{Subject: "FR", DoneHours: 50, TargetHours: 250}}, 60); err != nil {
		t.Fatalf("render targets: %v", err)
	}
	if !strings.Contains(buf.String(), "FR (50/250 hrs)") || !strings.Contains(buf.String(), "20%") {
		t.Fatalf("unexpected targets output:\n%s", buf.String())
	}
}
