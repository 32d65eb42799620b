// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/studytrack/internal/model"
)

const sparkChars = " .:-=+*#%@"

// maxFocus is the top of the focus scale used for quality weighting.
const maxFocus = 5.0

// Summary aggregates a set of sessions.
type Summary struct {
	Sessions       int
	Minutes        float64
	QualityMinutes float64
	AvgFocus       float64
	RatedSessions  int
}

// SessionMetrics returns logged minutes and focus-weighted quality minutes.
// Unrated sessions contribute no quality time.
func SessionMetrics(s model.Session) (minutes, quality float64) {
	if !s.Valid() || s.DurationMinutes <= 0 {
		return 0, 0
	}
	minutes = s.DurationMinutes
	if s.Focus > 0 {
		quality = minutes * float64(s.Focus) / maxFocus
	}
	return minutes, quality
}

// Summarize totals the valid sessions.
func Summarize(sessions []model.Session) Summary {
	var sum Summary
	focusTotal := 0
	for _, s := range sessions {
		minutes, quality := SessionMetrics(s)
		if minutes <= 0 {
			continue
		}
		sum.Sessions++
		sum.Minutes += minutes
		sum.QualityMinutes += quality
		if s.Focus > 0 {
			sum.RatedSessions++
			focusTotal += s.Focus
		}
	}
	if sum.RatedSessions > 0 {
		sum.AvgFocus = float64(focusTotal) / float64(sum.RatedSessions)
	}
	return sum
}

// DailyTotals groups valid sessions by calendar day, oldest first.
func DailyTotals(sessions []model.Session) []model.DayTotal {
	byDay := map[string]*model.DayTotal{}
	for _, s := range sessions {
		minutes, quality := SessionMetrics(s)
		if minutes <= 0 {
			continue
		}
		date := s.Date
		if date == "" {
			date = s.Start.Format(model.DateLayout)
		}
		entry, ok := byDay[date]
		if !ok {
			entry = &model.DayTotal{Date: date}
			byDay[date] = entry
		}
		entry.Minutes += minutes
		entry.QualityMinutes += quality
		entry.Sessions++
	}
	out := make([]model.DayTotal, 0, len(byDay))
	for _, entry := range byDay {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TargetProgressFor sums hours per subject target. A session counts toward a
// subject when its subject or activity contains the subject name.
func TargetProgressFor(sessions []model.Session, targets map[string]float64) []model.TargetProgress {
	subjects := make([]string, 0, len(targets))
	for subject := range targets {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)
	out := make([]model.TargetProgress, 0, len(subjects))
	for _, subject := range subjects {
		needle := strings.ToLower(subject)
		var minutes float64
		for _, s := range sessions {
			m, _ := SessionMetrics(s)
			if m <= 0 {
				continue
			}
			if strings.Contains(strings.ToLower(s.Subject), needle) || strings.Contains(strings.ToLower(s.Activity), needle) {
				minutes += m
			}
		}
		out = append(out, model.TargetProgress{
			Subject:     subject,
			DoneHours:   minutes / 60,
			TargetHours: targets[subject],
		})
	}
	return out
}

// Fraction returns progress toward the target clamped to [0, 1].
func Fraction(p model.TargetProgress) float64 {
	if p.TargetHours <= 0 {
		return 0
	}
	return math.Min(p.DoneHours/p.TargetHours, 1)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the headline totals.
func RenderSummary(w io.Writer, sum Summary) error {
	if sum.Sessions == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Total Hours: %.1f", sum.Minutes/60),
		fmt.Sprintf("Quality Hours: %.1f", sum.QualityMinutes/60),
		fmt.Sprintf("Avg Focus: %.1f", sum.AvgFocus),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderBreakdown prints a table of label totals with their share of time.
func RenderBreakdown(w io.Writer, title string, totals []model.LabelTotal) error {
	if len(totals) == 0 {
		return nil
	}
	var all float64
	for _, t := range totals {
		all += t.Minutes
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	headers := []string{"Label", "Hours", "Share", "Sessions"}
	rows := make([][]string, 0, len(totals))
	for _, t := range totals {
		share := 0.0
		if all > 0 {
			share = t.Minutes / all * 100
		}
		rows = append(rows, []string{
			t.Label,
			fmt.Sprintf("%.1f", t.Minutes/60),
			fmt.Sprintf("%.1f%%", share),
			fmt.Sprintf("%d", t.Sessions),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderTargets prints progress bars toward subject hour targets.
func RenderTargets(w io.Writer, progress []model.TargetProgress, width int) error {
	if len(progress) == 0 {
		return nil
	}
	bars := make([]Bar, 0, len(progress))
	for _, p := range progress {
		bars = append(bars, Bar{
			Label: fmt.Sprintf("%s (%d/%.0f hrs)", p.Subject, int(p.DoneHours), p.TargetHours),
			Value: Fraction(p),
		})
	}
	return RenderBars(w, "Syllabus Targets", bars, 1, width, func(v float64) string {
		return fmt.Sprintf("%.0f%%", v*100)
	})
}
