// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Bar is one labelled value in a horizontal bar chart.
type Bar struct {
	Label string
	Value float64
}

const (
	minBarWidth         = 10
	barFill             = "█"
	barEmpty            = "░"
	terminalWidthBackup = 80
)

// RenderBars prints a horizontal bar chart. Bars are scaled against maxValue,
// or against the largest value when maxValue <= 0. A width <= 0 uses the
// terminal width.
func RenderBars(w io.Writer, title string, bars []Bar, maxValue float64, width int, format func(float64) string) error {
	if len(bars) == 0 {
		return nil
	}
	if format == nil {
		format = func(v float64) string { return fmt.Sprintf("%.1f", v) }
	}
	if maxValue <= 0 {
		for _, b := range bars {
			maxValue = math.Max(maxValue, b.Value)
		}
	}
	if width <= 0 {
		width = terminalWidth()
	}

	labelWidth := 0
	valueWidth := 0
	for _, b := range bars {
		labelWidth = maxInt(labelWidth, runewidth.StringWidth(b.Label))
		valueWidth = maxInt(valueWidth, runewidth.StringWidth(format(b.Value)))
	}
	barWidth := BarWidthFor(width, labelWidth, valueWidth)

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for _, b := range bars {
		filled := 0
		if maxValue > 0 {
			filled = int(math.Round(b.Value / maxValue * float64(barWidth)))
		}
		if filled < 0 {
			filled = 0
		}
		if filled > barWidth {
			filled = barWidth
		}
		line := fmt.Sprintf("%s %s%s %s",
			runewidth.FillRight(b.Label, labelWidth),
			strings.Repeat(barFill, filled),
			strings.Repeat(barEmpty, barWidth-filled),
			runewidth.FillLeft(format(b.Value), valueWidth),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// BarWidthFor computes the bar area that fits next to labels and values.
func BarWidthFor(totalWidth, labelWidth, valueWidth int) int {
	barWidth := totalWidth - labelWidth - valueWidth - 2
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	return barWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// RenderDaily prints hours per day as bars, followed by a sparkline of the
// moving average over window days.
func RenderDaily(w io.Writer, days []model.DayTotal, window, width int) error {
	if len(days) == 0 {
		return nil
	}
	bars := make([]Bar, 0, len(days))
	values := make([]float64, 0, len(days))
	for _, d := range days {
		bars = append(bars, Bar{Label: d.Date, Value: d.Minutes / 60})
		values = append(values, d.Minutes/60)
	}
	if err := RenderBars(w, "Daily Trend (hours)", bars, 0, width, nil); err != nil {
		return err
	}
	trend := Sparkline(MovingAverage(values, window))
	_, err := fmt.Fprintf(w, "Trend (%d-day avg): %s\n", window, trend)
	return err
}

