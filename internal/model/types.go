// Package model defines shared data structures.
package model

import "time"

// DateLayout is the calendar-day format used for denormalized date fields.
const DateLayout = "2006-01-02"

// Config defines tracker settings.
type Config struct {
	GapTolerance    time.Duration
	RevisionCadence []int
	ExamDate        *time.Time
	Backend         string
	DataDir         string
	Targets         map[string]float64
	Activities      map[string][]string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since *time.Time
	Days  int
}

// Session captures one completed timed activity.
type Session struct {
	ID              string    `json:"id" yaml:"id"`
	Start           time.Time `json:"start" yaml:"start"`
	End             time.Time `json:"end" yaml:"end"`
	Date            string    `json:"date" yaml:"date"`
	Category        Category  `json:"category" yaml:"category"`
	Activity        string    `json:"activity" yaml:"activity"`
	Subject         string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Topic           string    `json:"topic,omitempty" yaml:"topic,omitempty"`
	DurationMinutes float64   `json:"duration_minutes" yaml:"duration_minutes"`
	Focus           int       `json:"focus" yaml:"focus"`
	Note            string    `json:"note,omitempty" yaml:"note,omitempty"`
}

// Valid reports whether the session carries usable timestamps.
func (s Session) Valid() bool {
	return !s.Start.IsZero() && !s.End.IsZero() && s.End.After(s.Start)
}

// Topic is one unit of syllabus material.
type Topic struct {
	Subject     string      `json:"subject" yaml:"subject"`
	Chapter     string      `json:"chapter" yaml:"chapter"`
	Topic       string      `json:"topic" yaml:"topic"`
	Status      TopicStatus `json:"status" yaml:"status"`
	Confidence  Confidence  `json:"confidence" yaml:"confidence"`
	RevCount    int         `json:"rev_count" yaml:"rev_count"`
	LastStudied string      `json:"last_studied,omitempty" yaml:"last_studied,omitempty"`
}

// Key returns the composite natural key of the topic.
func (t Topic) Key() string {
	return t.Subject + " / " + t.Chapter + " / " + t.Topic
}

// ActiveSession is a timer session in progress. It is owned by the caller.
type ActiveSession struct {
	Start    time.Time
	Category Category
	Activity string
	Subject  string
	Topic    string
}

// DayTotal aggregates logged minutes for one calendar day.
type DayTotal struct {
	Date           string
	Minutes        float64
	QualityMinutes float64
	Sessions       int
}

// LabelTotal aggregates logged minutes for one label (activity, category, subject).
type LabelTotal struct {
	Label    string
	Minutes  float64
	Sessions int
}

// TargetProgress compares logged hours with a subject target.
type TargetProgress struct {
	Subject     string
	DoneHours   float64
	TargetHours float64
}
