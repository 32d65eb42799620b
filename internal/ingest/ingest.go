// Package ingest validates records at the boundary and handles import/export.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/model"
)

// MaxFocus is the highest focus rating.
const MaxFocus = 5

// ErrInvalidRecord marks a record that cannot be ingested.
var ErrInvalidRecord = errors.New("invalid record")

// NormalizeSession validates a session and derives its computed fields.
// Date and duration are always recomputed from start and end; a missing ID
// is assigned.
func NormalizeSession(s model.Session) (model.Session, error) {
	if s.Start.IsZero() || s.End.IsZero() {
		return model.Session{}, fmt.Errorf("%w: start and end are required", ErrInvalidRecord)
	}
	if !s.End.After(s.Start) {
		return model.Session{}, fmt.Errorf("%w: end must be after start", ErrInvalidRecord)
	}
	if s.Focus < 0 || s.Focus > MaxFocus {
		return model.Session{}, fmt.Errorf("%w: focus must be between 0 and %d", ErrInvalidRecord, MaxFocus)
	}
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Category, _ = model.ParseCategory(string(s.Category))
	s.Activity = strings.TrimSpace(s.Activity)
	s.Subject = strings.TrimSpace(s.Subject)
	s.Topic = strings.TrimSpace(s.Topic)
	s.Note = strings.TrimSpace(s.Note)
	s.Date = s.Start.Format(model.DateLayout)
	s.DurationMinutes = insights.Minutes(s.End.Sub(s.Start))
	return s, nil
}

// NormalizeTopic validates a topic and canonicalizes its enums.
func NormalizeTopic(t model.Topic) (model.Topic, error) {
	t.Subject = strings.TrimSpace(t.Subject)
	t.Chapter = strings.TrimSpace(t.Chapter)
	t.Topic = strings.TrimSpace(t.Topic)
	if t.Subject == "" || t.Topic == "" {
		return model.Topic{}, fmt.Errorf("%w: subject and topic are required", ErrInvalidRecord)
	}
	if t.RevCount < 0 {
		return model.Topic{}, fmt.Errorf("%w: rev_count must be >= 0", ErrInvalidRecord)
	}
	t.Status, _ = model.ParseStatus(string(t.Status))
	t.Confidence, _ = model.ParseConfidence(string(t.Confidence))
	t.LastStudied = strings.TrimSpace(t.LastStudied)
	return t, nil
}

// AdvanceTopic moves a topic one step up the status ladder. Reaching a
// revision step counts as a revision pass.
func AdvanceTopic(t model.Topic) model.Topic {
	next := t.Status.Next()
	if next != t.Status && next.IsRevision() {
		t.RevCount++
	}
	t.Status = next
	return t
}

// MatchesTopic reports whether a session touched the topic. Matching is
// case-insensitive on subject and topic text.
func MatchesTopic(s model.Session, t model.Topic) bool {
	if s.Topic == "" || t.Topic == "" {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(s.Topic), t.Topic) {
		return false
	}
	return s.Subject == "" || strings.EqualFold(strings.TrimSpace(s.Subject), t.Subject)
}
