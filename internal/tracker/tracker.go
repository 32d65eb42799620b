// Package tracker combines a log store with the study-log rules.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/verte-zerg/studytrack/internal/ingest"
	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/model"
)

// ErrStore marks a failed write to the log store. In-memory data is kept
// and the caller may retry.
var ErrStore = errors.New("failed to write study log")

// LogStore persists ordered session and topic tables.
type LogStore interface {
	LoadSessions(ctx context.Context) ([]model.Session, error)
	SaveSessions(ctx context.Context, sessions []model.Session) error
	AppendSession(ctx context.Context, s model.Session) error
	LoadTopics(ctx context.Context) ([]model.Topic, error)
	SaveTopics(ctx context.Context, topics []model.Topic) error
}

// Tracker applies the tracking rules on top of a LogStore.
type Tracker struct {
	store     LogStore
	tolerance time.Duration
	scheduler insights.Scheduler
	examDate  *time.Time
	now       func() time.Time
	logOut    io.Writer
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogOutput redirects warnings, which go to stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(t *Tracker) { t.logOut = w }
}

// New constructs a Tracker from settings.
func New(store LogStore, cfg model.Config, opts ...Option) *Tracker {
	t := &Tracker{
		store:     store,
		tolerance: cfg.GapTolerance,
		scheduler: insights.NewScheduler(cfg.RevisionCadence),
		examDate:  cfg.ExamDate,
		now:       time.Now,
		logOut:    os.Stderr,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Now returns the tracker's current time.
func (t *Tracker) Now() time.Time {
	return t.now()
}

// Sessions loads the session log. Load failures yield an empty log.
func (t *Tracker) Sessions(ctx context.Context) []model.Session {
	sessions, err := t.store.LoadSessions(ctx)
	if err != nil {
		t.logErrf("failed to load sessions, treating log as empty: %v\n", err)
		return nil
	}
	return sessions
}

// Topics loads the syllabus table. Load failures yield an empty table.
func (t *Tracker) Topics(ctx context.Context) []model.Topic {
	topics, err := t.store.LoadTopics(ctx)
	if err != nil {
		t.logErrf("failed to load topics, treating syllabus as empty: %v\n", err)
		return nil
	}
	return topics
}

// StartResult describes what happened when a session was started.
type StartResult struct {
	// Gap is the synthesized idle record, if any. It is set even when
	// persisting it failed so the caller can retry with Append.
	Gap *model.Session
	// GapSaved reports whether Gap reached the log.
	GapSaved bool
	// Anomaly is set when the new start overlaps the previous session.
	Anomaly error
}

// Start prepares a new timed session. An idle gap since the last session of
// the day is appended to the log before the session begins.
func (t *Tracker) Start(ctx context.Context, active model.ActiveSession) (StartResult, error) {
	return t.StartWith(ctx, active, nil)
}

// StartWith is Start with unsaved records that count as logged, so a
// session still waiting for a retry does not open a false gap.
func (t *Tracker) StartWith(ctx context.Context, active model.ActiveSession, unsaved []model.Session) (StartResult, error) {
	sessions := t.Sessions(ctx)
	if len(unsaved) > 0 {
		sessions = append(append([]model.Session(nil), sessions...), unsaved...)
	}
	today := insights.SessionsOn(sessions, active.Start)
	gap, err := insights.DetectGap(today, active.Start, t.tolerance)
	if err != nil {
		t.logErrf("gap detection skipped: %v\n", err)
		return StartResult{Anomaly: err}, nil
	}
	if gap == nil {
		return StartResult{}, nil
	}
	normalized, err := ingest.NormalizeSession(*gap)
	if err != nil {
		return StartResult{}, fmt.Errorf("failed to build gap record: %w", err)
	}
	result := StartResult{Gap: &normalized}
	if err := t.store.AppendSession(ctx, normalized); err != nil {
		return result, fmt.Errorf("%w: %w", ErrStore, err)
	}
	result.GapSaved = true
	return result, nil
}

// Stop completes an active session and appends it to the log. The built
// session is returned even when saving fails.
func (t *Tracker) Stop(ctx context.Context, active model.ActiveSession, end time.Time, focus int, note string) (model.Session, error) {
	sess, err := ingest.NormalizeSession(model.Session{
		Start:    active.Start,
		End:      end,
		Category: active.Category,
		Activity: active.Activity,
		Subject:  active.Subject,
		Topic:    active.Topic,
		Focus:    focus,
		Note:     note,
	})
	if err != nil {
		return model.Session{}, err
	}
	if err := t.Append(ctx, sess); err != nil {
		return sess, err
	}
	return sess, nil
}

// Append validates and stores a finished session, then marks matching
// topics as studied on the session's date.
func (t *Tracker) Append(ctx context.Context, sess model.Session) error {
	sess, err := ingest.NormalizeSession(sess)
	if err != nil {
		return err
	}
	if err := t.store.AppendSession(ctx, sess); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := t.touchTopics(ctx, sess); err != nil {
		t.logErrf("failed to update topic last-studied dates: %v\n", err)
	}
	return nil
}

// Log records a manually entered session. Gap detection runs first, as if a
// timer had been started at the session's start.
func (t *Tracker) Log(ctx context.Context, sess model.Session) (StartResult, error) {
	sess, err := ingest.NormalizeSession(sess)
	if err != nil {
		return StartResult{}, err
	}
	result, err := t.Start(ctx, model.ActiveSession{Start: sess.Start})
	if err != nil {
		return result, err
	}
	return result, t.Append(ctx, sess)
}

func (t *Tracker) touchTopics(ctx context.Context, sess model.Session) error {
	if sess.Topic == "" {
		return nil
	}
	topics, err := t.store.LoadTopics(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i, topic := range topics {
		if !ingest.MatchesTopic(sess, topic) {
			continue
		}
		if last, ok := insights.ParseDay(topic.LastStudied); ok && last.Format(model.DateLayout) >= sess.Date {
			continue
		}
		topics[i].LastStudied = sess.Date
		changed = true
	}
	if !changed {
		return nil
	}
	return t.store.SaveTopics(ctx, topics)
}

func (t *Tracker) logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(t.logOut, format, args...); err != nil {
		// Best-effort logging.
		_ = err
	}
}
