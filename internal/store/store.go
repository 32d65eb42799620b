// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/studytrack/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session and topic data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			seq INTEGER PRIMARY KEY,
			id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			date TEXT NOT NULL,
			category TEXT NOT NULL,
			activity TEXT NOT NULL,
			subject TEXT NOT NULL,
			topic TEXT NOT NULL,
			duration_minutes REAL NOT NULL,
			focus INTEGER NOT NULL,
			note TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS topics (
			seq INTEGER PRIMARY KEY,
			subject TEXT NOT NULL,
			chapter TEXT NOT NULL,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence TEXT NOT NULL,
			rev_count INTEGER NOT NULL,
			last_studied TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_date ON sessions(date);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, db execer, sess model.Session) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, ended_at, date, category, activity, subject, topic, duration_minutes, focus, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		formatTime(sess.Start),
		formatTime(sess.End),
		sess.Date,
		string(sess.Category),
		sess.Activity,
		sess.Subject,
		sess.Topic,
		sess.DurationMinutes,
		sess.Focus,
		sess.Note,
	)
	return err
}

// AppendSession stores one session after the existing ones.
func (s *Store) AppendSession(ctx context.Context, sess model.Session) error {
	if err := insertSession(ctx, s.db, sess); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// SaveSessions replaces all stored sessions with the given ordered sequence.
func (s *Store) SaveSessions(ctx context.Context, sessions []model.Session) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	for _, sess := range sessions {
		if err = insertSession(ctx, tx, sess); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// LoadSessions returns all sessions in insertion order.
func (s *Store) LoadSessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, date, category, activity, subject, topic, duration_minutes, focus, note
		 FROM sessions
		 ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var startedAt, endedAt, category string
		if err := rows.Scan(&sess.ID, &startedAt, &endedAt, &sess.Date, &category, &sess.Activity, &sess.Subject, &sess.Topic, &sess.DurationMinutes, &sess.Focus, &sess.Note); err != nil {
			return nil, err
		}
		sess.Start = parseTime(startedAt)
		sess.End = parseTime(endedAt)
		sess.Category = model.Category(category)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SaveTopics replaces all stored topics with the given ordered sequence.
func (s *Store) SaveTopics(ctx context.Context, topics []model.Topic) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM topics`); err != nil {
		return fmt.Errorf("failed to clear topics: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO topics (subject, chapter, topic, status, confidence, rev_count, last_studied)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, t := range topics {
		if _, err = stmt.ExecContext(ctx, t.Subject, t.Chapter, t.Topic, string(t.Status), string(t.Confidence), t.RevCount, t.LastStudied); err != nil {
			return fmt.Errorf("failed to insert topic: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// LoadTopics returns all topics in insertion order.
func (s *Store) LoadTopics(ctx context.Context) ([]model.Topic, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject, chapter, topic, status, confidence, rev_count, last_studied
		 FROM topics
		 ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		var status, confidence string
		if err := rows.Scan(&t.Subject, &t.Chapter, &t.Topic, &status, &confidence, &t.RevCount, &t.LastStudied); err != nil {
			return nil, err
		}
		t.Status = model.TopicStatus(status)
		t.Confidence = model.Confidence(confidence)
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// parseTime leaves malformed timestamps as zero so aggregates can skip them.
func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
