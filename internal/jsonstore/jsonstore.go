// Package jsonstore persists sessions and topics as JSON files.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verte-zerg/studytrack/internal/model"
)

const (
	sessionsFile = "sessions.json"
	topicsFile   = "topics.json"
)

// Store keeps one JSON array per table inside a directory.
type Store struct {
	dir string
}

// Open prepares a store rooted at dir, creating it when missing.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close implements the log store contract. There is nothing to release.
func (s *Store) Close() error {
	return nil
}

// LoadSessions reads the session log. A missing file is an empty log.
func (s *Store) LoadSessions(_ context.Context) ([]model.Session, error) {
	var sessions []model.Session
	if err := s.read(sessionsFile, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SaveSessions overwrites the session log.
func (s *Store) SaveSessions(_ context.Context, sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	return s.write(sessionsFile, sessions)
}

// AppendSession rewrites the log with one more session. It is not atomic
// across processes.
func (s *Store) AppendSession(ctx context.Context, sess model.Session) error {
	sessions, err := s.LoadSessions(ctx)
	if err != nil {
		return err
	}
	return s.SaveSessions(ctx, append(sessions, sess))
}

// LoadTopics reads the syllabus table. A missing file is an empty table.
func (s *Store) LoadTopics(_ context.Context) ([]model.Topic, error) {
	var topics []model.Topic
	if err := s.read(topicsFile, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// SaveTopics overwrites the syllabus table.
func (s *Store) SaveTopics(_ context.Context, topics []model.Topic) error {
	if topics == nil {
		topics = []model.Topic{}
	}
	return s.write(topicsFile, topics)
}

func (s *Store) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	data = append(data, '\n')

	tmpFile, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
