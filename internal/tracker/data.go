package tracker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/verte-zerg/studytrack/internal/ingest"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/syllabus"
)

// ImportSessions validates a JSON backup and replaces the session log with
// it. Existing data is untouched when validation fails.
func (t *Tracker) ImportSessions(ctx context.Context, r io.Reader) (int, error) {
	sessions, err := ingest.DecodeSessions(r)
	if err != nil {
		return 0, err
	}
	if err := t.store.SaveSessions(ctx, sessions); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return len(sessions), nil
}

// ImportTopics validates a JSON topic list and replaces the syllabus table.
func (t *Tracker) ImportTopics(ctx context.Context, r io.Reader) (int, error) {
	topics, err := ingest.DecodeTopics(r)
	if err != nil {
		return 0, err
	}
	if err := t.store.SaveTopics(ctx, topics); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return len(topics), nil
}

// AddTopics merges topics into the syllabus, keeping existing progress.
func (t *Tracker) AddTopics(ctx context.Context, incoming []model.Topic) (int, error) {
	normalized := make([]model.Topic, 0, len(incoming))
	for i, topic := range incoming {
		n, err := ingest.NormalizeTopic(topic)
		if err != nil {
			return 0, fmt.Errorf("topic %d: %w", i, err)
		}
		normalized = append(normalized, n)
	}
	merged, added := syllabus.Merge(t.Topics(ctx), normalized)
	if added == 0 {
		return 0, nil
	}
	if err := t.store.SaveTopics(ctx, merged); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return added, nil
}

// AdvanceTopic moves every topic whose key or name matches query one step
// up the status ladder and returns the updated topics.
func (t *Tracker) AdvanceTopic(ctx context.Context, query string) ([]model.Topic, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("topic query must not be empty")
	}
	topics := t.Topics(ctx)
	var updated []model.Topic
	for i, topic := range topics {
		if !strings.EqualFold(topic.Key(), query) && !strings.EqualFold(topic.Topic, query) {
			continue
		}
		topics[i] = ingest.AdvanceTopic(topic)
		updated = append(updated, topics[i])
	}
	if len(updated) == 0 {
		return nil, fmt.Errorf("no topic matches %q", query)
	}
	if err := t.store.SaveTopics(ctx, topics); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return updated, nil
}

// Export writes the session log, or the syllabus when topics is set.
func (t *Tracker) Export(ctx context.Context, w io.Writer, format string, topics bool) error {
	if topics {
		return ingest.ExportTopics(w, format, t.Topics(ctx))
	}
	return ingest.ExportSessions(w, format, t.Sessions(ctx))
}
