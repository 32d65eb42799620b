package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/studytrack/internal/model"
)

// ErrInvalidImport reports an import document with the wrong shape.
var ErrInvalidImport = errors.New("invalid import file")

// Formats supported by Export.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// DecodeSessions reads a JSON array of session objects and validates every
// record. Any failure rejects the whole document.
func DecodeSessions(r io.Reader) ([]model.Session, error) {
	raws, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	out := make([]model.Session, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		var s model.Session
		if err := json.Unmarshal(raw, &s); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		normalized, err := NormalizeSession(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, normalized)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, errors.Join(errs...))
	}
	return out, nil
}

// DecodeTopics reads a JSON array of topic objects and validates every record.
func DecodeTopics(r io.Reader) ([]model.Topic, error) {
	raws, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	out := make([]model.Topic, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		var t model.Topic
		if err := json.Unmarshal(raw, &t); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		normalized, err := NormalizeTopic(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, normalized)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImport, errors.Join(errs...))
	}
	return out, nil
}

func decodeArray(r io.Reader) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %w", ErrInvalidImport, err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no records", ErrInvalidImport)
	}
	for i, raw := range raws {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: record %d is not an object", ErrInvalidImport, i)
		}
	}
	return raws, nil
}

// ExportSessions writes sessions in the requested format.
func ExportSessions(w io.Writer, format string, sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	switch format {
	case FormatJSON:
		return writeJSON(w, sessions)
	case FormatYAML:
		return writeYAML(w, sessions)
	case FormatCSV:
		header := []string{"id", "date", "start", "end", "category", "activity", "subject", "topic", "duration_minutes", "focus", "note"}
		rows := make([][]string, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, []string{
				s.ID,
				s.Date,
				formatTime(s.Start),
				formatTime(s.End),
				string(s.Category),
				s.Activity,
				s.Subject,
				s.Topic,
				strconv.FormatFloat(s.DurationMinutes, 'f', 2, 64),
				strconv.Itoa(s.Focus),
				s.Note,
			})
		}
		return writeCSV(w, header, rows)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// ExportTopics writes topics in the requested format.
func ExportTopics(w io.Writer, format string, topics []model.Topic) error {
	if topics == nil {
		topics = []model.Topic{}
	}
	switch format {
	case FormatJSON:
		return writeJSON(w, topics)
	case FormatYAML:
		return writeYAML(w, topics)
	case FormatCSV:
		header := []string{"subject", "chapter", "topic", "status", "confidence", "rev_count", "last_studied"}
		rows := make([][]string, 0, len(topics))
		for _, t := range topics {
			rows = append(rows, []string{
				t.Subject,
				t.Chapter,
				t.Topic,
				string(t.Status),
				string(t.Confidence),
				strconv.Itoa(t.RevCount),
				t.LastStudied,
			})
		}
		return writeCSV(w, header, rows)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush yaml: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
