// Package syllabus loads syllabus topic lists from files.
package syllabus

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/verte-zerg/studytrack/internal/model"
)

// LoadTopics reads one topic per line from the provided file path. Each line
// is "Subject / Chapter / Topic"; "|" is accepted as a separator too. Blank
// lines and lines starting with "#" are skipped.
func LoadTopics(path string) ([]model.Topic, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only syllabus file.
			_ = cerr
		}
	}()

	var topics []model.Topic
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topic, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		topics = append(topics, topic)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("syllabus file is empty")
	}
	return topics, nil
}

// ParseLine parses a single "Subject / Chapter / Topic" line into a pending topic.
func ParseLine(line string) (model.Topic, error) {
	sep := "/"
	if strings.Contains(line, "|") {
		sep = "|"
	}
	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	topic := model.Topic{Status: model.StatusPending, Confidence: model.ConfidenceMed}
	switch len(parts) {
	case 2:
		topic.Subject, topic.Topic = parts[0], parts[1]
	case 3:
		topic.Subject, topic.Chapter, topic.Topic = parts[0], parts[1], parts[2]
	default:
		return model.Topic{}, fmt.Errorf("expected \"subject %s chapter %s topic\", got %q", sep, sep, line)
	}
	if topic.Subject == "" || topic.Topic == "" {
		return model.Topic{}, fmt.Errorf("subject and topic must not be empty in %q", line)
	}
	return topic, nil
}
