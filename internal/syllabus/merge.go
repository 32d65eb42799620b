package syllabus

import (
	"strings"

	"github.com/verte-zerg/studytrack/internal/model"
)

// Merge appends incoming topics that are not already present. Existing
// topics keep their progress. Keys compare case-insensitively.
func Merge(existing, incoming []model.Topic) ([]model.Topic, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]model.Topic, 0, len(existing)+len(incoming))
	for _, t := range existing {
		seen[strings.ToLower(t.Key())] = struct{}{}
		out = append(out, t)
	}
	added := 0
	for _, t := range incoming {
		key := strings.ToLower(t.Key())
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		added++
	}
	return out, added
}
