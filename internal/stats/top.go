// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"

	"github.com/verte-zerg/studytrack/internal/model"
)

// ByActivity totals minutes per activity, largest first.
func ByActivity(sessions []model.Session) []model.LabelTotal {
	return totalsBy(sessions, func(s model.Session) string {
		if s.Activity == "" {
			return "(none)"
		}
		return s.Activity
	})
}

// ByCategory totals minutes per category, largest first.
func ByCategory(sessions []model.Session) []model.LabelTotal {
	return totalsBy(sessions, func(s model.Session) string { return string(s.Category) })
}

// TopLabels returns the first n labels of totals.
func TopLabels(totals []model.LabelTotal, n int) []string {
	if n <= 0 || len(totals) == 0 {
		return nil
	}
	if n > len(totals) {
		n = len(totals)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, totals[i].Label)
	}
	return out
}

func totalsBy(sessions []model.Session, key func(model.Session) string) []model.LabelTotal {
	byLabel := map[string]*model.LabelTotal{}
	for _, s := range sessions {
		minutes, _ := SessionMetrics(s)
		if minutes <= 0 {
			continue
		}
		label := key(s)
		entry, ok := byLabel[label]
		if !ok {
			entry = &model.LabelTotal{Label: label}
			byLabel[label] = entry
		}
		entry.Minutes += minutes
		entry.Sessions++
	}
	items := make([]model.LabelTotal, 0, len(byLabel))
	for _, entry := range byLabel {
		items = append(items, *entry)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Minutes == items[j].Minutes {
			return items[i].Label < items[j].Label
		}
		return items[i].Minutes > items[j].Minutes
	})
	return items
}
