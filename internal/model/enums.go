package model

import "strings"

// Category is an open enum of session categories.
type Category string

// Known categories. Any other non-empty label is kept as-is.
const (
	CategoryStudy      Category = "Study"
	CategoryClasses    Category = "Classes"
	CategoryPractice   Category = "Practice"
	CategoryBiological Category = "Biological"
	CategoryLogistics  Category = "Logistics"
	CategoryLeisure    Category = "Leisure"
	CategoryWasted     Category = "Wasted"
	CategoryOther      Category = "Other"
)

// KnownCategories lists categories in display order.
var KnownCategories = []Category{
	CategoryStudy,
	CategoryClasses,
	CategoryPractice,
	CategoryBiological,
	CategoryLogistics,
	CategoryLeisure,
	CategoryWasted,
	CategoryOther,
}

// ParseCategory canonicalizes a label. Known categories match
// case-insensitively; an empty label maps to CategoryOther.
func ParseCategory(label string) (Category, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return CategoryOther, true
	}
	for _, c := range KnownCategories {
		if strings.EqualFold(label, string(c)) {
			return c, true
		}
	}
	return Category(label), false
}

// TopicStatus is the progress of a syllabus topic.
type TopicStatus string

// Status ladder, lowest first.
const (
	StatusPending   TopicStatus = "Pending"
	StatusClassDone TopicStatus = "Class Done"
	StatusRev1      TopicStatus = "Rev 1"
	StatusRev2      TopicStatus = "Rev 2"
	StatusRev3      TopicStatus = "Rev 3"
	StatusMastered  TopicStatus = "Mastered"
)

var statusLadder = []TopicStatus{
	StatusPending,
	StatusClassDone,
	StatusRev1,
	StatusRev2,
	StatusRev3,
	StatusMastered,
}

// ParseStatus canonicalizes a status label. Unknown labels are kept verbatim.
func ParseStatus(label string) (TopicStatus, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return StatusPending, true
	}
	for _, s := range statusLadder {
		if strings.EqualFold(label, string(s)) {
			return s, true
		}
	}
	return TopicStatus(label), false
}

// Rank returns the position on the status ladder. Unknown statuses rank as Pending.
func (s TopicStatus) Rank() int {
	for i, known := range statusLadder {
		if s == known {
			return i
		}
	}
	return 0
}

// Completed reports whether the topic has been covered at least once.
func (s TopicStatus) Completed() bool {
	return s.Rank() > 0
}

// IsRevision reports whether the status is one of the "Rev n" passes.
func (s TopicStatus) IsRevision() bool {
	return s == StatusRev1 || s == StatusRev2 || s == StatusRev3
}

// Next returns the next status on the ladder. Mastered stays Mastered.
func (s TopicStatus) Next() TopicStatus {
	rank := s.Rank()
	if rank+1 >= len(statusLadder) {
		return StatusMastered
	}
	return statusLadder[rank+1]
}

// Confidence is the subjective confidence in a topic.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow  Confidence = "Low"
	ConfidenceMed  Confidence = "Med"
	ConfidenceHigh Confidence = "High"
)

// ParseConfidence canonicalizes a confidence label, defaulting to Med.
func ParseConfidence(label string) (Confidence, bool) {
	label = strings.TrimSpace(label)
	for _, c := range []Confidence{ConfidenceLow, ConfidenceMed, ConfidenceHigh} {
		if strings.EqualFold(label, string(c)) {
			return c, true
		}
	}
	switch strings.ToLower(label) {
	case "medium":
		return ConfidenceMed, true
	case "":
		return ConfidenceMed, true
	}
	return ConfidenceMed, false
}
