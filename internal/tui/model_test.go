package tui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/studytrack/internal/jsonstore"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/tracker"
)

var errReadOnly = errors.New("read-only file system")

// lockableStore fails every append while locked.
type lockableStore struct {
	tracker.LogStore
	locked bool
}

func (s *lockableStore) AppendSession(ctx context.Context, sess model.Session) error {
	if s.locked {
		return errReadOnly
	}
	return s.LogStore.AppendSession(ctx, sess)
}

func newTestModel(t *testing.T, now *time.Time, activities map[string][]string) (*Model, *tracker.Tracker) {
	m, tr, _ := newLockableModel(t, now, activities)
	return m, tr
}

func newLockableModel(t *testing.T, now *time.Time, activities map[string][]string) (*Model, *tracker.Tracker, *lockableStore) {
	t.Helper()
	js, err := jsonstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store := &lockableStore{LogStore: js}
	tr := tracker.New(store, model.Config{GapTolerance: 10 * time.Minute},
		tracker.WithClock(func() time.Time { return *now }),
		tracker.WithLogOutput(io.Discard))
	return NewModel(tr, activities), tr, store
}

func press(m *Model, keys ...string) {
	for _, key := range keys {
		var msg tea.KeyMsg
		switch key {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}
		m.Update(msg)
	}
}

func TestChoicesFromOrdersKnownCategoriesFirst(t *testing.T) {
	got := ChoicesFrom(map[string][]string{
		"Gym":     {"Weights"},
		"leisure": {"Walk"},
		"Study":   {"FR Study", " ", "DT Study"},
		"Classes": nil,
	})
	want := []Choice{
		{Category: model.CategoryStudy, Activity: "FR Study"},
		{Category: model.CategoryStudy, Activity: "DT Study"},
		{Category: model.CategoryClasses, Activity: "Classes"},
		{Category: model.CategoryLeisure, Activity: "Walk"},
		{Category: "Gym", Activity: "Weights"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d choices, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("choice %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestChoicesFromDefaults(t *testing.T) {
	got := ChoicesFrom(nil)
	if len(got) != len(model.KnownCategories) || got[0].Category != model.CategoryStudy {
		t.Fatalf("unexpected default choices: %v", got)
	}
}

func TestTimerFlowRecordsGapAndSession(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local)
	m, tr := newTestModel(t, &now, map[string][]string{"Study": {"FR Study"}})
	ctx := context.Background()
	if err := tr.Append(ctx, model.Session{Start: now.Add(-time.Hour), End: now, Category: model.CategoryClasses, Activity: "Lecture"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	now = now.Add(25 * time.Minute)
	press(m, "enter", "FR / IndAS 115", "enter")
	if m.stage != stageRunning {
		t.Fatalf("expected running stage, got %d", m.stage)
	}
	if m.active.Subject != "FR" || m.active.Topic != "IndAS 115" {
		t.Fatalf("unexpected active session: %+v", m.active)
	}
	if !strings.Contains(m.status, "25m unaccounted gap") {
		t.Fatalf("expected gap status, got %q", m.status)
	}

	now = now.Add(50 * time.Minute)
	m.Update(tickMsg(now))
	if !strings.Contains(m.View(), "00:50:00") {
		t.Fatalf("expected elapsed clock in view:\n%s", m.View())
	}

	press(m, "s", "4", "good", "enter")
	if m.stage != stagePick || m.errMsg != "" {
		t.Fatalf("expected saved session, stage %d, err %q", m.stage, m.errMsg)
	}
	sessions := tr.Sessions(ctx)
	if len(sessions) != 3 {
		t.Fatalf("expected seed, gap and session, got %d", len(sessions))
	}
	last := sessions[2]
	if last.Activity != "FR Study" || last.Focus != 4 || last.Note != "good" || last.DurationMinutes != 50 {
		t.Fatalf("unexpected saved session: %+v", last)
	}
	if sessions[1].Category != model.CategoryWasted {
		t.Fatalf("expected gap record before session: %+v", sessions[1])
	}
	if !strings.Contains(m.renderFooter(), "Today 2h15m") {
		t.Fatalf("unexpected footer: %s", m.renderFooter())
	}
}

func TestTimerDiscardAndBack(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local)
	m, tr := newTestModel(t, &now, nil)
	press(m, "down", "enter", "esc")
	if m.stage != stagePick || m.cursor != 1 {
		t.Fatalf("expected back at picker on second choice, got stage %d cursor %d", m.stage, m.cursor)
	}
	press(m, "enter", "enter")
	now = now.Add(time.Minute)
	press(m, "s", "esc", "x")
	if m.stage != stagePick || m.status != "Session discarded." {
		t.Fatalf("expected discarded session, got stage %d status %q", m.stage, m.status)
	}
	if got := len(tr.Sessions(context.Background())); got != 0 {
		t.Fatalf("expected nothing saved, got %d", got)
	}
}

func TestRenderFooterFormats(t *testing.T) {
	m := &Model{today: 95, streak: 3, dueTops: 2, stage: stageRunning}
	out := m.renderFooter()
	for _, needle := range []string{"Today 1h35m", "Streak 3d", "Due 2", "s stop"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("footer missing %q: %s", needle, out)
		}
	}
	m.pending = []model.Session{{}, {}}
	if !strings.Contains(m.renderFooter(), "r retry (2)") {
		t.Fatalf("expected retry hint with count: %s", m.renderFooter())
	}
}

func TestRetryDrainsConsecutiveFailures(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local)
	m, tr, store := newLockableModel(t, &now, map[string][]string{"Study": {"FR Study"}})
	ctx := context.Background()
	if err := tr.Append(ctx, model.Session{Start: now.Add(-time.Hour), End: now, Category: model.CategoryClasses, Activity: "Lecture"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store.locked = true

	press(m, "enter", "enter")
	now = now.Add(30 * time.Minute)
	press(m, "s", "3", "enter")
	if len(m.pending) != 1 || !strings.Contains(m.errMsg, "1 record pending") {
		t.Fatalf("expected one pending record, got %d, %q", len(m.pending), m.errMsg)
	}

	// 09:35 is within tolerance of the unsaved 09:30 end.
	now = now.Add(5 * time.Minute)
	press(m, "enter", "enter")
	if len(m.pending) != 1 {
		t.Fatalf("expected no gap against the unsaved session, got %d pending: %+v", len(m.pending), m.pending)
	}
	now = now.Add(20 * time.Minute)
	press(m, "s", "5", "enter")
	if len(m.pending) != 2 || !strings.Contains(m.errMsg, "2 records pending") {
		t.Fatalf("expected two pending records, got %d, %q", len(m.pending), m.errMsg)
	}

	press(m, "r")
	if len(m.pending) != 2 || !strings.Contains(m.errMsg, "2 records still pending") {
		t.Fatalf("expected queue kept on failed retry, got %d, %q", len(m.pending), m.errMsg)
	}

	store.locked = false
	press(m, "r")
	if len(m.pending) != 0 || m.errMsg != "" || m.status != "Saved 2 records." {
		t.Fatalf("expected queue drained, got %d, %q, %q", len(m.pending), m.errMsg, m.status)
	}
	sessions := tr.Sessions(ctx)
	if len(sessions) != 3 {
		t.Fatalf("expected seed and both sessions, got %d: %+v", len(sessions), sessions)
	}
	for i, want := range []struct {
		start, end time.Time
		focus      int
	}{
		{time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local), time.Date(2026, 4, 10, 9, 30, 0, 0, time.Local), 3},
		{time.Date(2026, 4, 10, 9, 35, 0, 0, time.Local), time.Date(2026, 4, 10, 9, 55, 0, 0, time.Local), 5},
	} {
		got := sessions[i+1]
		if !got.Start.Equal(want.start) || !got.End.Equal(want.end) || got.Focus != want.focus {
			t.Fatalf("session %d: unexpected record %+v", i+1, got)
		}
		if got.Category == model.CategoryWasted {
			t.Fatalf("unexpected gap record: %+v", got)
		}
	}
}

func TestQualityPreview(t *testing.T) {
	start := time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local)
	active := model.ActiveSession{Start: start, Category: model.CategoryStudy, Activity: "FR Study"}
	end := start.Add(50 * time.Minute)
	if got := qualityPreview(active, end, 4); got != "Quality time 40m of 50m" {
		t.Fatalf("unexpected preview: %q", got)
	}
	if got := qualityPreview(active, end, 0); got != "Quality time 0m of 50m" {
		t.Fatalf("unexpected unrated preview: %q", got)
	}
	if got := qualityPreview(active, start.Add(90*time.Minute), 5); got != "Quality time 1h30m of 1h30m" {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestFocusStagesShowQualityPreview(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local)
	m, _ := newTestModel(t, &now, nil)
	press(m, "enter", "enter")
	now = now.Add(50 * time.Minute)
	press(m, "s")
	if view := m.View(); !strings.Contains(view, "At focus 5: Quality time 50m of 50m") {
		t.Fatalf("expected focus preview in view:\n%s", view)
	}
	press(m, "2")
	if view := m.View(); !strings.Contains(view, "Quality time 20m of 50m") {
		t.Fatalf("expected rated preview in view:\n%s", view)
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(90*time.Minute + 5*time.Second); got != "01:30:05" {
		t.Fatalf("unexpected elapsed: %s", got)
	}
	if got := formatElapsed(-time.Second); got != "00:00:00" {
		t.Fatalf("unexpected negative elapsed: %s", got)
	}
}

func TestSplitTopic(t *testing.T) {
	if s, tp := splitTopic(" FR /  IndAS 115 "); s != "FR" || tp != "IndAS 115" {
		t.Fatalf("unexpected split: %q %q", s, tp)
	}
	if s, tp := splitTopic("Options"); s != "" || tp != "Options" {
		t.Fatalf("unexpected split: %q %q", s, tp)
	}
}
