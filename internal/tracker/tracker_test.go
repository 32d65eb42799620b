package tracker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/studytrack/internal/ingest"
	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/jsonstore"
	"github.com/verte-zerg/studytrack/internal/model"
)

var errLocked = errors.New("file is locked")

type flakyStore struct {
	LogStore
	failWrites bool
	failLoads  bool
}

func (f *flakyStore) LoadSessions(ctx context.Context) ([]model.Session, error) {
	if f.failLoads {
		return nil, errLocked
	}
	return f.LogStore.LoadSessions(ctx)
}

func (f *flakyStore) LoadTopics(ctx context.Context) ([]model.Topic, error) {
	if f.failLoads {
		return nil, errLocked
	}
	return f.LogStore.LoadTopics(ctx)
}

func (f *flakyStore) AppendSession(ctx context.Context, s model.Session) error {
	if f.failWrites {
		return errLocked
	}
	return f.LogStore.AppendSession(ctx, s)
}

func (f *flakyStore) SaveSessions(ctx context.Context, s []model.Session) error {
	if f.failWrites {
		return errLocked
	}
	return f.LogStore.SaveSessions(ctx, s)
}

func newTestTracker(t *testing.T, now time.Time) (*Tracker, *flakyStore, *bytes.Buffer) {
	t.Helper()
	js, err := jsonstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	fs := &flakyStore{LogStore: js}
	var logs bytes.Buffer
	exam := time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local)
	tr := New(fs, model.Config{
		GapTolerance:    10 * time.Minute,
		RevisionCadence: insights.DefaultCadence,
		ExamDate:        &exam,
	}, WithClock(func() time.Time { return now }), WithLogOutput(&logs))
	return tr, fs, &logs
}

func clock(hour, minute int) time.Time {
	return time.Date(2026, 4, 10, hour, minute, 0, 0, time.Local)
}

func active(start time.Time) model.ActiveSession {
	return model.ActiveSession{Start: start, Category: model.CategoryStudy, Activity: "FR Study", Subject: "FR", Topic: "IndAS 115"}
}

func TestStartSynthesizesGapBeforeSession(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(9, 25))
	ctx := context.Background()
	for _, span := range [][2]time.Time{
		{clock(6, 0), clock(7, 0)},
		{clock(7, 0), clock(8, 0)},
		{clock(8, 5), clock(9, 0)},
	} {
		if _, err := tr.Stop(ctx, active(span[0]), span[1], 4, ""); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}

	result, err := tr.Start(ctx, active(clock(9, 25)))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if result.Gap == nil || !result.GapSaved {
		t.Fatalf("expected saved gap record, got %+v", result)
	}
	if result.Gap.Category != model.CategoryWasted || result.Gap.Note != insights.GapLabel {
		t.Fatalf("unexpected gap record: %+v", result.Gap)
	}
	if !result.Gap.Start.Equal(clock(9, 0)) || !result.Gap.End.Equal(clock(9, 25)) || result.Gap.DurationMinutes != 25 {
		t.Fatalf("unexpected gap span: %+v", result.Gap)
	}

	sessions := tr.Sessions(ctx)
	if len(sessions) != 4 {
		t.Fatalf("expected gap to be persisted, got %d sessions", len(sessions))
	}
	if sessions[3].ID != result.Gap.ID {
		t.Fatalf("expected gap appended last")
	}
}

func TestStartWithinToleranceAndFirstOfDay(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(9, 5))
	ctx := context.Background()
	result, err := tr.Start(ctx, active(clock(6, 0)))
	if err != nil || result.Gap != nil {
		t.Fatalf("expected no gap for first session, got %+v, %v", result, err)
	}
	if _, err := tr.Stop(ctx, active(clock(6, 0)), clock(9, 0), 3, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	result, err = tr.Start(ctx, active(clock(9, 10)))
	if err != nil || result.Gap != nil {
		t.Fatalf("expected no gap within tolerance, got %+v, %v", result, err)
	}
}

func TestStartOverlapIsAnomaly(t *testing.T) {
	tr, _, logs := newTestTracker(t, clock(9, 0))
	ctx := context.Background()
	if _, err := tr.Stop(ctx, active(clock(7, 0)), clock(9, 0), 3, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	result, err := tr.Start(ctx, active(clock(8, 0)))
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !errors.Is(result.Anomaly, insights.ErrOverlap) || result.Gap != nil {
		t.Fatalf("expected overlap anomaly, got %+v", result)
	}
	if !strings.Contains(logs.String(), "gap detection skipped") {
		t.Fatalf("expected anomaly warning, got %q", logs.String())
	}
	if got := len(tr.Sessions(ctx)); got != 1 {
		t.Fatalf("expected no extra record, got %d", got)
	}
}

func TestStartReturnsGapWhenSaveFails(t *testing.T) {
	tr, fs, _ := newTestTracker(t, clock(10, 0))
	ctx := context.Background()
	if _, err := tr.Stop(ctx, active(clock(7, 0)), clock(8, 0), 3, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	fs.failWrites = true
	result, err := tr.Start(ctx, active(clock(10, 0)))
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if result.Gap == nil || result.GapSaved {
		t.Fatalf("expected unsaved gap to be returned for retry, got %+v", result)
	}
	fs.failWrites = false
	if err := tr.Append(ctx, *result.Gap); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := len(tr.Sessions(ctx)); got != 2 {
		t.Fatalf("expected retried gap to be stored, got %d sessions", got)
	}
}

func TestStartWithCountsUnsavedSessions(t *testing.T) {
	tr, fs, _ := newTestTracker(t, clock(10, 0))
	ctx := context.Background()
	if _, err := tr.Stop(ctx, active(clock(7, 0)), clock(8, 0), 3, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	fs.failWrites = true
	unsaved, err := tr.Stop(ctx, active(clock(8, 0)), clock(9, 55), 4, "")
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	fs.failWrites = false

	result, err := tr.StartWith(ctx, active(clock(10, 0)), []model.Session{unsaved})
	if err != nil || result.Gap != nil {
		t.Fatalf("expected unsaved session to close the gap, got %+v, %v", result, err)
	}
	if got := len(tr.Sessions(ctx)); got != 1 {
		t.Fatalf("expected unsaved session to stay out of the log, got %d sessions", got)
	}

	result, err = tr.Start(ctx, active(clock(10, 0)))
	if err != nil || result.Gap == nil || !result.Gap.Start.Equal(clock(8, 0)) {
		t.Fatalf("expected gap from last stored session, got %+v, %v", result, err)
	}
}

func TestLogMarksGapUnsavedWhenSaveFails(t *testing.T) {
	tr, fs, _ := newTestTracker(t, clock(12, 0))
	ctx := context.Background()
	if _, err := tr.Stop(ctx, active(clock(7, 0)), clock(8, 0), 3, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	fs.failWrites = true
	result, err := tr.Log(ctx, model.Session{Start: clock(10, 0), End: clock(11, 0), Category: model.CategoryStudy, Activity: "FR Study"})
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if result.Gap == nil || result.GapSaved {
		t.Fatalf("expected unsaved gap, got %+v", result)
	}
	if got := len(tr.Sessions(ctx)); got != 1 {
		t.Fatalf("expected nothing new stored, got %d sessions", got)
	}
}

func TestStopKeepsSessionWhenSaveFails(t *testing.T) {
	tr, fs, _ := newTestTracker(t, clock(10, 0))
	fs.failWrites = true
	sess, err := tr.Stop(context.Background(), active(clock(9, 0)), clock(10, 0), 5, "deep work")
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if sess.DurationMinutes != 60 || sess.Note != "deep work" || sess.ID == "" {
		t.Fatalf("expected built session to be returned, got %+v", sess)
	}
}

func TestStopRejectsInvalidFocus(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(10, 0))
	_, err := tr.Stop(context.Background(), active(clock(9, 0)), clock(10, 0), 9, "")
	if !errors.Is(err, ingest.ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}
}

func TestLoadFailureIsEmptyDataset(t *testing.T) {
	tr, fs, logs := newTestTracker(t, clock(10, 0))
	fs.failLoads = true
	if got := tr.Sessions(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty dataset")
	}
	in := tr.Insights(context.Background())
	if in.Streak != 0 || in.Projection.Status != insights.InsufficientData || len(in.Due) != 0 {
		t.Fatalf("unexpected insights on empty dataset: %+v", in)
	}
	if !strings.Contains(logs.String(), "treating log as empty") {
		t.Fatalf("expected warning, got %q", logs.String())
	}
}

func TestAppendTouchesTopics(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(10, 0))
	ctx := context.Background()
	added, err := tr.AddTopics(ctx, []model.Topic{
		{Subject: "FR", Chapter: "IndAS", Topic: "IndAS 115"},
		{Subject: "FR", Chapter: "IndAS", Topic: "IndAS 116", LastStudied: "2026-04-01"},
	})
	if err != nil || added != 2 {
		t.Fatalf("add topics: %d, %v", added, err)
	}
	if _, err := tr.Stop(ctx, active(clock(9, 0)), clock(10, 0), 4, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	topics := tr.Topics(ctx)
	if topics[0].LastStudied != "2026-04-10" {
		t.Fatalf("expected touched topic, got %+v", topics[0])
	}
	if topics[1].LastStudied != "2026-04-01" {
		t.Fatalf("expected untouched topic, got %+v", topics[1])
	}
}

func TestAdvanceTopic(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(10, 0))
	ctx := context.Background()
	if _, err := tr.AddTopics(ctx, []model.Topic{{Subject: "AFM", Chapter: "Derivatives", Topic: "Options", Status: model.StatusClassDone}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	updated, err := tr.AdvanceTopic(ctx, "options")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if len(updated) != 1 || updated[0].Status != model.StatusRev1 || updated[0].RevCount != 1 {
		t.Fatalf("unexpected advance result: %+v", updated)
	}
	if _, err := tr.AdvanceTopic(ctx, "missing"); err == nil {
		t.Fatalf("expected error for unknown topic")
	}
}

func TestImportRejectsWithoutTouchingData(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(10, 0))
	ctx := context.Background()
	if _, err := tr.Stop(ctx, active(clock(9, 0)), clock(10, 0), 4, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := tr.ImportSessions(ctx, strings.NewReader(`{"not": "a list"}`)); !errors.Is(err, ingest.ErrInvalidImport) {
		t.Fatalf("expected invalid import, got %v", err)
	}
	if got := len(tr.Sessions(ctx)); got != 1 {
		t.Fatalf("existing data changed after rejected import: %d", got)
	}

	n, err := tr.ImportSessions(ctx, strings.NewReader(`[
		{"start": "2026-04-01T08:00:00Z", "end": "2026-04-01T09:00:00Z", "category": "Study", "activity": "DT Study", "focus": 4},
		{"start": "2026-04-02T08:00:00Z", "end": "2026-04-02T08:30:00Z", "category": "Leisure", "activity": "Walk"}
	]`))
	if err != nil || n != 2 {
		t.Fatalf("import: %d, %v", n, err)
	}
	if got := len(tr.Sessions(ctx)); got != 2 {
		t.Fatalf("expected imported log to replace data, got %d", got)
	}
}

func TestInsightsAndRender(t *testing.T) {
	now := clock(20, 0)
	tr, _, _ := newTestTracker(t, now)
	ctx := context.Background()
	for _, daysAgo := range []int{9, 1, 0} {
		start := clock(8, 0).AddDate(0, 0, -daysAgo)
		if err := tr.Append(ctx, model.Session{Start: start, End: start.Add(time.Hour), Category: model.CategoryStudy, Activity: "FR Study", Focus: 4}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	topics := make([]model.Topic, 0, 10)
	for i := 0; i < 10; i++ {
		status := model.StatusPending
		if i < 5 {
			status = model.StatusClassDone
		}
		topics = append(topics, model.Topic{Subject: "FR", Chapter: "Ch", Topic: string(rune('a' + i)), Status: status})
	}
	topics[0].LastStudied = "2026-04-05"
	if _, err := tr.AddTopics(ctx, topics); err != nil {
		t.Fatalf("add topics: %v", err)
	}

	in := tr.Insights(ctx)
	if in.Streak != 2 || in.LongestStreak != 2 {
		t.Fatalf("unexpected streaks: %+v", in)
	}
	if in.Projection.Status != insights.Projected || in.Projection.DaysNeeded != 10 {
		t.Fatalf("unexpected projection: %+v", in.Projection)
	}
	if len(in.Due) != 1 || in.Due[0].Topic != "a" {
		t.Fatalf("unexpected due topics: %+v", in.Due)
	}
	if in.DaysToExam == nil || *in.DaysToExam != 21 {
		t.Fatalf("unexpected exam countdown: %v", in.DaysToExam)
	}

	var buf bytes.Buffer
	d := tr.Dashboard(ctx, model.StatsConfig{}, map[string]float64{"FR": 100})
	if err := RenderDashboard(&buf, d, 80); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, needle := range []string{"Sessions: 3", "Current streak: 2 days", "Projected finish: 2026-04-20", "Due for revision: 1", "FR / Ch / a", "By Activity"} {
		if !strings.Contains(out, needle) {
			t.Fatalf("report missing %q:\n%s", needle, out)
		}
	}
}

func TestExport(t *testing.T) {
	tr, _, _ := newTestTracker(t, clock(10, 0))
	ctx := context.Background()
	if _, err := tr.Stop(ctx, active(clock(9, 0)), clock(10, 0), 4, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	var buf bytes.Buffer
	if err := tr.Export(ctx, &buf, ingest.FormatCSV, false); err != nil {
		t.Fatalf("export: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Fatalf("expected header and one row, got %d lines", lines)
	}
}
