// Package tui provides the Bubble Tea study timer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studytrack/internal/insights"
	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
	"github.com/verte-zerg/studytrack/internal/tracker"
)

type stage int

const (
	stagePick stage = iota
	stageTopic
	stageRunning
	stageFocus
	stageNote
)

// Choice is one selectable category/activity pair.
type Choice struct {
	Category model.Category
	Activity string
}

type tickMsg time.Time

// Model implements the Bubble Tea timer UI.
type Model struct {
	tracker *tracker.Tracker
	choices []Choice
	cursor  int

	width  int
	height int

	stage      stage
	active     model.ActiveSession
	now        time.Time
	stoppedAt  time.Time
	focus      int
	topicInput textinput.Model
	noteInput  textinput.Model

	// Records whose write failed, in log order; drained by retry.
	pending []model.Session

	status  string
	errMsg  string
	today   float64
	streak  int
	dueTops int
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	clockStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAF5F"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a timer model from the configured activities.
func NewModel(t *tracker.Tracker, activities map[string][]string) *Model {
	topic := textinput.New()
	topic.Prompt = "Subject / Topic: "
	topic.Placeholder = "optional"
	topic.CharLimit = 120
	note := textinput.New()
	note.Prompt = "Note: "
	note.Placeholder = "optional"
	note.CharLimit = 240
	m := &Model{
		tracker:    t,
		choices:    ChoicesFrom(activities),
		topicInput: topic,
		noteInput:  note,
		now:        t.Now(),
	}
	m.loadFooterStats()
	return m
}

// ChoicesFrom flattens the configured activities. Known categories come
// first in display order; a category without activities is offered with its
// own name as the activity.
func ChoicesFrom(activities map[string][]string) []Choice {
	if len(activities) == 0 {
		out := make([]Choice, 0, len(model.KnownCategories))
		for _, c := range model.KnownCategories {
			out = append(out, Choice{Category: c, Activity: string(c)})
		}
		return out
	}
	type group struct {
		category model.Category
		rank     int
		names    []string
	}
	groups := make([]group, 0, len(activities))
	for label, names := range activities {
		category, _ := model.ParseCategory(label)
		groups = append(groups, group{category: category, rank: categoryRank(category), names: names})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].rank != groups[j].rank {
			return groups[i].rank < groups[j].rank
		}
		return groups[i].category < groups[j].category
	})
	var out []Choice
	for _, g := range groups {
		if len(g.names) == 0 {
			out = append(out, Choice{Category: g.category, Activity: string(g.category)})
			continue
		}
		for _, name := range g.names {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			out = append(out, Choice{Category: g.category, Activity: name})
		}
	}
	return out
}

func categoryRank(c model.Category) int {
	for i, known := range model.KnownCategories {
		if known == c {
			return i
		}
	}
	return len(model.KnownCategories)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.now = m.tracker.Now()
		return m, tick()
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.stage {
		case stagePick:
			return m.updatePick(msg)
		case stageTopic:
			return m.updateTopic(msg)
		case stageRunning:
			return m.updateRunning(msg)
		case stageFocus:
			return m.updateFocus(msg)
		case stageNote:
			return m.updateNote(msg)
		}
	}
	return m, nil
}

func (m *Model) updatePick(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "r":
		m.retry()
	case "enter":
		if len(m.choices) == 0 {
			return m, nil
		}
		m.stage = stageTopic
		m.topicInput.SetValue("")
		return m, m.topicInput.Focus()
	}
	return m, nil
}

func (m *Model) updateTopic(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.topicInput.Blur()
		m.stage = stagePick
		return m, nil
	case tea.KeyEnter:
		m.topicInput.Blur()
		m.startSession(m.topicInput.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.topicInput, cmd = m.topicInput.Update(msg)
	return m, cmd
}

func (m *Model) updateRunning(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "s", "enter":
		m.stoppedAt = m.tracker.Now()
		m.focus = 0
		m.stage = stageFocus
	case "x":
		m.stage = stagePick
		m.status = "Session discarded."
	case "r":
		m.retry()
	}
	return m, nil
}

func (m *Model) updateFocus(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stage = stageRunning
		return m, nil
	case "0", "1", "2", "3", "4", "5":
		m.focus = int(msg.String()[0] - '0')
		m.stage = stageNote
		m.noteInput.SetValue("")
		return m, m.noteInput.Focus()
	}
	return m, nil
}

func (m *Model) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.noteInput.Blur()
		m.stage = stageFocus
		return m, nil
	case tea.KeyEnter:
		m.noteInput.Blur()
		m.stopSession(m.noteInput.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.noteInput, cmd = m.noteInput.Update(msg)
	return m, cmd
}

func (m *Model) startSession(topicLine string) {
	choice := m.choices[m.cursor]
	subject, topic := splitTopic(topicLine)
	m.active = model.ActiveSession{
		Start:    m.tracker.Now(),
		Category: choice.Category,
		Activity: choice.Activity,
		Subject:  subject,
		Topic:    topic,
	}
	m.now = m.active.Start
	m.stage = stageRunning
	m.errMsg = ""
	m.status = ""

	result, err := m.tracker.StartWith(context.Background(), m.active, m.pending)
	switch {
	case err != nil && result.Gap != nil:
		m.pending = append(m.pending, *result.Gap)
		m.errMsg = fmt.Sprintf("Could not save %s gap (%s pending, press r to retry): %v",
			formatMinutes(result.Gap.DurationMinutes), pendingCount(len(m.pending)), err)
	case err != nil:
		m.errMsg = err.Error()
	case result.Anomaly != nil:
		m.errMsg = "Start overlaps the previous session; no gap recorded."
	case result.Gap != nil:
		m.status = fmt.Sprintf("Logged %s unaccounted gap.", formatMinutes(result.Gap.DurationMinutes))
		m.today += result.Gap.DurationMinutes
	}
}

func (m *Model) stopSession(note string) {
	sess, err := m.tracker.Stop(context.Background(), m.active, m.stoppedAt, m.focus, note)
	m.stage = stagePick
	if err != nil {
		if errors.Is(err, tracker.ErrStore) {
			m.pending = append(m.pending, sess)
			m.errMsg = fmt.Sprintf("Could not save session (%s pending, press r to retry): %v", pendingCount(len(m.pending)), err)
			return
		}
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.status = fmt.Sprintf("Saved %s of %s.", formatMinutes(sess.DurationMinutes), sess.Activity)
	m.loadFooterStats()
}

// retry re-attempts failed writes in order and stops at the first failure.
func (m *Model) retry() {
	if len(m.pending) == 0 {
		return
	}
	ctx := context.Background()
	saved := 0
	for _, sess := range m.pending {
		if err := m.tracker.Append(ctx, sess); err != nil {
			break
		}
		saved++
	}
	m.pending = m.pending[saved:]
	if len(m.pending) > 0 {
		m.errMsg = fmt.Sprintf("Retry failed, %s still pending.", pendingCount(len(m.pending)))
		if saved > 0 {
			m.loadFooterStats()
		}
		return
	}
	m.pending = nil
	m.errMsg = ""
	m.status = fmt.Sprintf("Saved %s.", pendingCount(saved))
	m.loadFooterStats()
}

func pendingCount(n int) string {
	if n == 1 {
		return "1 record"
	}
	return fmt.Sprintf("%d records", n)
}

// qualityPreview reports focus-weighted minutes for the session being
// stopped, as the dashboard will count it.
func qualityPreview(active model.ActiveSession, end time.Time, focus int) string {
	minutes, quality := stats.SessionMetrics(model.Session{
		Start:           active.Start,
		End:             end,
		Category:        active.Category,
		Activity:        active.Activity,
		DurationMinutes: insights.Minutes(end.Sub(active.Start)),
		Focus:           focus,
	})
	return fmt.Sprintf("Quality time %s of %s", formatMinutes(quality), formatMinutes(minutes))
}

func splitTopic(line string) (subject, topic string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	idx := strings.Index(line, "/")
	if idx < 0 {
		return "", line
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	switch m.stage {
	case stagePick, stageTopic:
		b.WriteString(titleStyle.Render("What are you doing?"))
		b.WriteString("\n\n")
		for i, c := range m.choices {
			line := fmt.Sprintf("  %s · %s", c.Category, c.Activity)
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> " + line[2:]))
			} else {
				b.WriteString(itemStyle.Render(line))
			}
			b.WriteString("\n")
		}
		if m.stage == stageTopic {
			b.WriteString("\n")
			b.WriteString(m.topicInput.View())
			b.WriteString("\n")
		}
	case stageRunning:
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s · %s", m.active.Category, m.active.Activity)))
		b.WriteString("\n")
		if m.active.Topic != "" {
			b.WriteString(itemStyle.Render(strings.TrimPrefix(m.active.Subject+" / "+m.active.Topic, " / ")))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(clockStyle.Render(formatElapsed(m.now.Sub(m.active.Start))))
		b.WriteString("\n")
	case stageFocus:
		b.WriteString(titleStyle.Render(fmt.Sprintf("Focus for %s (0-5, 0 = unrated)", formatElapsed(m.stoppedAt.Sub(m.active.Start)))))
		b.WriteString("\n")
		b.WriteString(itemStyle.Render("At focus 5: " + qualityPreview(m.active, m.stoppedAt, 5)))
		b.WriteString("\n")
	case stageNote:
		b.WriteString(titleStyle.Render(fmt.Sprintf("Focus %d", m.focus)))
		b.WriteString("\n")
		b.WriteString(itemStyle.Render(qualityPreview(m.active, m.stoppedAt, m.focus)))
		b.WriteString("\n\n")
		b.WriteString(m.noteInput.View())
		b.WriteString("\n")
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	if m.errMsg != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(strings.Join(wrapWords(m.errMsg, width), "\n")))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(strings.Join(wrapWords(m.status, width), "\n")))
		b.WriteString("\n")
	}
	content := b.String()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return body + "\n" + footerLine
}

func (m *Model) loadFooterStats() {
	ctx := context.Background()
	now := m.tracker.Now()
	sessions := m.tracker.Sessions(ctx)
	m.today = 0
	for _, s := range insights.SessionsOn(sessions, now) {
		m.today += s.DurationMinutes
	}
	m.streak = insights.CurrentStreak(insights.SessionDates(sessions), now)
	m.dueTops = len(m.tracker.Scheduler().ListDue(m.tracker.Topics(ctx), now))
}

func (m *Model) renderFooter() string {
	segments := []string{
		fmt.Sprintf("Today %s", formatMinutes(m.today)),
		fmt.Sprintf("Streak %dd", m.streak),
		fmt.Sprintf("Due %d", m.dueTops),
	}
	keys := "enter start · q quit"
	switch m.stage {
	case stageRunning:
		keys = "s stop · x discard"
	case stageFocus:
		keys = "0-5 rate · esc back"
	case stageNote, stageTopic:
		keys = "enter confirm · esc back"
	}
	if len(m.pending) > 0 {
		keys += fmt.Sprintf(" · r retry (%d)", len(m.pending))
	}
	segments = append(segments, keys)
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	mnt := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, mnt, s)
}

func formatMinutes(minutes float64) string {
	total := int(minutes + 0.5)
	if total < 60 {
		return fmt.Sprintf("%dm", total)
	}
	return fmt.Sprintf("%dh%02dm", total/60, total%60)
}
