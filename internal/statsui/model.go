// Package statsui provides the Bubble Tea stats dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/studytrack/internal/model"
	"github.com/verte-zerg/studytrack/internal/stats"
	"github.com/verte-zerg/studytrack/internal/tracker"
)

const (
	tabOverview = iota
	tabDaily
	tabActivities
	tabRevisions
	tabTargets
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea stats dashboard.
type Model struct {
	tracker *tracker.Tracker
	cfg     model.StatsConfig
	targets map[string]float64

	dash   tracker.Dashboard
	errMsg string
	status string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	tables    map[int]*table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats dashboard model.
func NewModel(t *tracker.Tracker, cfg model.StatsConfig, targets map[string]float64) *Model {
	m := &Model{
		tracker: t,
		cfg:     cfg,
		targets: targets,
		tabs:    []string{"Overview", "Daily Trend", "Activities", "Revisions", "Targets"},
	}
	m.initInputs()
	m.initTables()
	m.initViewports()
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		m.focusActiveTable()
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "r":
			m.refreshReport()
			return m, nil
		case "enter":
			if m.activeTab == tabRevisions {
				m.advanceSelected()
			}
			return m, nil
		case "g", "home":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if t, ok := m.tables[m.activeTab]; ok {
				t.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if t, ok := m.tables[m.activeTab]; ok {
				var cmd tea.Cmd
				*t, cmd = t.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last days: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) initTables() {
	activities := buildTable(activityColumns(), nil, 0, 1)
	revisions := buildTable(revisionColumns(), nil, 0, 1)
	m.tables = map[int]*table.Model{
		tabActivities: &activities,
		tabRevisions:  &revisions,
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && (m.errMsg != "" || m.status != "") {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	if m.cfg.Since != nil {
		m.filterInputs[0].SetValue(m.cfg.Since.Format(model.DateLayout))
	} else {
		m.filterInputs[0].SetValue("")
	}
	if m.cfg.Days > 0 {
		m.filterInputs[1].SetValue(strconv.Itoa(m.cfg.Days))
	} else {
		m.filterInputs[1].SetValue("")
	}
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	for _, t := range m.tables {
		setTableSize(t, m.width, vpHeight)
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.focusActiveTable()
}

func (m *Model) focusActiveTable() {
	for tab, t := range m.tables {
		if tab == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(model.DateLayout)
	}
	days := "all"
	if m.cfg.Days > 0 {
		days = strconv.Itoa(m.cfg.Days)
	}
	summary := fmt.Sprintf("Filters: since=%s  days=%s  sessions=%d", since, days, len(m.dash.Report.Sessions))
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Filters: /  Reload: r  Quit: q"
	if m.activeTab == tabRevisions {
		help = "Nav: left/right  Select: up/down  Advance status: enter  Filters: /  Reload: r  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	switch {
	case m.errMsg != "":
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	case m.status != "":
		return m.renderHelp() + "\n" + headerStyle.Render(m.status)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filters (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	switch m.activeTab {
	case tabActivities:
		if len(m.dash.Report.Activities) == 0 {
			return fitLines("No sessions found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.tables[tabActivities].View()), m.width, height)
	case tabRevisions:
		if len(m.dash.Insights.Due) == 0 {
			return fitLines("No topics due for revision.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.tables[tabRevisions].View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	m.dash = m.tracker.Dashboard(context.Background(), m.cfg, m.targets)
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	applyTable(m.tables[tabActivities], activityColumns(), activityRows(m.dash.Report.Activities), width, bodyHeight)
	applyTable(m.tables[tabRevisions], revisionColumns(), revisionRows(m.dash.Insights.Due), width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.dash, width))
	m.viewports[tabDaily].SetContent(renderDaily(m.dash.Report.Daily, width))
	m.viewports[tabTargets].SetContent(renderTargets(m.dash.Report.Targets, width))
}

func (m *Model) advanceSelected() {
	t := m.tables[tabRevisions]
	row := t.SelectedRow()
	if len(row) == 0 {
		return
	}
	updated, err := m.tracker.AdvanceTopic(context.Background(), row[0])
	if err != nil {
		m.errMsg = err.Error()
		m.status = ""
		return
	}
	m.errMsg = ""
	m.status = fmt.Sprintf("%s -> %s", row[0], updated[0].Status)
	m.refreshReport()
	m.updateLayout()
}

func renderOverview(d tracker.Dashboard, width int) string {
	sum := d.Report.Summary
	in := d.Insights
	exam := "n/a"
	if in.DaysToExam != nil {
		exam = strconv.Itoa(*in.DaysToExam)
	}
	finish := in.Projection.Status.String()
	if !in.Projection.Finish.IsZero() {
		finish = in.Projection.Finish.Format(model.DateLayout)
	}
	cards := []string{
		metricCard("Hours", fmt.Sprintf("%.1f", sum.Minutes/60)),
		metricCard("Quality Hours", fmt.Sprintf("%.1f", sum.QualityMinutes/60)),
		metricCard("Avg Focus", fmt.Sprintf("%.1f", sum.AvgFocus)),
		metricCard("Streak", fmt.Sprintf("%dd (best %dd)", in.Streak, in.LongestStreak)),
		metricCard("Days to Exam", exam),
		metricCard("Syllabus", fmt.Sprintf("%d/%d", in.DoneTopics, in.TotalTopics)),
		metricCard("Projected Finish", finish),
	}
	var grid string
	if width < 80 {
		grid = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2], cards[3])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[4], cards[5], cards[6])
		grid = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	var buf bytes.Buffer
	if err := stats.RenderBreakdown(&buf, "By Category", d.Report.Categories); err != nil {
		return fmt.Sprintf("Failed to render categories: %v", err)
	}
	return strings.TrimRight(grid+"\n\n"+buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderDaily(days []model.DayTotal, width int) string {
	if len(days) == 0 {
		return "No sessions found."
	}
	var buf bytes.Buffer
	if err := stats.RenderDaily(&buf, days, 7, width); err != nil {
		return fmt.Sprintf("Failed to render daily trend: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderTargets(progress []model.TargetProgress, width int) string {
	if len(progress) == 0 {
		return "No subject targets configured."
	}
	var buf bytes.Buffer
	if err := stats.RenderTargets(&buf, progress, width); err != nil {
		return fmt.Sprintf("Failed to render targets: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func activityColumns() []table.Column {
	return []table.Column{
		{Title: "Activity", Width: 24},
		{Title: "Hours", Width: 7},
		{Title: "Sessions", Width: 8},
	}
}

func activityRows(totals []model.LabelTotal) []table.Row {
	rows := make([]table.Row, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, table.Row{
			t.Label,
			fmt.Sprintf("%.2f", t.Minutes/60),
			strconv.Itoa(t.Sessions),
		})
	}
	return rows
}

func revisionColumns() []table.Column {
	return []table.Column{
		{Title: "Topic", Width: 40},
		{Title: "Status", Width: 10},
		{Title: "Revs", Width: 4},
		{Title: "Last Studied", Width: 12},
		{Title: "Confidence", Width: 10},
	}
}

func revisionRows(due []model.Topic) []table.Row {
	rows := make([]table.Row, 0, len(due))
	for _, t := range due {
		rows = append(rows, table.Row{
			t.Key(),
			string(t.Status),
			strconv.Itoa(t.RevCount),
			t.LastStudied,
			string(t.Confidence),
		})
	}
	return rows
}

func buildTable(columns []table.Column, rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(tableStyles())
	return t
}

func applyTable(t *table.Model, columns []table.Column, rows []table.Row, width, height int) {
	t.SetColumns(columns)
	t.SetRows(rows)
	// An empty table leaves the cursor at -1; bring it back onto the rows.
	if len(rows) > 0 && t.Cursor() < 0 {
		t.SetCursor(0)
	}
	setTableSize(t, width, height)
}

func setTableSize(t *table.Model, width, height int) {
	t.SetWidth(width)
	t.SetHeight(maxInt(1, height-1))
	viewHeight := lipgloss.Height(t.View())
	if viewHeight != height {
		t.SetHeight(maxInt(1, t.Height()+height-viewHeight))
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	sinceInput := strings.TrimSpace(m.filterInputs[0].Value())
	var since *time.Time
	if sinceInput != "" {
		parsed, err := time.ParseInLocation(model.DateLayout, sinceInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	daysInput := strings.TrimSpace(m.filterInputs[1].Value())
	days := 0
	if daysInput != "" {
		parsed, err := strconv.Atoi(daysInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid days value (use 0 or positive integer)")
		}
		days = parsed
	}

	m.cfg = model.StatsConfig{Since: since, Days: days}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
