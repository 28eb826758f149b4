// Package dashboardui provides the Bubble Tea attendance dashboard.
package dashboardui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/chart"
	"github.com/verte-zerg/rollcall/internal/dashboard"
	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/report"
)

const (
	tabChart = iota
	tabDaily
	tabSummary
)

// rows used by the chart besides the plot: title, x axis (2), legend,
// blank line and tooltip.
const chartChrome = 6

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#2E8B57"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	viewActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Underline(true)
)

// Options configures the dashboard.
type Options struct {
	StartDate string
	EndDate   string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Model implements the Bubble Tea dashboard.
type Model struct {
	session  *dashboard.Session
	exporter *report.Exporter
	log      *zap.Logger
	timeout  time.Duration

	// Requested range: filled into the filter form and fetched by refresh.
	// Exports use the range of the loaded series instead.
	startDate string
	endDate   string

	renderer *chart.TextRenderer
	chartBuf *bytes.Buffer
	hover    *chart.HoverInfo

	tabs      []string
	activeTab int
	viewports []viewport.Model
	daily     table.Model
	spinner   spinner.Model

	pending   int
	exporting bool
	errMsg    string
	notice    string

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type refreshMsg struct {
	series model.AttendanceSeries
	err    error
}

type exportMsg struct {
	artifact *report.Artifact
	err      error
}

// NewModel constructs the dashboard. The session must not have a renderer of
// its own; the model draws on its own goroutine.
func NewModel(session *dashboard.Session, exporter *report.Exporter, opts Options) *Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	buf := &bytes.Buffer{}
	m := &Model{
		session:   session,
		exporter:  exporter,
		log:       log,
		timeout:   timeout,
		startDate: opts.StartDate,
		endDate:   opts.EndDate,
		renderer:  chart.NewTextRenderer(buf, "Attendance Overview", 60, 10, true),
		chartBuf:  buf,
		tabs:      []string{"Chart", "Daily", "Summary"},
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.renderer.OnHover(func(info chart.HoverInfo) {
		m.hover = &info
	})
	m.initInputs()
	m.initViewports()
	m.daily = buildDailyTable(model.AttendanceSeries{}, 0, 1)
	m.redraw()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.startRefresh()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.redraw()
		return m, nil
	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case refreshMsg:
		return m.handleRefresh(msg)
	case exportMsg:
		return m.handleExport(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
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

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "shift+tab":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "v":
		return m, m.setView(chart.NextViewMode(m.session.View(), 1))
	case "V":
		return m, m.setView(chart.NextViewMode(m.session.View(), -1))
	case "1", "2", "3", "4", "5":
		idx, _ := strconv.Atoi(msg.String())
		modes := chart.ViewModes()
		if idx >= 1 && idx <= len(modes) {
			return m, m.setView(modes[idx-1])
		}
		return m, nil
	case "/":
		return m.startFilter()
	case "r":
		return m, m.startRefresh()
	case "p":
		return m, m.startExport()
	case "left", "h":
		if m.activeTab == tabChart {
			m.moveHover(-1)
		}
		return m, nil
	case "right", "l":
		if m.activeTab == tabChart {
			m.moveHover(1)
		}
		return m, nil
	case "esc":
		m.clearHover()
		return m, nil
	case "g", "home":
		if m.activeTab == tabDaily {
			m.daily.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if m.activeTab == tabDaily {
			m.daily.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
		return m, nil
	default:
		if m.activeTab == tabDaily {
			var cmd tea.Cmd
			m.daily, cmd = m.daily.Update(msg)
			return m, cmd
		}
		vp := m.viewports[m.activeTab]
		var cmd tea.Cmd
		vp, cmd = vp.Update(msg)
		m.viewports[m.activeTab] = vp
		return m, cmd
	}
}

func (m *Model) busy() bool {
	return m.pending > 0 || m.exporting
}

func (m *Model) startRefresh() tea.Cmd {
	wasBusy := m.busy()
	m.pending++
	m.errMsg = ""
	session, timeout := m.session, m.timeout
	start, end := m.startDate, m.endDate
	fetch := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		series, err := session.RequestRefresh(ctx, start, end)
		return refreshMsg{series: series, err: err}
	}
	if wasBusy {
		return fetch
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

func (m *Model) handleRefresh(msg refreshMsg) (tea.Model, tea.Cmd) {
	if m.pending > 0 {
		m.pending--
	}
	switch {
	case errors.Is(msg.err, dashboard.ErrSuperseded):
		return m, nil
	case msg.err != nil:
		m.errMsg = describeError("Refresh failed", msg.err)
		m.log.Warn("refresh failed", zap.Error(msg.err))
		return m, nil
	}
	m.clearHover()
	m.redraw()
	return m, nil
}

func (m *Model) startExport() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	wasBusy := m.busy()
	m.exporting = true
	m.notice = ""
	exporter, timeout := m.exporter, m.timeout
	start, end := m.loadedRange()
	run := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		art, err := exporter.Export(ctx, start, end)
		return exportMsg{artifact: art, err: err}
	}
	if wasBusy {
		return run
	}
	return tea.Batch(run, m.spinner.Tick)
}

// loadedRange returns the dates of the stored series, falling back to the
// requested range before the first successful load.
func (m *Model) loadedRange() (string, string) {
	if rng := m.session.Range(); !rng.Start.IsZero() {
		return rng.StartString(), rng.EndString()
	}
	return m.startDate, m.endDate
}

func (m *Model) handleExport(msg exportMsg) (tea.Model, tea.Cmd) {
	if msg.artifact == nil && msg.err == nil {
		m.notice = "Export already in progress."
		return m, nil
	}
	m.exporting = false
	if msg.err != nil {
		m.errMsg = describeError("Export failed", msg.err)
		m.log.Warn("export failed", zap.Error(msg.err))
		return m, nil
	}
	m.errMsg = ""
	m.notice = fmt.Sprintf("Saved %s (%s)", msg.artifact.Path, formatSize(msg.artifact.Size))
	return m, nil
}

func (m *Model) setView(mode model.ViewMode) tea.Cmd {
	if err := m.session.SetView(mode); err != nil {
		m.errMsg = err.Error()
	}
	m.clearHover()
	m.redraw()
	return nil
}

func (m *Model) moveHover(delta int) {
	series := m.session.Series()
	if series.Len() == 0 {
		return
	}
	idx := m.renderer.Cursor()
	if idx < 0 {
		if delta > 0 {
			idx = 0
		} else {
			idx = series.Len() - 1
		}
	} else {
		idx = (idx + delta + series.Len()) % series.Len()
	}
	m.renderer.Hover(idx)
	m.renderChart()
}

func (m *Model) clearHover() {
	m.hover = nil
	m.renderer.Hover(-1)
}

// redraw pushes the session state into every tab.
func (m *Model) redraw() {
	series := m.session.Series()
	m.renderer.SetSeries(series)
	m.renderer.SetVisibility(m.session.Visibility())
	m.renderChart()

	width, bodyHeight := m.contentSize()
	m.daily = buildDailyTable(series, width, bodyHeight)
	if m.activeTab == tabDaily {
		m.daily.Focus()
	}
	if len(m.viewports) > tabSummary {
		m.viewports[tabSummary].SetContent(renderSummary(series, width))
	}
}

func (m *Model) renderChart() {
	if len(m.viewports) == 0 {
		return
	}
	if err := m.renderer.Redraw(); err != nil {
		m.viewports[tabChart].SetContent(fmt.Sprintf("Failed to render chart: %v", err))
		return
	}
	content := strings.TrimRight(m.chartBuf.String(), "\n")
	if m.hover != nil {
		content += "\n\n" + renderTooltip(*m.hover)
	}
	m.viewports[tabChart].SetContent(content)
}

func renderTooltip(info chart.HoverInfo) string {
	parts := []string{cardValueStyle.Render(info.Label)}
	for _, line := range info.Lines {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(line.Color)).Render(line.String()))
	}
	if len(info.Lines) == 0 {
		parts = append(parts, headerStyle.Render("no visible series"))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) contentSize() (int, int) {
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	return width, bodyHeight
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Start (YYYY-MM-DD): "),
		newFilterInput("End (YYYY-MM-DD): "),
	}
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = len(model.DateLayout)
	input.Placeholder = model.DateLayout
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	if !m.filterMode && m.notice != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.renderer.SetWidth(m.width)
	m.renderer.SetHeight(bodyHeight - chartChrome)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabDaily {
		m.daily.Focus()
	} else {
		m.daily.Blur()
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
	return tabs + "\n" + padLine(m.renderStatus(), m.width)
}

func (m *Model) renderStatus() string {
	current := m.session.View()
	views := make([]string, 0, len(chart.ViewModes()))
	for i, mode := range chart.ViewModes() {
		label := fmt.Sprintf("%d:%s", i+1, mode)
		if mode == current {
			views = append(views, viewActiveStyle.Render(label))
		} else {
			views = append(views, headerStyle.Render(label))
		}
	}
	start, end := m.loadedRange()
	status := headerStyle.Render(fmt.Sprintf("Range: %s to %s  View: ", start, end)) +
		strings.Join(views, " ")
	switch {
	case m.pending > 0:
		status += "  " + m.spinner.View() + headerStyle.Render(fmt.Sprintf(" Loading %s to %s...", m.startDate, m.endDate))
	case m.exporting:
		status += "  " + m.spinner.View() + headerStyle.Render(" Exporting...")
	}
	return status
}

func (m *Model) renderHelp() string {
	help := "Tabs: tab  View: v/1-5  Range: /  Refresh: r  Export: p  Quit: q"
	if m.activeTab == tabChart {
		help = "Tabs: tab  Hover: left/right  View: v/1-5  Range: /  Refresh: r  Export: p  Quit: q"
	}
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	lines := []string{m.renderHelp()}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(truncateLine(m.errMsg, m.width)))
	}
	if m.notice != "" {
		lines = append(lines, noticeStyle.Render(truncateLine(m.notice, m.width)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabDaily {
		if len(m.daily.Rows()) == 0 {
			return fitLines("No attendance loaded.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.daily.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Date range (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.filterInputs[0].SetValue(m.startDate)
	m.filterInputs[1].SetValue(m.endDate)
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		start := strings.TrimSpace(m.filterInputs[0].Value())
		end := strings.TrimSpace(m.filterInputs[1].Value())
		if _, err := api.ParseRange(start, end); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.startDate, m.endDate = start, end
		m.filterMode = false
		m.filterError = ""
		m.updateLayout()
		return m, m.startRefresh()
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
	m.filterIndex = (idx + count) % count
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

func describeError(prefix string, err error) string {
	var terr *api.TransportError
	switch {
	case errors.Is(err, api.ErrInvalidRange):
		return err.Error()
	case errors.Is(err, api.ErrMalformedResponse):
		return prefix + ": the server returned incomplete attendance data"
	case errors.As(err, &terr):
		return fmt.Sprintf("%s: %s", prefix, terr.Error())
	default:
		return fmt.Sprintf("%s: %v", prefix, err)
	}
}

func formatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
