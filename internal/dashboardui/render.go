package dashboardui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/report"
)

func dailyColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 8},
		{Title: "Students Present", Width: 16},
		{Title: "Students Absent", Width: 15},
		{Title: "Teachers Present", Width: 16},
		{Title: "Teachers Absent", Width: 15},
	}
}

func buildDailyTable(series model.AttendanceSeries, width, height int) table.Model {
	rows := make([]table.Row, 0, series.Len())
	for i, label := range series.Labels {
		rows = append(rows, table.Row{
			label,
			strconv.Itoa(series.StudentPresent[i]),
			strconv.Itoa(series.StudentAbsent[i]),
			strconv.Itoa(series.TeacherPresent[i]),
			strconv.Itoa(series.TeacherAbsent[i]),
		})
	}
	t := table.New(
		table.WithColumns(dailyColumns()),
		table.WithRows(rows),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(dailyTableStyles())
	return t
}

func dailyTableStyles() table.Styles {
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

// seriesTotals sums the aggregate counts of each population.
func seriesTotals(series model.AttendanceSeries) report.Summary {
	var s report.Summary
	for i := range series.Labels {
		s.Students.Present += series.StudentPresent[i]
		s.Students.Absent += series.StudentAbsent[i]
		s.Teachers.Present += series.TeacherPresent[i]
		s.Teachers.Absent += series.TeacherAbsent[i]
	}
	return s
}

func renderSummary(series model.AttendanceSeries, width int) string {
	if series.Len() == 0 {
		return "No attendance loaded."
	}
	totals := seriesTotals(series)
	cards := []string{
		metricCard("Days", strconv.Itoa(series.Len())),
		metricCard("Students Present", strconv.Itoa(totals.Students.Present)),
		metricCard("Students Absent", strconv.Itoa(totals.Students.Absent)),
		metricCard("Student Rate", totals.Students.Rate()),
		metricCard("Teachers Present", strconv.Itoa(totals.Teachers.Present)),
		metricCard("Teachers Absent", strconv.Itoa(totals.Teachers.Absent)),
		metricCard("Teacher Rate", totals.Teachers.Rate()),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2], cards[3])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[4], cards[5], cards[6])
	note := headerStyle.Render(fmt.Sprintf("Late and half-day entries are not counted. Press p to export %s.",
		report.Filename(series.StartDate, series.EndDate)))
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2, "", note)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
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
