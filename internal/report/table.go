package report

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/verte-zerg/rollcall/internal/model"
)

// RGB is a fill colour.
type RGB struct {
	R, G, B int
}

// TableStyle carries rendering hints for one table.
type TableStyle struct {
	HeaderFill RGB
	AltRowFill RGB
	Striped    bool
}

var (
	studentStyle = TableStyle{HeaderFill: RGB{56, 142, 60}, AltRowFill: RGB{240, 248, 240}, Striped: true}
	teacherStyle = TableStyle{HeaderFill: RGB{41, 98, 255}, AltRowFill: RGB{240, 240, 250}, Striped: true}
	summaryStyle = TableStyle{HeaderFill: RGB{66, 66, 66}}
)

// Table is one titled grid of cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Style   TableStyle
	// RightAlign marks numeric columns.
	RightAlign map[int]bool
}

var detailHeaders = []string{"Date", "Name", "Status", "Remarks"}

// FormatStatus capitalizes a status for display ("half_day" -> "Half_day").
func FormatStatus(status string) string {
	if status == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(status)
	return cases.Upper(language.English).String(status[:size]) + status[size:]
}

// DetailTable builds the per-record table of one population.
func DetailTable(title string, records []model.DetailRecord, style TableStyle) Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{r.Date, r.FullName(), FormatStatus(r.Status), r.Remarks})
	}
	return Table{Title: title, Headers: detailHeaders, Rows: rows, Style: style}
}

// SummaryTable builds the per-population totals table.
func SummaryTable(s Summary) Table {
	row := func(name string, c Counts) []string {
		return []string{name, strconv.Itoa(c.Present), strconv.Itoa(c.Absent), c.Rate()}
	}
	return Table{
		Title:      "Summary Statistics",
		Headers:    []string{"Category", "Present", "Absent", "Attendance Rate"},
		Rows:       [][]string{row("Students", s.Students), row("Teachers", s.Teachers)},
		Style:      summaryStyle,
		RightAlign: map[int]bool{1: true, 2: true, 3: true},
	}
}

// Tables returns the detail tables for populations with records followed by
// the summary table.
func Tables(detail model.AttendanceDetail) []Table {
	tables := make([]Table, 0, 3)
	if len(detail.Students) > 0 {
		tables = append(tables, DetailTable("Student Attendance", detail.Students, studentStyle))
	}
	if len(detail.Teachers) > 0 {
		tables = append(tables, DetailTable("Teacher Attendance", detail.Teachers, teacherStyle))
	}
	return append(tables, SummaryTable(Summarize(detail)))
}

// WriteText renders tables as aligned plain text.
func WriteText(w io.Writer, tables []Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		lines := append([]string{t.Title}, formatTable(t.Headers, t.Rows, t.RightAlign)...)
		if len(t.Rows) == 0 {
			lines = append(lines, "(no records)")
		}
		if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	padding := width - runewidth.StringWidth(value)
	if padding <= 0 {
		return value
	}
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}
