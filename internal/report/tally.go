// Package report builds attendance reports from detail records and writes
// them as PDF documents.
package report

import (
	"fmt"

	"github.com/verte-zerg/rollcall/internal/model"
)

// Counts holds present and absent totals for one population.
type Counts struct {
	Present int
	Absent  int
}

// Rate formats the attendance rate of c.
func (c Counts) Rate() string {
	return AttendanceRate(c.Present, c.Absent)
}

// Summary holds the tallies of both populations.
type Summary struct {
	Students Counts
	Teachers Counts
}

// Tally counts present and absent records. Other statuses are counted in
// neither total.
func Tally(records []model.DetailRecord) Counts {
	var c Counts
	for _, r := range records {
		switch r.Status {
		case model.StatusPresent:
			c.Present++
		case model.StatusAbsent:
			c.Absent++
		}
	}
	return c
}

// Summarize tallies both populations of detail.
func Summarize(detail model.AttendanceDetail) Summary {
	return Summary{
		Students: Tally(detail.Students),
		Teachers: Tally(detail.Teachers),
	}
}

// AttendanceRate returns present/(present+absent) as a percentage with one
// decimal, or "N/A" when both are zero.
func AttendanceRate(present, absent int) string {
	total := present + absent
	if total <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", float64(present)/float64(total)*100)
}

// Filename returns the report file name for a date range.
func Filename(startDate, endDate string) string {
	return fmt.Sprintf("Attendance_Report_%s_to_%s.pdf", startDate, endDate)
}
