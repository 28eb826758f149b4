// Package model defines shared data structures.
package model

import (
	"fmt"
	"time"
)

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"

// AttendanceSeries holds per-day attendance counts. All count slices are
// index-aligned with Labels.
type AttendanceSeries struct {
	Labels         []string
	StudentPresent []int
	StudentAbsent  []int
	TeacherPresent []int
	TeacherAbsent  []int
	StartDate      string
	EndDate        string
	DetailAPIURL   string
}

// Len returns the number of dates in the series.
func (s AttendanceSeries) Len() int {
	return len(s.Labels)
}

// Aligned reports whether every count slice matches the label count.
func (s AttendanceSeries) Aligned() bool {
	n := len(s.Labels)
	return len(s.StudentPresent) == n &&
		len(s.StudentAbsent) == n &&
		len(s.TeacherPresent) == n &&
		len(s.TeacherAbsent) == n
}

// Clone returns a deep copy so callers cannot mutate a stored series.
func (s AttendanceSeries) Clone() AttendanceSeries {
	out := s
	out.Labels = append([]string(nil), s.Labels...)
	out.StudentPresent = append([]int(nil), s.StudentPresent...)
	out.StudentAbsent = append([]int(nil), s.StudentAbsent...)
	out.TeacherPresent = append([]int(nil), s.TeacherPresent...)
	out.TeacherAbsent = append([]int(nil), s.TeacherAbsent...)
	return out
}

// ViewMode selects which series a chart shows.
type ViewMode string

// View modes in selector order.
const (
	ViewAll      ViewMode = "all"
	ViewStudents ViewMode = "students"
	ViewTeachers ViewMode = "teachers"
	ViewPresent  ViewMode = "present"
	ViewAbsent   ViewMode = "absent"
)

// Visibility flags one boolean per series; true means shown.
type Visibility struct {
	StudentPresent bool
	StudentAbsent  bool
	TeacherPresent bool
	TeacherAbsent  bool
}

// Flags returns the visibility in series order.
func (v Visibility) Flags() [4]bool {
	return [4]bool{v.StudentPresent, v.StudentAbsent, v.TeacherPresent, v.TeacherAbsent}
}

// Population distinguishes student and teacher attendance.
type Population string

// Populations.
const (
	Students Population = "student"
	Teachers Population = "teacher"
)

// Attendance statuses recorded by the backend.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusHalfDay = "half_day"
)

// DetailRecord is one person/date/status row used for reports.
type DetailRecord struct {
	PersonID   int64
	Population Population
	Date       string
	FirstName  string
	LastName   string
	Status     string
	Remarks    string
}

// FullName joins first and last name.
func (r DetailRecord) FullName() string {
	return r.FirstName + " " + r.LastName
}

// Person is a student or teacher known to the backend.
type Person struct {
	ID         int64
	Population Population
	FirstName  string
	LastName   string
}

// Mark is one attendance entry to store.
type Mark struct {
	PersonID int64
	Date     string
	Status   string
	Remarks  string
}

// AttendanceDetail groups detail records by population.
type AttendanceDetail struct {
	StartDate string
	EndDate   string
	Students  []DetailRecord
	Teachers  []DetailRecord
}

// DateRange is a validated, inclusive pair of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// StartString formats the start date.
func (r DateRange) StartString() string {
	return r.Start.Format(DateLayout)
}

// EndString formats the end date.
func (r DateRange) EndString() string {
	return r.End.Format(DateLayout)
}

// Days returns the inclusive number of days in the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// String implements fmt.Stringer.
func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.StartString(), r.EndString())
}

// LastDays returns the range of n days ending on the day of now.
func LastDays(now time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{Start: end.AddDate(0, 0, -(n - 1)), End: end}
}

// Config defines dashboard settings after flags and config file are merged.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	View      ViewMode
	Days      int
	OutputDir string
	Chart     bool
}
