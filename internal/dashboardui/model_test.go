package dashboardui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/dashboard"
	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/report"
)

type stubFetcher struct {
	series      model.AttendanceSeries
	err         error
	detailErr   error
	detailRange model.DateRange
}

func (f *stubFetcher) FetchSeries(ctx context.Context, rng model.DateRange) (model.AttendanceSeries, error) {
	if f.err != nil {
		return model.AttendanceSeries{}, f.err
	}
	return f.series, nil
}

func (f *stubFetcher) FetchDetail(ctx context.Context, rng model.DateRange) (model.AttendanceDetail, error) {
	f.detailRange = rng
	return model.AttendanceDetail{StartDate: rng.StartString(), EndDate: rng.EndString()}, f.detailErr
}

func threeDays() model.AttendanceSeries {
	return model.AttendanceSeries{
		Labels:         []string{"Jan 01", "Jan 02", "Jan 03"},
		StudentPresent: []int{8, 9, 7},
		StudentAbsent:  []int{2, 1, 3},
		TeacherPresent: []int{3, 3, 2},
		TeacherAbsent:  []int{0, 0, 1},
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-03",
	}
}

func newTestModel(t *testing.T, f *stubFetcher) *Model {
	t.Helper()
	session := dashboard.NewSession(f, nil, nil)
	exporter := report.NewExporter(f, report.Options{OutputDir: t.TempDir()})
	m := NewModel(session, exporter, Options{StartDate: "2024-01-01", EndDate: "2024-01-03"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRefreshPopulatesTabs(t *testing.T) {
	m := newTestModel(t, &stubFetcher{series: threeDays()})
	m.pending = 1
	series, err := m.session.RequestRefresh(context.Background(), "2024-01-01", "2024-01-03")
	m.Update(refreshMsg{series: series, err: err})

	if m.pending != 0 || m.errMsg != "" {
		t.Fatalf("unexpected state pending=%d err=%q", m.pending, m.errMsg)
	}
	if len(m.daily.Rows()) != 3 {
		t.Fatalf("expected 3 daily rows, got %d", len(m.daily.Rows()))
	}
	view := m.View()
	if !strings.Contains(view, "Attendance Overview") {
		t.Fatalf("expected chart in view")
	}
}

func TestViewKeysSwitchMode(t *testing.T) {
	m := newTestModel(t, &stubFetcher{series: threeDays()})
	m.Update(key("3"))
	if m.session.View() != model.ViewTeachers {
		t.Fatalf("expected teachers view, got %s", m.session.View())
	}
	m.Update(key("v"))
	if m.session.View() != model.ViewPresent {
		t.Fatalf("expected present view, got %s", m.session.View())
	}
}

func TestRefreshErrorKeepsSeries(t *testing.T) {
	m := newTestModel(t, &stubFetcher{series: threeDays()})
	if err := m.session.Load(threeDays()); err != nil {
		t.Fatalf("load: %v", err)
	}
	m.pending = 1
	m.Update(refreshMsg{err: &api.TransportError{Status: 502, Message: "bad gateway"}})
	if !strings.Contains(m.errMsg, "Refresh failed") {
		t.Fatalf("expected error line, got %q", m.errMsg)
	}
	if m.session.Series().Len() != 3 {
		t.Fatalf("expected series kept")
	}

	m.pending = 1
	m.Update(refreshMsg{err: dashboard.ErrSuperseded})
	if m.pending != 0 {
		t.Fatalf("expected superseded refresh to settle")
	}
}

func TestFilterRejectsInvertedRange(t *testing.T) {
	m := newTestModel(t, &stubFetcher{series: threeDays()})
	m.Update(key("/"))
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[0].SetValue("2024-02-01")
	m.filterInputs[1].SetValue("2024-01-01")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("expected no refresh for invalid range")
	}
	if !m.filterMode || m.filterError == "" {
		t.Fatalf("expected filter error, got %q", m.filterError)
	}
}

func TestExportSkippedShowsNotice(t *testing.T) {
	m := newTestModel(t, &stubFetcher{series: threeDays()})
	m.exporting = true
	m.Update(exportMsg{})
	if m.notice != "Export already in progress." || !m.exporting {
		t.Fatalf("expected muted notice, got %q", m.notice)
	}

	m.Update(exportMsg{artifact: &report.Artifact{Path: "/tmp/a.pdf", Size: 2048}})
	if m.exporting || !strings.Contains(m.notice, "2.0 KB") {
		t.Fatalf("unexpected export state %v %q", m.exporting, m.notice)
	}
}

func TestHoverShowsTooltip(t *testing.T) {
	m := newTestModel(t, &stubFetcher{series: threeDays()})
	if err := m.session.Load(threeDays()); err != nil {
		t.Fatalf("load: %v", err)
	}
	m.redraw()
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.hover == nil || m.hover.Label != "Jan 01" {
		t.Fatalf("expected hover on first label, got %+v", m.hover)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.hover == nil || m.hover.Label != "Jan 03" {
		t.Fatalf("expected wrap to last label, got %+v", m.hover)
	}
}

func TestExportAfterFailedRefreshUsesLoadedRange(t *testing.T) {
	f := &stubFetcher{series: threeDays()}
	m := newTestModel(t, f)
	m.pending = 1
	series, err := m.session.RequestRefresh(context.Background(), "2024-01-01", "2024-01-03")
	m.Update(refreshMsg{series: series, err: err})

	f.err = &api.TransportError{Status: 502, Message: "bad gateway"}
	m.Update(key("/"))
	m.filterInputs[0].SetValue("2024-03-01")
	m.filterInputs[1].SetValue("2024-03-31")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd == nil {
		t.Fatalf("expected refresh for valid range")
	}
	_, err = m.session.RequestRefresh(context.Background(), m.startDate, m.endDate)
	m.Update(refreshMsg{err: err})
	if m.errMsg == "" {
		t.Fatalf("expected refresh error")
	}
	if status := m.renderStatus(); !strings.Contains(status, "Range: 2024-01-01 to 2024-01-03") {
		t.Fatalf("expected loaded range in status, got %q", status)
	}

	// A pending refresh keeps the spinner running, so the export command
	// comes back unbatched.
	m.pending = 1
	cmd := m.startExport()
	msg, ok := cmd().(exportMsg)
	if !ok {
		t.Fatalf("expected export message")
	}
	if msg.err != nil || msg.artifact == nil {
		t.Fatalf("unexpected export result %+v", msg)
	}
	if got := f.detailRange.String(); got != "2024-01-01 to 2024-01-03" {
		t.Fatalf("expected detail for the loaded range, got %s", got)
	}
	if msg.artifact.Filename != "Attendance_Report_2024-01-01_to_2024-01-03.pdf" {
		t.Fatalf("unexpected filename %q", msg.artifact.Filename)
	}

	m.Update(key("/"))
	if got := m.filterInputs[0].Value(); got != "2024-03-01" {
		t.Fatalf("expected filter to keep the requested start, got %q", got)
	}
}
