package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/model"
)

type blockingFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	detail  model.AttendanceDetail
	err     error
}

func (f *blockingFetcher) FetchDetail(ctx context.Context, rng model.DateRange) (model.AttendanceDetail, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.detail, f.err
}

type failingComposer struct{}

func (failingComposer) Compose(Document) ([]byte, error) {
	return nil, errors.New("layout failed")
}

func sampleDetail() model.AttendanceDetail {
	rec := func(pop model.Population, date, first, status, remarks string) model.DetailRecord {
		return model.DetailRecord{Population: pop, Date: date, FirstName: first, LastName: "Doe", Status: status, Remarks: remarks}
	}
	return model.AttendanceDetail{
		Students: []model.DetailRecord{
			rec(model.Students, "2024-01-02", "Ann", model.StatusPresent, ""),
			rec(model.Students, "2024-01-02", "Bob", model.StatusPresent, ""),
			rec(model.Students, "2024-01-02", "Cid", model.StatusPresent, ""),
			rec(model.Students, "2024-01-03", "Ann", model.StatusAbsent, "flu"),
			rec(model.Students, "2024-01-03", "Bob", model.StatusLate, "bus"),
			rec(model.Students, "2024-01-03", "Cid", model.StatusHalfDay, ""),
		},
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestAttendanceRate(t *testing.T) {
	cases := []struct {
		present, absent int
		want            string
	}{
		{3, 1, "75.0%"},
		{0, 0, "N/A"},
		{1, 2, "33.3%"},
		{2, 0, "100.0%"},
		{0, 4, "0.0%"},
	}
	for _, tc := range cases {
		if got := AttendanceRate(tc.present, tc.absent); got != tc.want {
			t.Fatalf("AttendanceRate(%d, %d) = %q, want %q", tc.present, tc.absent, got, tc.want)
		}
	}
}

func TestTallyIgnoresOtherStatuses(t *testing.T) {
	c := Tally(sampleDetail().Students)
	if c.Present != 3 || c.Absent != 1 {
		t.Fatalf("unexpected tally %+v", c)
	}
	if c.Rate() != "75.0%" {
		t.Fatalf("unexpected rate %s", c.Rate())
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("2024-01-01", "2024-01-31"); got != "Attendance_Report_2024-01-01_to_2024-01-31.pdf" {
		t.Fatalf("unexpected filename %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"present":  "Present",
		"half_day": "Half_day",
		"élève":    "Élève",
	}
	for in, want := range cases {
		if got := FormatStatus(in); got != want {
			t.Fatalf("FormatStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTablesSkipEmptyPopulation(t *testing.T) {
	tables := Tables(sampleDetail())
	if len(tables) != 2 {
		t.Fatalf("expected student and summary tables, got %d", len(tables))
	}
	if tables[0].Title != "Student Attendance" || tables[1].Title != "Summary Statistics" {
		t.Fatalf("unexpected titles %q %q", tables[0].Title, tables[1].Title)
	}
	row := tables[0].Rows[3]
	if row[1] != "Ann Doe" || row[2] != "Absent" || row[3] != "flu" {
		t.Fatalf("unexpected detail row %v", row)
	}
	if tables[0].Rows[5][2] != "Half_day" {
		t.Fatalf("unexpected status %q", tables[0].Rows[5][2])
	}
	teachers := tables[1].Rows[1]
	if teachers[0] != "Teachers" || teachers[3] != "N/A" {
		t.Fatalf("unexpected teacher summary %v", teachers)
	}
}

func TestWriteTextAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, []Table{SummaryTable(Summary{Students: Counts{3, 1}})}); err != nil {
		t.Fatalf("write text: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if lines[1] != "Category  Present  Absent  Attendance Rate" {
		t.Fatalf("unexpected header %q", lines[1])
	}
	if lines[2] != "Students        3       1            75.0%" {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestExportWritesPDF(t *testing.T) {
	dir := t.TempDir()
	fetcher := &blockingFetcher{detail: sampleDetail()}
	exp := NewExporter(fetcher, Options{
		OutputDir: dir,
		ChartSeries: func() model.AttendanceSeries {
			return model.AttendanceSeries{
				Labels:         []string{"Jan 02", "Jan 03", "Jan 04"},
				StudentPresent: []int{3, 1, 2},
				StudentAbsent:  []int{0, 1, 1},
				TeacherPresent: []int{1, 1, 1},
				TeacherAbsent:  []int{0, 0, 0},
			}
		},
		Now: func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) },
	})

	art, err := exp.Export(context.Background(), "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if art == nil || art.Filename != "Attendance_Report_2024-01-01_to_2024-01-31.pdf" {
		t.Fatalf("unexpected artifact %+v", art)
	}
	data, err := os.ReadFile(filepath.Join(dir, art.Filename))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected PDF header")
	}
	if art.Summary.Students.Present != 3 {
		t.Fatalf("unexpected summary %+v", art.Summary)
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Fatalf("expected only the report in output dir, got %v", names)
	}
}

func TestExportBackToBackRunsOnce(t *testing.T) {
	dir := t.TempDir()
	fetcher := &blockingFetcher{
		detail:  sampleDetail(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	exp := NewExporter(fetcher, Options{OutputDir: dir})

	type result struct {
		art *Artifact
		err error
	}
	first := make(chan result, 1)
	go func() {
		art, err := exp.Export(context.Background(), "2024-01-01", "2024-01-31")
		first <- result{art, err}
	}()
	<-fetcher.started

	if !exp.Running() {
		t.Fatalf("expected export in flight")
	}
	art, err := exp.Export(context.Background(), "2024-01-01", "2024-01-31")
	if art != nil || err != nil {
		t.Fatalf("expected silent no-op, got %+v %v", art, err)
	}

	close(fetcher.release)
	res := <-first
	if res.err != nil || res.art == nil {
		t.Fatalf("first export failed: %v", res.err)
	}
	if fetcher.calls.Load() != 1 {
		t.Fatalf("expected one fetch, got %d", fetcher.calls.Load())
	}
	if names := listDir(t, dir); len(names) != 1 {
		t.Fatalf("expected one artifact, got %v", names)
	}
	if exp.Running() {
		t.Fatalf("expected guard released")
	}
}

func TestExportFailuresLeaveNoFile(t *testing.T) {
	dir := t.TempDir()

	fetchErr := &api.TransportError{Status: 500, Message: "down"}
	exp := NewExporter(&blockingFetcher{err: fetchErr}, Options{OutputDir: dir})
	_, err := exp.Export(context.Background(), "2024-01-01", "2024-01-31")
	var eerr *ExportError
	if !errors.As(err, &eerr) || eerr.Op != "fetch" {
		t.Fatalf("expected fetch ExportError, got %v", err)
	}
	var terr *api.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected wrapped TransportError, got %v", err)
	}

	exp = NewExporter(&blockingFetcher{detail: sampleDetail()}, Options{OutputDir: dir, Composer: failingComposer{}})
	if _, err := exp.Export(context.Background(), "2024-01-01", "2024-01-31"); !errors.As(err, &eerr) || eerr.Op != "compose" {
		t.Fatalf("expected compose ExportError, got %v", err)
	}
	if exp.Running() {
		t.Fatalf("expected guard released after failure")
	}

	if _, err := exp.Export(context.Background(), "2024-01-31", "2024-01-01"); !errors.Is(err, api.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Fatalf("expected empty output dir, got %v", names)
	}
}
