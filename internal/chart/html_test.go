package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/verte-zerg/rollcall/internal/model"
)

func TestHTMLRendererWritesAllSeries(t *testing.T) {
	var buf bytes.Buffer
	r := NewHTMLRenderer(&buf, "Attendance Overview")
	r.OnHover(func(HoverInfo) { t.Fatalf("html renderer should not call hover") })
	if err := Apply(r, fiveDaySeries(), model.ViewStudents); err != nil {
		t.Fatalf("render html: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Attendance Overview", "Students Present", "Teachers Absent", "Jan 05"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in html output", want)
		}
	}
}

func TestPNGRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewPNGRenderer(&buf, "Attendance", 800, 400)
	if err := Apply(r, fiveDaySeries(), model.ViewAll); err != nil {
		t.Fatalf("render png: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected PNG signature")
	}
}

func TestPNGRendererNeedsTwoDates(t *testing.T) {
	series := model.AttendanceSeries{
		Labels:         []string{"Jan 01"},
		StudentPresent: []int{1},
		StudentAbsent:  []int{0},
		TeacherPresent: []int{1},
		TeacherAbsent:  []int{0},
	}
	r := NewPNGRenderer(&bytes.Buffer{}, "Attendance", 800, 400)
	if err := Apply(r, series, model.ViewAll); !errors.Is(err, ErrTooFewPoints) {
		t.Fatalf("expected ErrTooFewPoints, got %v", err)
	}
}
