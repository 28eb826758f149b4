package chart

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/rollcall/internal/model"
)

func TestPlotSeries(t *testing.T) {
	var buf bytes.Buffer
	err := PlotSeries(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}, Slot: 0},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}, Slot: 2},
	}, PlotOptions{Width: 5, Height: 4, Cursor: -1, XLabels: []string{"d1", "d2", "d3", "d4", "d5"}})
	if err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Legend:") || !strings.Contains(out, "B (dashed)") {
		t.Fatalf("expected legend with slot style in output:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	// title + 4 plot rows + x axis + legend
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines of output, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[1], "    4 │ ") {
		t.Fatalf("expected shared axis top of 4, got %q", lines[1])
	}
}

func TestPlotSeriesEmptyView(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSeries(&buf, "", nil, PlotOptions{Width: 10, Height: 3}); err != nil {
		t.Fatalf("PlotSeries failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No data") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := axisLabelWidth + runewidth.StringWidth(axisSeparator)
	if got := PlotWidthFor(80); got != 80-axisWidth {
		t.Fatalf("expected width %d, got %d", 80-axisWidth, got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestIndexToColumn(t *testing.T) {
	if got := indexToColumn(4, 5, 41); got != 40 {
		t.Fatalf("expected last column, got %d", got)
	}
	if got := indexToColumn(0, 5, 41); got != 0 {
		t.Fatalf("expected first column, got %d", got)
	}
	if got := indexToColumn(50, 100, 10); got != 5 {
		t.Fatalf("expected bucket 5, got %d", got)
	}
}

func TestCountSeriesKeepsSlots(t *testing.T) {
	series := CountSeries(fiveDaySeries(), ComputeVisibility(model.ViewTeachers))
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].Slot != 2 || series[1].Slot != 3 {
		t.Fatalf("unexpected slots: %d %d", series[0].Slot, series[1].Slot)
	}
}
