package chart

import (
	"fmt"

	"github.com/verte-zerg/rollcall/internal/model"
)

// Renderer draws an attendance series. Implementations own all library
// specifics; callers only push data and visibility and ask for a redraw.
type Renderer interface {
	SetSeries(series model.AttendanceSeries)
	SetVisibility(vis model.Visibility)
	Redraw() error
	OnHover(fn func(HoverInfo))
}

// HoverInfo describes the tooltip for one date.
type HoverInfo struct {
	Index int
	Label string
	Lines []TooltipLine
}

// TooltipLine is one visible series value at the hovered date.
type TooltipLine struct {
	Name  string
	Color string
	Value int
}

// String implements fmt.Stringer.
func (l TooltipLine) String() string {
	return fmt.Sprintf("%s: %d", l.Name, l.Value)
}

type seriesSpec struct {
	name  string
	color string
	line  bool
}

// Series order matches model.Visibility.Flags. Students are drawn as bars,
// teachers as lines.
var seriesSpecs = [4]seriesSpec{
	{name: "Students Present", color: "#28a745"},
	{name: "Students Absent", color: "#dc3545"},
	{name: "Teachers Present", color: "#007bff", line: true},
	{name: "Teachers Absent", color: "#ffc107", line: true},
}

func seriesCounts(s model.AttendanceSeries) [4][]int {
	return [4][]int{s.StudentPresent, s.StudentAbsent, s.TeacherPresent, s.TeacherAbsent}
}

// Apply pushes series and the visibility for mode into r and redraws.
func Apply(r Renderer, series model.AttendanceSeries, mode model.ViewMode) error {
	r.SetSeries(series)
	r.SetVisibility(ComputeVisibility(mode))
	return r.Redraw()
}

// HoverAt builds the tooltip for index, listing only visible series.
func HoverAt(series model.AttendanceSeries, vis model.Visibility, index int) (HoverInfo, bool) {
	if index < 0 || index >= series.Len() {
		return HoverInfo{}, false
	}
	info := HoverInfo{Index: index, Label: series.Labels[index]}
	flags := vis.Flags()
	for i, counts := range seriesCounts(series) {
		if !flags[i] || index >= len(counts) {
			continue
		}
		info.Lines = append(info.Lines, TooltipLine{
			Name:  seriesSpecs[i].name,
			Color: seriesSpecs[i].color,
			Value: counts[index],
		})
	}
	return info, true
}

// CountSeries converts the visible count slices into plot series.
func CountSeries(series model.AttendanceSeries, vis model.Visibility) []Series {
	flags := vis.Flags()
	out := make([]Series, 0, len(flags))
	for i, counts := range seriesCounts(series) {
		if !flags[i] {
			continue
		}
		values := make([]float64, len(counts))
		for j, c := range counts {
			values[j] = float64(c)
		}
		out = append(out, Series{Name: seriesSpecs[i].name, Values: values, Slot: i})
	}
	return out
}
