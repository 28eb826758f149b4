package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/verte-zerg/rollcall/internal/model"
)

// HTMLRenderer writes a standalone ECharts page: students as bars, teachers
// as overlaid lines. Hidden series start deselected in the legend.
type HTMLRenderer struct {
	w      io.Writer
	title  string
	series model.AttendanceSeries
	vis    model.Visibility
}

// NewHTMLRenderer returns a renderer writing an HTML page to w.
func NewHTMLRenderer(w io.Writer, title string) *HTMLRenderer {
	return &HTMLRenderer{w: w, title: title, vis: ComputeVisibility(model.ViewAll)}
}

// SetSeries implements Renderer.
func (r *HTMLRenderer) SetSeries(series model.AttendanceSeries) {
	r.series = series.Clone()
}

// SetVisibility implements Renderer.
func (r *HTMLRenderer) SetVisibility(vis model.Visibility) {
	r.vis = vis
}

// OnHover implements Renderer. The page shows its own axis tooltip and never
// calls fn.
func (r *HTMLRenderer) OnHover(func(HoverInfo)) {}

// Redraw implements Renderer.
func (r *HTMLRenderer) Redraw() error {
	if !r.series.Aligned() {
		return fmt.Errorf("series counts are not aligned with labels")
	}
	flags := r.vis.Flags()
	selected := make(map[string]bool, len(seriesSpecs))
	for i, spec := range seriesSpecs {
		selected[spec.name] = flags[i]
	}

	subtitle := ""
	if r.series.StartDate != "" {
		subtitle = fmt.Sprintf("%s to %s", r.series.StartDate, r.series.EndDate)
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.title, Width: "1100px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: r.title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Bottom: "0", Selected: selected}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Dates"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Number of Attendees"}),
	)
	bar.SetXAxis(r.series.Labels)

	line := charts.NewLine()
	line.SetXAxis(r.series.Labels)

	for i, counts := range seriesCounts(r.series) {
		spec := seriesSpecs[i]
		style := charts.WithItemStyleOpts(opts.ItemStyle{Color: spec.color})
		if spec.line {
			data := make([]opts.LineData, len(counts))
			for j, c := range counts {
				data[j] = opts.LineData{Value: c}
			}
			line.AddSeries(spec.name, data, style)
			continue
		}
		data := make([]opts.BarData, len(counts))
		for j, c := range counts {
			data[j] = opts.BarData{Value: c}
		}
		bar.AddSeries(spec.name, data, style)
	}
	bar.Overlap(line)
	return bar.Render(r.w)
}
