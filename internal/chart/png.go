package chart

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/verte-zerg/rollcall/internal/model"
)

// ErrTooFewPoints is returned when a PNG chart would have a zero-width axis.
var ErrTooFewPoints = errors.New("chart needs at least two dates")

const maxPNGTicks = 10

// PNGRenderer draws the series as a line chart image.
type PNGRenderer struct {
	w      io.Writer
	title  string
	width  int
	height int
	series model.AttendanceSeries
	vis    model.Visibility
	hover  func(HoverInfo)
}

// NewPNGRenderer returns a renderer writing PNG bytes to w.
func NewPNGRenderer(w io.Writer, title string, width, height int) *PNGRenderer {
	return &PNGRenderer{
		w:      w,
		title:  title,
		width:  width,
		height: height,
		vis:    ComputeVisibility(model.ViewAll),
	}
}

// SetSeries implements Renderer.
func (r *PNGRenderer) SetSeries(series model.AttendanceSeries) {
	r.series = series.Clone()
}

// SetVisibility implements Renderer.
func (r *PNGRenderer) SetVisibility(vis model.Visibility) {
	r.vis = vis
}

// OnHover implements Renderer. Static images have no hover.
func (r *PNGRenderer) OnHover(fn func(HoverInfo)) {
	r.hover = fn
}

// Redraw implements Renderer.
func (r *PNGRenderer) Redraw() error {
	n := r.series.Len()
	if n < 2 {
		return ErrTooFewPoints
	}
	if !r.series.Aligned() {
		return fmt.Errorf("series counts are not aligned with labels")
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	flags := r.vis.Flags()
	top := 1.0
	var series []gochart.Series
	for i, counts := range seriesCounts(r.series) {
		if !flags[i] {
			continue
		}
		ys := make([]float64, n)
		for j, c := range counts {
			ys[j] = float64(c)
			top = math.Max(top, ys[j])
		}
		spec := seriesSpecs[i]
		style := gochart.Style{
			StrokeColor: drawing.ColorFromHex(strings.TrimPrefix(spec.color, "#")),
			StrokeWidth: 2,
		}
		if spec.line {
			style.StrokeWidth = 3
			style.DotColor = style.StrokeColor
			style.DotWidth = 3
		}
		if i == 1 || i == 3 {
			style.StrokeDashArray = []float64{5, 4}
		}
		series = append(series, gochart.ContinuousSeries{
			Name:    spec.name,
			XValues: xs,
			YValues: ys,
			Style:   style,
		})
	}
	if len(series) == 0 {
		return fmt.Errorf("no visible series")
	}

	graph := gochart.Chart{
		Title:  r.title,
		Width:  r.width,
		Height: r.height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:  "Dates",
			Range: &gochart.ContinuousRange{Min: 0, Max: float64(n - 1)},
			Ticks: dateTicks(r.series.Labels),
		},
		YAxis: gochart.YAxis{
			Name:  "Number of Attendees",
			Range: &gochart.ContinuousRange{Min: 0, Max: math.Ceil(top)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	return graph.Render(gochart.PNG, r.w)
}

func dateTicks(labels []string) []gochart.Tick {
	step := 1
	if len(labels) > maxPNGTicks {
		step = int(math.Ceil(float64(len(labels)) / maxPNGTicks))
	}
	ticks := make([]gochart.Tick, 0, len(labels)/step+1)
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}
