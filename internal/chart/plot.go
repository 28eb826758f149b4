package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/verte-zerg/rollcall/internal/model"
)

// Series represents a named data series for plotting. Slot fixes the colour
// and line style so hiding one series does not restyle the others.
type Series struct {
	Name   string
	Values []float64
	Slot   int
}

// PlotOptions controls the text plot layout.
type PlotOptions struct {
	Width   int
	Height  int
	Color   bool
	XLabels []string
	// Cursor marks a label index under the plot; -1 disables it.
	Cursor int
}

type lineStyle struct {
	name   string
	period int
	on     int
}

const (
	defaultPlotHeight   = 10
	minPlotWidth        = 10
	axisLabelWidth      = 5
	axisSeparator       = " │ "
	cursorMarker        = '▲'
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var lineStyles = []lineStyle{
	{name: "solid", period: 1, on: 1},
	{name: "dotted", period: 4, on: 1},
	{name: "dashed", period: 6, on: 3},
	{name: "dashdot", period: 8, on: 3},
}

// ANSI colours closest to the series colours.
var slotColors = []string{
	"\x1b[32m",
	"\x1b[31m",
	"\x1b[34m",
	"\x1b[33m",
}

// PlotSeries renders the series on a shared zero-based count axis.
func PlotSeries(w io.Writer, title string, series []Series, opts PlotOptions) error {
	series = filterSeries(series)
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	if len(series) == 0 {
		_, err := fmt.Fprintln(w, "No data for the selected view.")
		return err
	}

	height := opts.Height
	if height <= 0 {
		height = defaultPlotHeight
	}
	width := opts.Width
	if width <= 0 {
		width = autoPlotWidth()
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}

	top := axisTop(series)
	cells := make([][][]uint8, len(series))
	for si, s := range series {
		cells[si] = makeCells(height, width)
		style := lineStyles[s.Slot%len(lineStyles)]
		prevX, prevY := -1, -1
		for x, v := range resampleSeries(s.Values, width) {
			px, py := x*2, valueToRow(v, top, height*4)
			if prevX >= 0 {
				drawLine(prevX, prevY, px, py, func(dx, dy int) {
					if style.shouldPlot(dx) {
						setBrailleDot(cells[si], dx, dy)
					}
				})
			} else if style.shouldPlot(px) {
				setBrailleDot(cells[si], px, py)
			}
			prevX, prevY = px, py
		}
	}

	useColor := shouldUseColor(w, opts.Color)
	labels := axisLabels(height, top)
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", axisLabelWidth, labels[y], axisSeparator))
		for x := 0; x < width; x++ {
			mask, owner := composeCell(cells, x, y)
			ch := brailleFromMask(mask)
			if useColor && owner >= 0 {
				row.WriteString(slotColors[series[owner].Slot%len(slotColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	for _, line := range renderXAxis(opts.XLabels, width, opts.Cursor) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, renderLegend(series, useColor)); err != nil {
		return err
	}
	return nil
}

func filterSeries(series []Series) []Series {
	out := make([]Series, 0, len(series))
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

func axisTop(series []Series) float64 {
	top := 0.0
	for _, s := range series {
		for _, v := range s.Values {
			if v > top {
				top = v
			}
		}
	}
	if top <= 0 {
		return 1
	}
	return math.Ceil(top)
}

func axisLabels(height int, top float64) []string {
	labels := make([]string, height)
	if height <= 0 {
		return labels
	}
	labels[0] = formatTick(top)
	if height > 2 {
		labels[height/2] = formatTick(top / 2)
	}
	if height > 1 {
		labels[height-1] = "0"
	}
	return labels
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func autoPlotWidth() int {
	return PlotWidthFor(terminalWidth())
}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	plotWidth := totalWidth - axisLabelWidth - runewidth.StringWidth(axisSeparator)
	if plotWidth < minPlotWidth {
		plotWidth = minPlotWidth
	}
	return plotWidth
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// indexToColumn maps a label index onto a plot column after resampling.
func indexToColumn(index, count, width int) int {
	if count <= 1 || width <= 1 {
		return 0
	}
	if count <= width {
		return int(math.Round(float64(index) * float64(width-1) / float64(count-1)))
	}
	return index * width / count
}

func renderXAxis(labels []string, width, cursor int) []string {
	if len(labels) == 0 {
		return nil
	}
	indent := strings.Repeat(" ", axisLabelWidth+runewidth.StringWidth(axisSeparator))
	var lines []string
	if cursor >= 0 && cursor < len(labels) {
		col := indexToColumn(cursor, len(labels), width)
		lines = append(lines, indent+strings.Repeat(" ", col)+string(cursorMarker)+" "+labels[cursor])
	}
	first := labels[0]
	last := labels[len(labels)-1]
	gap := width - runewidth.StringWidth(first) - runewidth.StringWidth(last)
	if len(labels) == 1 || gap < 1 {
		lines = append(lines, indent+first)
		return lines
	}
	lines = append(lines, indent+first+strings.Repeat(" ", gap)+last)
	return lines
}

func makeCells(height, width int) [][]uint8 {
	cells := make([][]uint8, height)
	for y := 0; y < height; y++ {
		cells[y] = make([]uint8, width)
	}
	return cells
}

// composeCell merges the dots of every series; the first series with a dot
// in the cell owns its colour.
func composeCell(seriesCells [][][]uint8, x, y int) (uint8, int) {
	var mask uint8
	owner := -1
	for i, cells := range seriesCells {
		if y < 0 || y >= len(cells) || x < 0 || x >= len(cells[y]) {
			continue
		}
		cellMask := cells[y][x]
		if cellMask == 0 {
			continue
		}
		if owner == -1 {
			owner = i
		}
		mask |= cellMask
	}
	return mask, owner
}

func (ls lineStyle) shouldPlot(x int) bool {
	if ls.period <= 1 {
		return true
	}
	if x < 0 {
		x = -x
	}
	return x%ls.period < ls.on
}

func resampleSeries(values []float64, width int) []float64 {
	if len(values) == 0 || width <= 0 {
		return nil
	}
	out := make([]float64, width)
	switch {
	case len(values) == width:
		copy(out, values)
	case len(values) > width:
		for i := 0; i < width; i++ {
			start := i * len(values) / width
			end := (i + 1) * len(values) / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case len(values) == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := 0; i < width; i++ {
			pos := float64(i) * float64(len(values)-1) / float64(width-1)
			idx := int(math.Floor(pos))
			if idx >= len(values)-1 {
				out[i] = values[len(values)-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func valueToRow(v, top float64, rows int) int {
	if rows <= 1 || top <= 0 {
		return 0
	}
	row := int(math.Round((1 - v/top) * float64(rows-1)))
	if row < 0 {
		return 0
	}
	if row >= rows {
		return rows - 1
	}
	return row
}

func renderLegend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	marker := brailleFromMask(0x01)
	for _, s := range series {
		label := fmt.Sprintf("%c %s (%s)", marker, s.Name, lineStyles[s.Slot%len(lineStyles)].name)
		if useColor {
			label = slotColors[s.Slot%len(slotColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// drawLine walks a Bresenham line between two dot coordinates.
func drawLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			if x0 == x1 {
				return
			}
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			if y0 == y1 {
				return
			}
			e += dx
			y0 += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func setBrailleDot(cells [][]uint8, x, y int) {
	if y < 0 || x < 0 {
		return
	}
	cellY, cellX := y/4, x/2
	if cellY >= len(cells) || cellX >= len(cells[cellY]) {
		return
	}
	cells[cellY][cellX] |= brailleDotMask(x%2, y%4)
}

// Braille dot bits, indexed by [column][row] inside a 2x4 cell.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func brailleDotMask(x, y int) uint8 {
	if x < 0 || x > 1 || y < 0 || y > 3 {
		return 0
	}
	return brailleBits[x][y]
}

func brailleFromMask(mask uint8) rune {
	return rune(0x2800 + int(mask))
}

// TextRenderer draws series as a braille plot into a writer.
type TextRenderer struct {
	w      io.Writer
	title  string
	opts   PlotOptions
	series model.AttendanceSeries
	vis    model.Visibility
	hover  func(HoverInfo)
}

// NewTextRenderer returns a renderer writing to w. A zero width sizes the
// plot to the terminal.
func NewTextRenderer(w io.Writer, title string, width, height int, color bool) *TextRenderer {
	return &TextRenderer{
		w:     w,
		title: title,
		opts:  PlotOptions{Width: width, Height: height, Color: color, Cursor: -1},
		vis:   ComputeVisibility(model.ViewAll),
	}
}

// SetSeries implements Renderer.
func (r *TextRenderer) SetSeries(series model.AttendanceSeries) {
	r.series = series.Clone()
	if r.opts.Cursor >= r.series.Len() {
		r.opts.Cursor = -1
	}
}

// SetVisibility implements Renderer.
func (r *TextRenderer) SetVisibility(vis model.Visibility) {
	r.vis = vis
}

// SetWidth resizes the plot area to fit totalWidth columns.
func (r *TextRenderer) SetWidth(totalWidth int) {
	r.opts.Width = PlotWidthFor(totalWidth)
}

// SetHeight sets the number of plot rows.
func (r *TextRenderer) SetHeight(rows int) {
	r.opts.Height = max(rows, 2)
}

// Redraw implements Renderer. A writer with a Reset method (bytes.Buffer,
// strings.Builder) is cleared first so it holds only the latest frame.
func (r *TextRenderer) Redraw() error {
	if rs, ok := r.w.(interface{ Reset() }); ok {
		rs.Reset()
	}
	opts := r.opts
	opts.XLabels = r.series.Labels
	return PlotSeries(r.w, r.title, CountSeries(r.series, r.vis), opts)
}

// OnHover implements Renderer.
func (r *TextRenderer) OnHover(fn func(HoverInfo)) {
	r.hover = fn
}

// Hover moves the cursor to index and notifies the hover callback.
func (r *TextRenderer) Hover(index int) (HoverInfo, bool) {
	info, ok := HoverAt(r.series, r.vis, index)
	if !ok {
		r.opts.Cursor = -1
		return HoverInfo{}, false
	}
	r.opts.Cursor = index
	if r.hover != nil {
		r.hover(info)
	}
	return info, true
}

// Cursor returns the hovered label index or -1.
func (r *TextRenderer) Cursor() int {
	return r.opts.Cursor
}
