package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/verte-zerg/rollcall/internal/model"
)

// Document is everything a composer needs to lay out one report.
type Document struct {
	Range       model.DateRange
	Tables      []Table
	Chart       []byte
	GeneratedAt time.Time
}

// Composer turns a document into file bytes. Compose must not touch the
// filesystem.
type Composer interface {
	Compose(doc Document) ([]byte, error)
}

// PDFComposer lays documents out on A4 portrait pages.
type PDFComposer struct{}

const (
	pageMargin    = 10.0
	bottomMargin  = 15.0
	rowHeight     = 7.0
	chartImageKey = "attendance-chart"
)

// detail column widths in mm; the last column takes the remaining width.
var detailColumns = []float64{28, 55, 27}

// Compose implements Composer.
func (PDFComposer) Compose(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, bottomMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	generated := doc.GeneratedAt.Format("2006-01-02 15:04:05")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-bottomMargin + 3)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 5, "Generated on: "+generated, "", 0, "L", false, 0, "")
		pdf.SetX(pageMargin)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, "Attendance Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Date Range: "+doc.Range.String(), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	if len(doc.Chart) > 0 {
		pageW, _ := pdf.GetPageSize()
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		info := pdf.RegisterImageOptionsReader(chartImageKey, opts, bytes.NewReader(doc.Chart))
		if info != nil {
			w := pageW - 2*pageMargin
			h := w * info.Height() / info.Width()
			pdf.ImageOptions(chartImageKey, pageMargin, pdf.GetY(), w, h, false, opts, 0, "")
			pdf.SetY(pdf.GetY() + h + 4)
		}
	}

	for _, t := range doc.Tables {
		writeTable(pdf, tr, t)
		pdf.Ln(6)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to compose pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(pdf *fpdf.Fpdf, cols int) []float64 {
	pageW, _ := pdf.GetPageSize()
	avail := pageW - 2*pageMargin
	if cols == len(detailColumns)+1 {
		widths := append([]float64(nil), detailColumns...)
		used := 0.0
		for _, w := range widths {
			used += w
		}
		return append(widths, avail-used)
	}
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = avail / float64(cols)
	}
	return widths
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, t Table) {
	_, pageH := pdf.GetPageSize()
	limit := pageH - bottomMargin
	widths := columnWidths(pdf, len(t.Headers))

	if pdf.GetY()+10+2*rowHeight > limit {
		pdf.AddPage()
	}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 9, t.Title, "", 1, "L", false, 0, "")

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(t.Style.HeaderFill.R, t.Style.HeaderFill.G, t.Style.HeaderFill.B)
		pdf.SetTextColor(255, 255, 255)
		for i, h := range t.Headers {
			pdf.CellFormat(widths[i], rowHeight, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	for n, row := range t.Rows {
		if pdf.GetY()+rowHeight > limit {
			pdf.AddPage()
			header()
		}
		fill := t.Style.Striped && n%2 == 1
		if fill {
			pdf.SetFillColor(t.Style.AltRowFill.R, t.Style.AltRowFill.G, t.Style.AltRowFill.B)
		}
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			align := "L"
			if t.RightAlign[i] {
				align = "R"
			}
			text := fitText(pdf, tr(cell), widths[i]-2)
			pdf.CellFormat(widths[i], rowHeight, text, "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fitText trims s with an ellipsis so it fits width. s is already in the
// single-byte code page of the core fonts.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
