package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/chart"
	"github.com/verte-zerg/rollcall/internal/model"
)

// ExportError reports the export step that failed.
type ExportError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExportError) Unwrap() error {
	return e.Err
}

// DetailFetcher loads record-level attendance for a validated range.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, rng model.DateRange) (model.AttendanceDetail, error)
}

// Artifact describes a saved report.
type Artifact struct {
	Path     string
	Filename string
	Size     int64
	Range    model.DateRange
	Summary  Summary
}

// Options configures an Exporter. Zero values pick defaults.
type Options struct {
	OutputDir string
	Composer  Composer
	// ChartSeries, when set, supplies the aggregate series drawn above the
	// tables. Series with fewer than two labels are skipped.
	ChartSeries func() model.AttendanceSeries
	Logger      *zap.Logger
	Now         func() time.Time
}

// Exporter produces one report at a time.
type Exporter struct {
	fetcher  DetailFetcher
	composer Composer
	outDir   string
	series   func() model.AttendanceSeries
	log      *zap.Logger
	now      func() time.Time

	running atomic.Bool
}

// NewExporter returns an exporter fetching from fetcher.
func NewExporter(fetcher DetailFetcher, opts Options) *Exporter {
	e := &Exporter{
		fetcher:  fetcher,
		composer: opts.Composer,
		outDir:   opts.OutputDir,
		series:   opts.ChartSeries,
		log:      opts.Logger,
		now:      opts.Now,
	}
	if e.composer == nil {
		e.composer = PDFComposer{}
	}
	if e.outDir == "" {
		e.outDir = "."
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Running reports whether an export is in flight.
func (e *Exporter) Running() bool {
	return e.running.Load()
}

// Export builds and saves the report for the range. It returns nil, nil
// without doing anything when another export is still running.
func (e *Exporter) Export(ctx context.Context, startDate, endDate string) (*Artifact, error) {
	if !e.running.CompareAndSwap(false, true) {
		e.log.Info("export already running, ignoring request")
		return nil, nil
	}
	defer e.running.Store(false)

	rng, err := api.ParseRange(startDate, endDate)
	if err != nil {
		return nil, &ExportError{Op: "validate", Err: err}
	}

	e.log.Info("export started", zap.String("range", rng.String()))
	detail, err := e.fetcher.FetchDetail(ctx, rng)
	if err != nil {
		e.log.Warn("export fetch failed", zap.Error(err))
		return nil, &ExportError{Op: "fetch", Err: err}
	}

	doc := Document{
		Range:       rng,
		Tables:      Tables(detail),
		Chart:       e.chartImage(),
		GeneratedAt: e.now(),
	}
	data, err := e.composer.Compose(doc)
	if err != nil {
		return nil, &ExportError{Op: "compose", Err: err}
	}

	name := Filename(rng.StartString(), rng.EndString())
	path, err := writeAtomic(e.outDir, name, data)
	if err != nil {
		return nil, &ExportError{Op: "save", Err: err}
	}
	e.log.Info("export saved", zap.String("path", path), zap.Int("bytes", len(data)))
	return &Artifact{
		Path:     path,
		Filename: name,
		Size:     int64(len(data)),
		Range:    rng,
		Summary:  Summarize(detail),
	}, nil
}

func (e *Exporter) chartImage() []byte {
	if e.series == nil {
		return nil
	}
	series := e.series()
	if series.Len() < 2 {
		return nil
	}
	var buf bytes.Buffer
	r := chart.NewPNGRenderer(&buf, "Attendance Overview", 1200, 600)
	if err := chart.Apply(r, series, model.ViewAll); err != nil {
		e.log.Warn("skipping report chart", zap.Error(err))
		return nil
	}
	return buf.Bytes()
}

func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, ".rollcall-*.pdf.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		_ = tmpFile.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp report: %w", err)
	}
	dest := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to move report into place: %w", err)
	}
	committed = true
	return dest, nil
}
