package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/chart"
	"github.com/verte-zerg/rollcall/internal/dashboard"
	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/report"
)

const chartTitle = "Attendance Overview"

var (
	showWidth  int
	showHeight int
	showDetail bool
	showColor  bool

	htmlOut string
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the attendance chart for a date range",
		Args:  cobra.NoArgs,
		RunE:  runShowCmd,
	}
	addRangeFlags(cmd)
	cmd.Flags().IntVar(&showWidth, "width", 0, "chart width in columns (0 = terminal width)")
	cmd.Flags().IntVar(&showHeight, "height", 10, "chart height in rows")
	cmd.Flags().BoolVar(&showDetail, "detail", false, "also print per-person tables and the summary")
	cmd.Flags().BoolVar(&showColor, "color", false, "force ANSI colors")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a PDF attendance report",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	addRangeFlags(cmd)
	cmd.Flags().StringVar(&exportOutputDir, "output-dir", defaultOutputDir, "directory for the report")
	cmd.Flags().BoolVar(&exportChart, "chart", true, "embed the attendance chart")
	return cmd
}

func newHTMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "html",
		Short: "Write the attendance chart as an interactive HTML page",
		Args:  cobra.NoArgs,
		RunE:  runHTMLCmd,
	}
	addRangeFlags(cmd)
	cmd.Flags().StringVarP(&htmlOut, "out", "o", "attendance.html", "output file")
	return cmd
}

// cliSession resolves config and loads the requested range into a session.
func cliSession(cmd *cobra.Command) (*dashboard.Session, *api.Client, model.Config, *zap.Logger, error) {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return nil, nil, model.Config{}, nil, err
	}
	cfg, err := resolveConfig(cmd, fileCfg)
	if err != nil {
		return nil, nil, model.Config{}, nil, err
	}
	log, err := newLogger("")
	if err != nil {
		return nil, nil, model.Config{}, nil, err
	}
	client := api.NewClient(cfg.BaseURL, cfg.Timeout)
	session := dashboard.NewSession(client, nil, log.Named("session"))
	if err := session.SetView(cfg.View); err != nil {
		return nil, nil, model.Config{}, nil, err
	}
	return session, client, cfg, log, nil
}

func refresh(cmd *cobra.Command, session *dashboard.Session, cfg model.Config) (model.AttendanceSeries, error) {
	start, end := resolveDates(dashStart, dashEnd, cfg.Days)
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()
	series, err := session.RequestRefresh(ctx, start, end)
	if err != nil {
		return model.AttendanceSeries{}, fmt.Errorf("failed to load attendance: %w", err)
	}
	return series, nil
}

func runShowCmd(cmd *cobra.Command, _ []string) error {
	session, client, cfg, log, err := cliSession(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	series, err := refresh(cmd, session, cfg)
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		logErrf("no attendance between %s and %s\n", series.StartDate, series.EndDate)
		return nil
	}

	renderer := chart.NewTextRenderer(os.Stdout, chartTitle, 0, showHeight, showColor)
	if showWidth > 0 {
		renderer.SetWidth(showWidth)
	}
	if err := chart.Apply(renderer, series, session.View()); err != nil {
		return fmt.Errorf("failed to draw chart: %w", err)
	}
	if !showDetail {
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()
	detail, err := client.FetchDetail(ctx, session.Range())
	if err != nil {
		return fmt.Errorf("failed to load attendance detail: %w", err)
	}
	if _, err := fmt.Fprintln(os.Stdout); err != nil {
		return err
	}
	return report.WriteText(os.Stdout, report.Tables(detail))
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	session, client, cfg, log, err := cliSession(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	start, end := resolveDates(dashStart, dashEnd, cfg.Days)
	var chartSeries func() model.AttendanceSeries
	if cfg.Chart {
		// The chart is optional in the report; export without it when the
		// series endpoint is unavailable.
		if _, err := refresh(cmd, session, cfg); err != nil {
			log.Warn("exporting without chart", zap.Error(err))
		} else {
			chartSeries = session.Series
		}
	}

	exporter := report.NewExporter(client, report.Options{
		OutputDir:   cfg.OutputDir,
		ChartSeries: chartSeries,
		Logger:      log.Named("export"),
	})
	artifact, err := exporter.Export(cmd.Context(), start, end)
	if err != nil {
		return err
	}
	if artifact == nil {
		return fmt.Errorf("export already in progress")
	}
	fmt.Println(artifact.Path)
	return nil
}

func runHTMLCmd(cmd *cobra.Command, _ []string) error {
	session, _, cfg, log, err := cliSession(cmd)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	series, err := refresh(cmd, session, cfg)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := chart.Apply(chart.NewHTMLRenderer(&buf, chartTitle), series, session.View()); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if dir := filepath.Dir(htmlOut); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(htmlOut, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	fmt.Println(htmlOut)
	return nil
}
