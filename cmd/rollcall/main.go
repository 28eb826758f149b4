// Package main provides the CLI entrypoint for rollcall.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/api"
	"github.com/verte-zerg/rollcall/internal/chart"
	"github.com/verte-zerg/rollcall/internal/config"
	"github.com/verte-zerg/rollcall/internal/dashboard"
	"github.com/verte-zerg/rollcall/internal/dashboardui"
	"github.com/verte-zerg/rollcall/internal/logging"
	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/report"
)

const (
	defaultBaseURL   = "http://localhost:8000"
	defaultTimeout   = 15 * time.Second
	defaultView      = "all"
	defaultDays      = 7
	defaultOutputDir = "."
	defaultLogLevel  = "info"
)

var (
	apiURL     string
	apiTimeout time.Duration
	logLevel   string
	logFile    string

	dashView  string
	dashDays  int
	dashStart string
	dashEnd   string

	exportOutputDir string
	exportChart     bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rollcall",
		Short:         "Attendance charts and reports",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runDashboardCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", defaultBaseURL, "attendance API base URL")
	flags.DurationVar(&apiTimeout, "timeout", defaultTimeout, "request timeout")
	flags.StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	addRangeFlags(rootCmd)
	rootCmd.Flags().StringVar(&exportOutputDir, "output-dir", defaultOutputDir, "directory for exported reports")
	rootCmd.Flags().BoolVar(&exportChart, "chart", true, "embed the attendance chart in exported reports")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newHTMLCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSeedCmd())

	return rootCmd
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dashView, "view", defaultView, "view mode (all, students, teachers, present, absent)")
	cmd.Flags().IntVar(&dashDays, "days", defaultDays, "days to load when no range is given")
	cmd.Flags().StringVar(&dashStart, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dashEnd, "end", "", "end date (YYYY-MM-DD)")
}

// loadFileConfig reads the TOML config and applies .env and environment
// overrides.
func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadEnv(&fileCfg); err != nil {
		return config.FileConfig{}, err
	}
	return fileCfg, nil
}

// resolveConfig merges config file values into flags that were not set.
func resolveConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.Config, error) {
	applyStringConfig(cmd, "api-url", &apiURL, fileCfg.API.BaseURL)
	applyDurationConfig(cmd, "timeout", &apiTimeout, fileCfg.API.Timeout)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	applyStringConfig(cmd, "view", &dashView, fileCfg.Dashboard.View)
	applyIntConfig(cmd, "days", &dashDays, fileCfg.Dashboard.Days)
	applyStringConfig(cmd, "output-dir", &exportOutputDir, fileCfg.Report.OutputDir)
	applyBoolConfig(cmd, "chart", &exportChart, fileCfg.Report.Chart)

	cfg := model.Config{
		BaseURL:   strings.TrimSpace(apiURL),
		Timeout:   apiTimeout,
		View:      chart.ParseViewMode(dashView),
		Days:      dashDays,
		OutputDir: exportOutputDir,
		Chart:     exportChart,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("--api-url must not be empty")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return fmt.Errorf("--api-url must start with http:// or https://")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if cfg.Days <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	if !chart.ValidViewMode(dashView) {
		return fmt.Errorf("unknown view %q (use all, students, teachers, present or absent)", dashView)
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return fmt.Errorf("--output-dir must not be empty")
	}
	return nil
}

// resolveDates returns the requested range, or the last days days when
// neither date is given. Partial ranges are passed through and rejected by
// range validation.
func resolveDates(start, end string, days int) (string, string) {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		rng := model.LastDays(time.Now(), days)
		return rng.StartString(), rng.EndString()
	}
	return start, end
}

func newLogger(defaultPath string) (*zap.Logger, error) {
	path := logFile
	if path == "" {
		path = defaultPath
	}
	log, err := logging.New(logLevel, path)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return log, nil
}

func syncLogger(log *zap.Logger) {
	if err := log.Sync(); err != nil {
		// stderr cannot be synced on some platforms.
		_ = err
	}
}

func runDashboardCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd, fileCfg)
	if err != nil {
		return err
	}
	// The alternate screen owns stdout and stderr; log to a file.
	log, err := newLogger(config.DefaultLogPath())
	if err != nil {
		return err
	}
	defer syncLogger(log)

	client := api.NewClient(cfg.BaseURL, cfg.Timeout)
	session := dashboard.NewSession(client, nil, log.Named("session"))
	if err := session.SetView(cfg.View); err != nil {
		return err
	}
	var chartSeries func() model.AttendanceSeries
	if cfg.Chart {
		chartSeries = session.Series
	}
	exporter := report.NewExporter(client, report.Options{
		OutputDir:   cfg.OutputDir,
		ChartSeries: chartSeries,
		Logger:      log.Named("export"),
	})

	start, end := resolveDates(dashStart, dashEnd, cfg.Days)
	if _, err := api.ParseRange(start, end); err != nil {
		return err
	}
	log.Info("starting dashboard", zap.String("api", cfg.BaseURL), zap.String("start", start), zap.String("end", end))
	ui := dashboardui.NewModel(session, exporter, dashboardui.Options{
		StartDate: start,
		EndDate:   end,
		Timeout:   cfg.Timeout,
		Logger:    log.Named("ui"),
	})
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# rollcall configuration
# Uncomment a value to enable it. CLI flags override config values.
# %s and %s in the environment or a .env file override this file.

[api]
# base-url = %q    # Attendance API base URL
# timeout = %q                      # Per-request timeout

[dashboard]
# view = %q        # all, students, teachers, present, absent
# days = %d          # Days loaded when no range is given

[report]
# output-dir = %q    # Where exported PDFs are saved
# chart = true       # Embed the attendance chart

[server]
# addr = %q
# db = %q

[log]
# level = %q
# file = ""          # Empty logs to stderr (the dashboard logs to %s)
`,
		config.EnvAPIURL,
		config.EnvLogLevel,
		defaultBaseURL,
		defaultTimeout.String(),
		defaultView,
		defaultDays,
		defaultOutputDir,
		defaultServeAddr,
		config.DefaultDBPath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = *value
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *config.Duration) {
	if value == nil {
		return
	}
	if flag := cmd.Flags().Lookup(name); flag == nil || flag.Changed {
		return
	}
	*target = value.Duration
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
