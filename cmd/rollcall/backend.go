package main

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/rollcall/internal/config"
	"github.com/verte-zerg/rollcall/internal/generator"
	"github.com/verte-zerg/rollcall/internal/model"
	"github.com/verte-zerg/rollcall/internal/server"
	"github.com/verte-zerg/rollcall/internal/store"
)

const defaultServeAddr = "127.0.0.1:8000"

var (
	serveAddr    string
	serveOrigins []string
	dbPath       string

	seedStudents  int
	seedTeachers  int
	seedDays      int
	seedOverwrite bool
	seedValue     int64
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored attendance over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultServeAddr, "listen address")
	cmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "CORS origins (default allows all)")
	cmd.Flags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path to SQLite database")
	return cmd
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with sample attendance",
		Args:  cobra.NoArgs,
		RunE:  runSeedCmd,
	}
	cmd.Flags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path to SQLite database")
	cmd.Flags().IntVar(&seedStudents, "students", 30, "students to ensure exist")
	cmd.Flags().IntVar(&seedTeachers, "teachers", 5, "teachers to ensure exist")
	cmd.Flags().IntVar(&seedDays, "days", 30, "days of attendance to generate, ending today")
	cmd.Flags().BoolVar(&seedOverwrite, "overwrite", false, "clear existing entries in the window before seeding")
	cmd.Flags().Int64Var(&seedValue, "seed", 0, "random seed (0 = time based)")
	return cmd
}

// backendLogger resolves the shared log settings for backend commands.
func backendLogger(cmd *cobra.Command, fileCfg config.FileConfig) (*zap.Logger, error) {
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	applyStringConfig(cmd, "db", &dbPath, fileCfg.Server.DB)
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("--db must not be empty")
	}
	return newLogger("")
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	log, err := backendLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			// Best-effort close on exit.
			_ = cerr
		}
	}()

	if logLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(st, server.Options{
		Logger:       log.Named("http"),
		AllowOrigins: serveOrigins,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("serving attendance", zap.String("addr", serveAddr), zap.String("db", dbPath))
	return server.Run(ctx, serveAddr, router, log)
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	if seedStudents < 0 || seedTeachers < 0 {
		return fmt.Errorf("--students and --teachers must be >= 0")
	}
	if seedDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	log, err := backendLogger(cmd, fileCfg)
	if err != nil {
		return err
	}
	defer syncLogger(log)

	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			// Best-effort close on exit.
			_ = cerr
		}
	}()

	gen := generator.New()
	if seedValue != 0 {
		gen = generator.NewSeeded(seedValue)
	}
	ctx := cmd.Context()
	rng := model.LastDays(time.Now(), seedDays)

	if seedOverwrite {
		removed, err := st.DeleteAttendance(ctx, rng)
		if err != nil {
			return fmt.Errorf("failed to clear attendance: %w", err)
		}
		log.Info("cleared attendance", zap.String("range", rng.String()), zap.Int64("entries", removed))
	}

	var total int64
	for _, group := range []struct {
		pop     model.Population
		want    int
		weights generator.Weights
	}{
		{model.Students, seedStudents, generator.StudentWeights},
		{model.Teachers, seedTeachers, generator.TeacherWeights},
	} {
		people, err := st.ListPeople(ctx, group.pop)
		if err != nil {
			return err
		}
		for len(people) < group.want {
			first, last := gen.Name()
			id, err := st.AddPerson(ctx, group.pop, first, last)
			if err != nil {
				return err
			}
			people = append(people, model.Person{ID: id, Population: group.pop, FirstName: first, LastName: last})
		}
		n, err := st.InsertAttendance(ctx, gen.Marks(people, rng, group.weights), seedOverwrite)
		if err != nil {
			return err
		}
		log.Info("seeded attendance",
			zap.String("population", string(group.pop)),
			zap.Int("people", len(people)),
			zap.Int64("entries", n))
		total += n
	}
	counts, err := st.CountAttendance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d attendance entries for %s into %s\n", total, rng, dbPath)
	fmt.Println(formatStatusCounts(counts))
	return nil
}

// formatStatusCounts summarizes stored entries per status in a fixed order.
func formatStatusCounts(counts map[string]int) string {
	statuses := []string{model.StatusPresent, model.StatusAbsent, model.StatusLate, model.StatusHalfDay}
	parts := make([]string, 0, len(counts))
	total := 0
	for _, status := range statuses {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
		total += counts[status]
	}
	var others []string
	for status := range counts {
		if !slices.Contains(statuses, status) {
			others = append(others, status)
		}
	}
	slices.Sort(others)
	for _, status := range others {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
		total += counts[status]
	}
	return fmt.Sprintf("Stored: %d (%s)", total, strings.Join(parts, ", "))
}
