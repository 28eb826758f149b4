package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/rollcall/internal/config"
	"github.com/verte-zerg/rollcall/internal/store"
)

func runSeed(t *testing.T, args ...string) {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"seed"}, args...))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("seed %v: %v", args, err)
	}
}

func storedEntries(t *testing.T, path string) int {
	t.Helper()
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			t.Fatalf("close: %v", cerr)
		}
	}()
	counts, err := st.CountAttendance(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

func TestSeedOverwriteClearsWindow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvLogLevel, "")
	db := filepath.Join(dir, "seed.db")
	args := []string{"--db", db, "--students", "3", "--teachers", "1", "--days", "14", "--seed", "7", "--log-level", "error"}

	runSeed(t, args...)
	first := storedEntries(t, db)
	if first == 0 {
		t.Fatalf("expected seeded entries")
	}

	runSeed(t, append(args, "--overwrite", "--seed", "8")...)
	if got := storedEntries(t, db); got != first {
		t.Fatalf("expected %d entries after overwrite, got %d", first, got)
	}
}

func TestFormatStatusCounts(t *testing.T) {
	got := formatStatusCounts(map[string]int{"present": 5, "absent": 2, "excused": 1, "early": 1})
	want := "Stored: 9 (present=5, absent=2, late=0, half_day=0, early=1, excused=1)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
