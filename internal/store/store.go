// Package store handles SQLite persistence of people and attendance.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/rollcall/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// LabelLayout formats one chart label per calendar day.
const LabelLayout = "Jan 02"

// Store wraps SQLite access for attendance data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS people (
			id INTEGER PRIMARY KEY,
			population TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attendance (
			person_id INTEGER NOT NULL REFERENCES people(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			status TEXT NOT NULL,
			remarks TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (person_id, date)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);`,
		`CREATE INDEX IF NOT EXISTS idx_people_population ON people(population);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddPerson stores a student or teacher and returns its id.
func (s *Store) AddPerson(ctx context.Context, pop model.Population, firstName, lastName string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO people (population, first_name, last_name) VALUES (?, ?, ?)`,
		string(pop), firstName, lastName)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListPeople returns everyone of pop ordered by name.
func (s *Store) ListPeople(ctx context.Context, pop model.Population) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, population, first_name, last_name FROM people
		 WHERE population = ?
		 ORDER BY first_name, last_name, id`, string(pop))
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		var population string
		if err := rows.Scan(&p.ID, &population, &p.FirstName, &p.LastName); err != nil {
			return nil, err
		}
		p.Population = model.Population(population)
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return people, nil
}

// InsertAttendance stores marks in one transaction. Existing entries for the
// same person and date are kept unless overwrite is set. It returns the
// number of rows written.
func (s *Store) InsertAttendance(ctx context.Context, marks []model.Mark, overwrite bool) (n int64, err error) {
	if len(marks) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	verb := "INSERT OR IGNORE"
	if overwrite {
		verb = "INSERT OR REPLACE"
	}
	stmt, err := tx.PrepareContext(ctx,
		verb+` INTO attendance (person_id, date, status, remarks) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for _, m := range marks {
		res, err := stmt.ExecContext(ctx, m.PersonID, m.Date, m.Status, m.Remarks)
		if err != nil {
			return 0, fmt.Errorf("failed to insert attendance for %d on %s: %w", m.PersonID, m.Date, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteAttendance removes all entries within rng.
func (s *Store) DeleteAttendance(ctx context.Context, rng model.DateRange) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attendance WHERE date BETWEEN ? AND ?`,
		rng.StartString(), rng.EndString())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SeriesForRange counts present and absent entries per day and population.
// Every day of rng gets a label, with zero counts where nothing was recorded.
func (s *Store) SeriesForRange(ctx context.Context, rng model.DateRange) (model.AttendanceSeries, error) {
	days := rng.Days()
	if days < 1 {
		return model.AttendanceSeries{}, fmt.Errorf("empty date range %s", rng)
	}
	series := model.AttendanceSeries{
		Labels:         make([]string, days),
		StudentPresent: make([]int, days),
		StudentAbsent:  make([]int, days),
		TeacherPresent: make([]int, days),
		TeacherAbsent:  make([]int, days),
		StartDate:      rng.StartString(),
		EndDate:        rng.EndString(),
	}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := rng.Start.AddDate(0, 0, i)
		series.Labels[i] = day.Format(LabelLayout)
		index[day.Format(model.DateLayout)] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.date, p.population, a.status, COUNT(*)
		 FROM attendance a
		 JOIN people p ON p.id = a.person_id
		 WHERE a.date BETWEEN ? AND ? AND a.status IN (?, ?)
		 GROUP BY a.date, p.population, a.status`,
		rng.StartString(), rng.EndString(), model.StatusPresent, model.StatusAbsent)
	if err != nil {
		return model.AttendanceSeries{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	for rows.Next() {
		var date, population, status string
		var count int
		if err := rows.Scan(&date, &population, &status, &count); err != nil {
			return model.AttendanceSeries{}, err
		}
		i, ok := index[date]
		if !ok {
			continue
		}
		switch {
		case population == string(model.Students) && status == model.StatusPresent:
			series.StudentPresent[i] = count
		case population == string(model.Students) && status == model.StatusAbsent:
			series.StudentAbsent[i] = count
		case population == string(model.Teachers) && status == model.StatusPresent:
			series.TeacherPresent[i] = count
		case population == string(model.Teachers) && status == model.StatusAbsent:
			series.TeacherAbsent[i] = count
		}
	}
	if err := rows.Err(); err != nil {
		return model.AttendanceSeries{}, err
	}
	return series, nil
}

// DetailForRange lists entries within rng ordered by date then first name.
func (s *Store) DetailForRange(ctx context.Context, rng model.DateRange) (model.AttendanceDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.date, p.id, p.population, p.first_name, p.last_name, a.status, a.remarks
		 FROM attendance a
		 JOIN people p ON p.id = a.person_id
		 WHERE a.date BETWEEN ? AND ?
		 ORDER BY a.date ASC, p.first_name ASC, p.last_name ASC`,
		rng.StartString(), rng.EndString())
	if err != nil {
		return model.AttendanceDetail{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	detail := model.AttendanceDetail{
		StartDate: rng.StartString(),
		EndDate:   rng.EndString(),
		Students:  []model.DetailRecord{},
		Teachers:  []model.DetailRecord{},
	}
	for rows.Next() {
		var rec model.DetailRecord
		var population string
		if err := rows.Scan(&rec.Date, &rec.PersonID, &population, &rec.FirstName, &rec.LastName, &rec.Status, &rec.Remarks); err != nil {
			return model.AttendanceDetail{}, err
		}
		rec.Population = model.Population(population)
		switch rec.Population {
		case model.Students:
			detail.Students = append(detail.Students, rec)
		case model.Teachers:
			detail.Teachers = append(detail.Teachers, rec)
		default:
			return model.AttendanceDetail{}, fmt.Errorf("unknown population %q for person %d", population, rec.PersonID)
		}
	}
	if err := rows.Err(); err != nil {
		return model.AttendanceDetail{}, err
	}
	return detail, nil
}

// CountAttendance returns the number of stored entries per status.
func (s *Store) CountAttendance(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM attendance GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[strings.ToLower(status)] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
