// Package generator builds sample people and attendance for a backend.
package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/rollcall/internal/model"
)

// Weights gives the relative likelihood of each status.
type Weights struct {
	Present float64
	Absent  float64
	Late    float64
	HalfDay float64
}

// Default status weights per population.
var (
	StudentWeights = Weights{Present: 0.80, Absent: 0.15, Late: 0.03, HalfDay: 0.02}
	TeacherWeights = Weights{Present: 0.90, Absent: 0.07, Late: 0.02, HalfDay: 0.01}
)

var (
	firstNames = []string{
		"Aarav", "Ananya", "Arjun", "Diya", "Ishaan", "Kavya", "Meera", "Neha",
		"Nikhil", "Priya", "Rahul", "Riya", "Rohan", "Saanvi", "Tara", "Vivaan",
	}
	lastNames = []string{
		"Bose", "Das", "Gupta", "Iyer", "Joshi", "Kapoor", "Mehta", "Nair",
		"Patel", "Rao", "Reddy", "Shah", "Sharma", "Singh", "Verma",
	}
)

// Generator produces randomized attendance data.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Name returns a random first and last name.
func (g *Generator) Name() (string, string) {
	return firstNames[g.rnd.Intn(len(firstNames))], lastNames[g.rnd.Intn(len(lastNames))]
}

// Status draws a status using w.
func (g *Generator) Status(w Weights) string {
	choices := []struct {
		status string
		weight float64
	}{
		{model.StatusPresent, w.Present},
		{model.StatusAbsent, w.Absent},
		{model.StatusLate, w.Late},
		{model.StatusHalfDay, w.HalfDay},
	}
	total := 0.0
	for _, c := range choices {
		total += c.weight
	}
	if total <= 0 {
		return model.StatusPresent
	}
	r := g.rnd.Float64() * total
	acc := 0.0
	for _, c := range choices {
		acc += c.weight
		if r < acc {
			return c.status
		}
	}
	return choices[len(choices)-1].status
}

// Marks generates one entry per person per weekday of rng. Non-present
// entries carry a remark naming the status and date.
func (g *Generator) Marks(people []model.Person, rng model.DateRange, w Weights) []model.Mark {
	var marks []model.Mark
	for day := rng.Start; !day.After(rng.End); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		date := day.Format(model.DateLayout)
		for _, p := range people {
			status := g.Status(w)
			remarks := ""
			if status != model.StatusPresent {
				remarks = fmt.Sprintf("%s %s on %s", roleName(p.Population), status, date)
			}
			marks = append(marks, model.Mark{PersonID: p.ID, Date: date, Status: status, Remarks: remarks})
		}
	}
	return marks
}

func roleName(pop model.Population) string {
	if pop == model.Teachers {
		return "Teacher"
	}
	return "Student"
}
