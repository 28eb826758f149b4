// Package chart maps view modes to series visibility and renders attendance
// series as terminal plots, HTML pages, and PNG images.
package chart

import (
	"strings"

	"github.com/verte-zerg/rollcall/internal/model"
)

var viewModes = []model.ViewMode{
	model.ViewAll,
	model.ViewStudents,
	model.ViewTeachers,
	model.ViewPresent,
	model.ViewAbsent,
}

// ComputeVisibility returns which series are shown for mode. Unknown modes
// show everything.
func ComputeVisibility(mode model.ViewMode) model.Visibility {
	switch mode {
	case model.ViewStudents:
		return model.Visibility{StudentPresent: true, StudentAbsent: true}
	case model.ViewTeachers:
		return model.Visibility{TeacherPresent: true, TeacherAbsent: true}
	case model.ViewPresent:
		return model.Visibility{StudentPresent: true, TeacherPresent: true}
	case model.ViewAbsent:
		return model.Visibility{StudentAbsent: true, TeacherAbsent: true}
	default:
		return model.Visibility{StudentPresent: true, StudentAbsent: true, TeacherPresent: true, TeacherAbsent: true}
	}
}

// ViewModes lists the selectable modes in display order.
func ViewModes() []model.ViewMode {
	return append([]model.ViewMode(nil), viewModes...)
}

// ParseViewMode normalizes user input; unknown values become ViewAll.
func ParseViewMode(s string) model.ViewMode {
	mode := model.ViewMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range viewModes {
		if m == mode {
			return m
		}
	}
	return model.ViewAll
}

// ValidViewMode reports whether s names a known mode.
func ValidViewMode(s string) bool {
	mode := model.ViewMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range viewModes {
		if m == mode {
			return true
		}
	}
	return false
}

// NextViewMode cycles through the modes by delta steps.
func NextViewMode(mode model.ViewMode, delta int) model.ViewMode {
	idx := 0
	for i, m := range viewModes {
		if m == mode {
			idx = i
			break
		}
	}
	n := len(viewModes)
	idx = ((idx+delta)%n + n) % n
	return viewModes[idx]
}
