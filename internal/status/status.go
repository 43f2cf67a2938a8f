// Package status derives subproject modes and project statuses from their
// children. Every function is pure.
package status

import (
	"math"

	"github.com/zulandar/foreman/internal/models"
)

// SubprojectMode is the mode implied by a subproject's task statuses:
// complete when every status is done, build otherwise. No statuses means
// build, since a subproject with artifacts and no progress is in build.
func SubprojectMode(statuses []models.TaskStatus) models.SubprojectMode {
	if len(statuses) == 0 {
		return models.ModeBuild
	}
	for _, ts := range statuses {
		if ts.Status != models.TaskDone {
			return models.ModeBuild
		}
	}
	return models.ModeComplete
}

// ProjectStatus is the rollup of subproject modes.
func ProjectStatus(subprojects []models.Subproject) models.ProjectStatus {
	modes := make([]models.SubprojectMode, len(subprojects))
	for i, sp := range subprojects {
		modes[i] = sp.Mode
	}
	return FromModes(modes)
}

// FromModes applies the rollup to bare modes: no children or all planned is
// planning, all complete is complete, anything else is in progress.
func FromModes(modes []models.SubprojectMode) models.ProjectStatus {
	if len(modes) == 0 {
		return models.ProjectPlanning
	}
	allPlanned, allComplete := true, true
	for _, m := range modes {
		if m != models.ModePlanned {
			allPlanned = false
		}
		if m != models.ModeComplete {
			allComplete = false
		}
	}
	switch {
	case allComplete:
		return models.ProjectComplete
	case allPlanned:
		return models.ProjectPlanning
	default:
		return models.ProjectInProgress
	}
}

// CompletionPercent is round(100 * done / total), or 0 with no statuses.
func CompletionPercent(statuses []models.TaskStatus) int {
	if len(statuses) == 0 {
		return 0
	}
	c := CountByStatus(statuses)
	return int(math.Round(100 * float64(c.Done) / float64(c.Total)))
}

// Counts tallies task statuses.
type Counts struct {
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Total      int `json:"total"`
}

// CountByStatus counts statuses per state.
func CountByStatus(statuses []models.TaskStatus) Counts {
	c := Counts{Total: len(statuses)}
	for _, ts := range statuses {
		switch ts.Status {
		case models.TaskTodo:
			c.Todo++
		case models.TaskInProgress:
			c.InProgress++
		case models.TaskDone:
			c.Done++
		}
	}
	return c
}
