// Package models defines the GORM entities persisted by Foreman.
package models

import "time"

// ProjectStatus is the rolled-up state of a project, derived from the modes
// of its subprojects.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectComplete   ProjectStatus = "complete"
)

// Valid reports whether s is one of the known project statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectComplete:
		return true
	}
	return false
}

// Project is the top-level container on the dashboard.
type Project struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	Name      string        `gorm:"size:255;not null" json:"name"`
	Status    ProjectStatus `gorm:"size:16;not null;default:planning;index;check:status IN ('planning','in_progress','complete')" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	Subprojects []Subproject `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}
