package models

import "time"

// SubprojectMode is the lifecycle position of a subproject.
type SubprojectMode string

const (
	ModePlanned  SubprojectMode = "planned"
	ModeBuild    SubprojectMode = "build"
	ModeComplete SubprojectMode = "complete"
)

// Valid reports whether m is one of the known subproject modes.
func (m SubprojectMode) Valid() bool {
	switch m {
	case ModePlanned, ModeBuild, ModeComplete:
		return true
	}
	return false
}

// Subproject is the unit of planning and building. PRDMarkdown and
// TasksMarkdown are nil while the subproject is planned and are written
// together when it enters build.
type Subproject struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	ProjectID     string         `gorm:"size:36;not null;index" json:"project_id"`
	Name          string         `gorm:"size:255;not null" json:"name"`
	Mode          SubprojectMode `gorm:"size:16;not null;default:planned;index;check:mode IN ('planned','build','complete')" json:"mode"`
	PRDMarkdown   *string        `gorm:"column:prd_markdown;type:mediumtext" json:"prd_markdown"`
	TasksMarkdown *string        `gorm:"column:tasks_markdown;type:mediumtext" json:"tasks_markdown"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	Notes        []Note        `gorm:"foreignKey:SubprojectID;constraint:OnDelete:CASCADE" json:"-"`
	TaskStatuses []TaskStatus  `gorm:"foreignKey:SubprojectID;constraint:OnDelete:CASCADE" json:"-"`
	Comments     []TaskComment `gorm:"foreignKey:SubprojectID;constraint:OnDelete:CASCADE" json:"-"`
}

// HasArtifacts reports whether both the PRD and the task markdown are present
// and non-empty.
func (s *Subproject) HasArtifacts() bool {
	return s.PRDMarkdown != nil && *s.PRDMarkdown != "" &&
		s.TasksMarkdown != nil && *s.TasksMarkdown != ""
}
