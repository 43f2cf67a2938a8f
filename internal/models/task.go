package models

import "time"

// TaskState is the tracked state of one parsed task.
type TaskState string

const (
	TaskTodo       TaskState = "todo"
	TaskInProgress TaskState = "in_progress"
	TaskDone       TaskState = "done"
)

// Valid reports whether s is a known task state.
func (s TaskState) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// TaskStatus records the state of a task identified by the markdown parser.
// Rows are created lazily; a task without a row is todo.
type TaskStatus struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubprojectID string    `gorm:"size:36;not null;uniqueIndex:idx_task_status_subproject_task,priority:1" json:"subproject_id"`
	TaskID       string    `gorm:"size:128;not null;uniqueIndex:idx_task_status_subproject_task,priority:2" json:"task_id"`
	Status       TaskState `gorm:"size:16;not null;default:todo;check:status IN ('todo','in_progress','done')" json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the singular table name used by the persisted layout.
func (TaskStatus) TableName() string { return "task_status" }

// TaskComment is a freeform comment attached to a parsed task.
type TaskComment struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubprojectID string    `gorm:"size:36;not null;index:idx_task_comments_subproject_task,priority:1" json:"subproject_id"`
	TaskID       string    `gorm:"size:128;not null;index:idx_task_comments_subproject_task,priority:2" json:"task_id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}
