package store

import (
	"context"
	"errors"
	"strings"

	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/models"
	"gorm.io/gorm"
)

const maxTaskIDLen = 128

func checkTaskID(op, taskID string) error {
	if strings.TrimSpace(taskID) == "" {
		return invalid(op, "task id is required")
	}
	if len(taskID) > maxTaskIDLen {
		return invalid(op, "task id exceeds %d bytes", maxTaskIDLen)
	}
	return nil
}

// UpsertTaskStatus records state for the task in subprojectID. Statuses
// change only while the Subproject is in build: the mode check is part of
// the UPDATE and the INSERT ... SELECT that write the row, so a write that
// races with completion cannot land afterwards. An existing row for the same
// (subproject, task) pair is updated in place. A duplicate key error means
// another writer inserted the row first; the write is retried once, at
// which point it takes the update path.
func (s *Store) UpsertTaskStatus(ctx context.Context, subprojectID, taskID string, state models.TaskState) (*models.TaskStatus, error) {
	const op = "store: upsert task status"
	if err := checkTaskID(op, taskID); err != nil {
		return nil, err
	}
	if !state.Valid() {
		return nil, invalid(op, "invalid task status %q", state)
	}

	written := false
	for attempt := 0; attempt < 2; attempt++ {
		now := s.now()
		building := s.tx(ctx).Model(&models.Subproject{}).Select("1").
			Where("id = ? AND mode = ?", subprojectID, models.ModeBuild)
		res := s.tx(ctx).Model(&models.TaskStatus{}).
			Where("subproject_id = ? AND task_id = ?", subprojectID, taskID).
			Where("EXISTS (?)", building).
			Updates(map[string]interface{}{"status": state, "updated_at": now})
		if res.Error != nil {
			return nil, classify(op, res.Error)
		}
		if res.RowsAffected > 0 {
			written = true
			break
		}

		res = s.tx(ctx).Exec(
			"INSERT INTO task_status (id, subproject_id, task_id, status, updated_at) "+
				"SELECT ?, ?, ?, ?, ? FROM subprojects WHERE id = ? AND mode = ?",
			newID(), subprojectID, taskID, state, now, subprojectID, models.ModeBuild)
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			continue
		}
		if res.Error != nil {
			return nil, classify(op, res.Error)
		}
		written = res.RowsAffected > 0
		break
	}
	if !written {
		// Nothing matched: the Subproject is gone or not in build, or an
		// unchanged row was not counted as affected.
		if err := s.requireMode(ctx, op, subprojectID, models.ModeBuild); err != nil {
			return nil, err
		}
	}

	var ts models.TaskStatus
	if err := s.tx(ctx).Where("subproject_id = ? AND task_id = ?", subprojectID, taskID).First(&ts).Error; err != nil {
		return nil, lookup(op, "task status", taskID, err)
	}
	return &ts, nil
}

// requireMode returns NotFound when the Subproject is gone and InvalidState
// when it is not in want.
func (s *Store) requireMode(ctx context.Context, op, id string, want models.SubprojectMode) error {
	sp, err := s.GetSubproject(ctx, id)
	if err != nil {
		return err
	}
	if sp.Mode != want {
		return fault.New(fault.InvalidState, op, "subproject %s is %s, not %s", id, sp.Mode, want)
	}
	return nil
}

// ListTaskStatuses returns the recorded task statuses of subprojectID.
func (s *Store) ListTaskStatuses(ctx context.Context, subprojectID string) ([]models.TaskStatus, error) {
	var rows []models.TaskStatus
	if err := s.tx(ctx).Where("subproject_id = ?", subprojectID).Order("task_id ASC").Find(&rows).Error; err != nil {
		return nil, classify("store: list task statuses", err)
	}
	return rows, nil
}

// CreateTaskComment attaches a comment to a task of subprojectID.
func (s *Store) CreateTaskComment(ctx context.Context, subprojectID, taskID, content string) (*models.TaskComment, error) {
	const op = "store: create task comment"
	if err := checkTaskID(op, taskID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, invalid(op, "comment content is required")
	}
	c := models.TaskComment{
		ID:           newID(),
		SubprojectID: subprojectID,
		TaskID:       taskID,
		Content:      content,
		CreatedAt:    s.now(),
	}
	if err := s.tx(ctx).Create(&c).Error; err != nil {
		if isForeignKey(err) {
			return nil, notFound(op, "subproject", subprojectID)
		}
		return nil, classify(op, err)
	}
	return &c, nil
}

// ListTaskComments returns the comments of subprojectID, oldest first.
func (s *Store) ListTaskComments(ctx context.Context, subprojectID string) ([]models.TaskComment, error) {
	var rows []models.TaskComment
	err := s.tx(ctx).Where("subproject_id = ?", subprojectID).Order("created_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, classify("store: list task comments", err)
	}
	return rows, nil
}
