package store

import (
	"context"
	"strings"

	"github.com/zulandar/foreman/internal/fault"
	"github.com/zulandar/foreman/internal/models"
	"gorm.io/gorm"
)

// CreateSubproject inserts a planned Subproject under projectID.
func (s *Store) CreateSubproject(ctx context.Context, projectID, name string) (*models.Subproject, error) {
	const op = "store: create subproject"
	name, err := cleanName(op, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	unlock := s.hub.lock(projectID)
	defer unlock()

	now := s.now()
	sp := models.Subproject{
		ID:        newID(),
		ProjectID: projectID,
		Name:      name,
		Mode:      models.ModePlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tx(ctx).Create(&sp).Error; err != nil {
		if isForeignKey(err) {
			return nil, notFound(op, "project", projectID)
		}
		return nil, classify(op, err)
	}
	s.emit(SubprojectCreated, &sp)
	return &sp, nil
}

// GetSubproject returns the Subproject with id.
func (s *Store) GetSubproject(ctx context.Context, id string) (*models.Subproject, error) {
	var sp models.Subproject
	if err := s.tx(ctx).Where("id = ?", id).First(&sp).Error; err != nil {
		return nil, lookup("store: get subproject", "subproject", id, err)
	}
	return &sp, nil
}

// ListSubprojects returns the Subprojects of projectID, newest first.
func (s *Store) ListSubprojects(ctx context.Context, projectID string) ([]models.Subproject, error) {
	var sps []models.Subproject
	err := s.tx(ctx).Where("project_id = ?", projectID).Order("created_at DESC, id DESC").Find(&sps).Error
	if err != nil {
		return nil, classify("store: list subprojects", err)
	}
	return sps, nil
}

// UpdateSubprojectName renames the Subproject with id.
func (s *Store) UpdateSubprojectName(ctx context.Context, id, name string) (*models.Subproject, error) {
	const op = "store: rename subproject"
	name, err := cleanName(op, name)
	if err != nil {
		return nil, err
	}
	sp, err := s.GetSubproject(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.hub.lock(sp.ProjectID)
	defer unlock()

	now := s.now()
	res := s.tx(ctx).Model(&models.Subproject{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": now})
	if res.Error != nil {
		return nil, classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound(op, "subproject", id)
	}
	sp.Name = name
	sp.UpdatedAt = now
	s.emit(SubprojectUpdated, sp)
	return sp, nil
}

// DeleteSubproject removes the Subproject with id and everything it owns.
func (s *Store) DeleteSubproject(ctx context.Context, id string) (*models.Subproject, error) {
	const op = "store: delete subproject"
	sp, err := s.GetSubproject(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.hub.lock(sp.ProjectID)
	defer unlock()

	if err := s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteSubprojectRows(tx, []string{id})
	}); err != nil {
		return nil, classify(op, err)
	}
	s.emit(SubprojectDeleted, sp)
	return sp, nil
}

// SetSubprojectMode moves the Subproject with id from mode from to mode to.
// The write is a compare-and-set on the current mode: if the row is no
// longer in from, nothing changes and a Conflict error is returned.
// Callers validate that the transition is permitted.
func (s *Store) SetSubprojectMode(ctx context.Context, id string, from, to models.SubprojectMode) (*models.Subproject, error) {
	return s.setMode(ctx, "store: set subproject mode", id, from, to, nil)
}

// CompleteSubproject moves the Subproject with id from build to complete.
// The UPDATE itself requires at least one task status row and no row that
// is not done, so a status write racing with it either lands first and
// blocks the change or finds the Subproject complete. A miss is a Conflict
// error.
func (s *Store) CompleteSubproject(ctx context.Context, id string) (*models.Subproject, error) {
	return s.setMode(ctx, "store: complete subproject", id, models.ModeBuild, models.ModeComplete,
		func(q *gorm.DB) *gorm.DB {
			rows := s.tx(ctx).Model(&models.TaskStatus{}).Select("1").Where("subproject_id = ?", id)
			open := s.tx(ctx).Model(&models.TaskStatus{}).Select("1").
				Where("subproject_id = ? AND status <> ?", id, models.TaskDone)
			return q.Where("EXISTS (?)", rows).Where("NOT EXISTS (?)", open)
		})
}

// setMode is the guarded UPDATE behind mode changes. guard, when set, adds
// conditions that must hold in the same statement.
func (s *Store) setMode(ctx context.Context, op, id string, from, to models.SubprojectMode, guard func(*gorm.DB) *gorm.DB) (*models.Subproject, error) {
	if !from.Valid() || !to.Valid() {
		return nil, invalid(op, "invalid mode change %q -> %q", from, to)
	}
	sp, err := s.GetSubproject(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.hub.lock(sp.ProjectID)
	defer unlock()

	now := s.now()
	q := s.tx(ctx).Model(&models.Subproject{}).Where("id = ? AND mode = ?", id, from)
	if guard != nil {
		q = guard(q)
	}
	res := q.Updates(map[string]interface{}{"mode": to, "updated_at": now})
	if res.Error != nil {
		return nil, classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.casMiss(ctx, op, id, from)
	}
	sp.Mode = to
	sp.UpdatedAt = now
	s.emit(SubprojectUpdated, sp)
	return sp, nil
}

// SetArtifacts writes the PRD, the task markdown and the new mode in one
// UPDATE guarded on the Subproject still being planned. Either all three
// fields change or none do.
func (s *Store) SetArtifacts(ctx context.Context, id, prd, tasks string, mode models.SubprojectMode) (*models.Subproject, error) {
	const op = "store: set artifacts"
	if strings.TrimSpace(prd) == "" || strings.TrimSpace(tasks) == "" {
		return nil, invalid(op, "prd and tasks markdown must both be non-empty")
	}
	if mode == models.ModePlanned || !mode.Valid() {
		return nil, invalid(op, "artifacts cannot be written with mode %q", mode)
	}
	sp, err := s.GetSubproject(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.hub.lock(sp.ProjectID)
	defer unlock()

	now := s.now()
	res := s.tx(ctx).Model(&models.Subproject{}).
		Where("id = ? AND mode = ?", id, models.ModePlanned).
		Updates(map[string]interface{}{
			"prd_markdown":   prd,
			"tasks_markdown": tasks,
			"mode":           mode,
			"updated_at":     now,
		})
	if res.Error != nil {
		return nil, classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.casMiss(ctx, op, id, models.ModePlanned)
	}
	sp.PRDMarkdown = &prd
	sp.TasksMarkdown = &tasks
	sp.Mode = mode
	sp.UpdatedAt = now
	s.emit(SubprojectUpdated, sp)
	return sp, nil
}

// casMiss explains a guarded update that matched no row.
func (s *Store) casMiss(ctx context.Context, op, id string, want models.SubprojectMode) error {
	cur, err := s.GetSubproject(ctx, id)
	if err != nil {
		return err
	}
	if cur.Mode == want {
		return fault.New(fault.Conflict, op, "subproject %s is %s but the update condition does not hold", id, cur.Mode)
	}
	return fault.New(fault.Conflict, op, "subproject %s is %s, expected %s", id, cur.Mode, want)
}
