package store

import (
	"context"
	"strings"

	"github.com/zulandar/foreman/internal/models"
	"gorm.io/gorm"
)

// maxNameLen matches the size of the name columns.
const maxNameLen = 255

func cleanName(op, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(op, "name is required")
	}
	if len(name) > maxNameLen {
		return "", invalid(op, "name exceeds %d bytes", maxNameLen)
	}
	return name, nil
}

// CreateProject inserts a Project in planning status.
func (s *Store) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	const op = "store: create project"
	name, err := cleanName(op, name)
	if err != nil {
		return nil, err
	}
	now := s.now()
	p := models.Project{
		ID:        newID(),
		Name:      name,
		Status:    models.ProjectPlanning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tx(ctx).Create(&p).Error; err != nil {
		return nil, classify(op, err)
	}
	return &p, nil
}

// GetProject returns the Project with id.
func (s *Store) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := s.tx(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, lookup("store: get project", "project", id, err)
	}
	return &p, nil
}

// ListProjects returns every Project, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := s.tx(ctx).Order("created_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, classify("store: list projects", err)
	}
	return projects, nil
}

// ListProjectsByStatus returns the Projects in status, newest first.
func (s *Store) ListProjectsByStatus(ctx context.Context, status models.ProjectStatus) ([]models.Project, error) {
	const op = "store: list projects by status"
	if !status.Valid() {
		return nil, invalid(op, "invalid project status %q", status)
	}
	var projects []models.Project
	err := s.tx(ctx).Where("status = ?", status).Order("created_at DESC, id DESC").Find(&projects).Error
	if err != nil {
		return nil, classify(op, err)
	}
	return projects, nil
}

// UpdateProject renames the Project with id.
func (s *Store) UpdateProject(ctx context.Context, id, name string) (*models.Project, error) {
	const op = "store: update project"
	name, err := cleanName(op, name)
	if err != nil {
		return nil, err
	}
	res := s.tx(ctx).Model(&models.Project{}).Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "updated_at": s.now()})
	if res.Error != nil {
		return nil, classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound(op, "project", id)
	}
	return s.GetProject(ctx, id)
}

// SetProjectStatus writes the derived status of the Project with id.
// Only the lifecycle rollup calls this.
func (s *Store) SetProjectStatus(ctx context.Context, id string, status models.ProjectStatus) error {
	const op = "store: set project status"
	if !status.Valid() {
		return invalid(op, "invalid project status %q", status)
	}
	res := s.tx(ctx).Model(&models.Project{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": s.now()})
	if res.Error != nil {
		return classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(op, "project", id)
	}
	return nil
}

// DeleteProject removes the Project and every descendant row in one
// transaction. Foreign keys cascade as well; the explicit deletes keep
// engines without enforced foreign keys free of orphans.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	const op = "store: delete project"
	unlock := s.hub.lock(id)
	defer unlock()

	var removed []models.Subproject
	err := s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Project
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return lookup(op, "project", id, err)
		}
		if err := tx.Where("project_id = ?", id).Find(&removed).Error; err != nil {
			return err
		}
		if err := deleteSubprojectRows(tx, subprojectIDs(removed)); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Project{}).Error
	})
	if err != nil {
		return classify(op, err)
	}
	for i := range removed {
		s.emit(SubprojectDeleted, &removed[i])
	}
	return nil
}

func subprojectIDs(sps []models.Subproject) []string {
	ids := make([]string, len(sps))
	for i, sp := range sps {
		ids[i] = sp.ID
	}
	return ids
}

// deleteSubprojectRows removes subprojects and everything they own.
func deleteSubprojectRows(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	children := []interface{}{&models.TaskComment{}, &models.TaskStatus{}, &models.Note{}}
	for _, m := range children {
		if err := tx.Where("subproject_id IN ?", ids).Delete(m).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", ids).Delete(&models.Subproject{}).Error
}
