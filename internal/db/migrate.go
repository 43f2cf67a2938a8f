package db

import (
	"fmt"

	"github.com/zulandar/foreman/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Subproject{},
		&models.Note{},
		&models.TaskStatus{},
		&models.TaskComment{},
	}
}

// AutoMigrate creates or updates all tables, including foreign keys with
// ON DELETE CASCADE and the (subproject_id, task_id) unique index.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// OpenSQLite connects to a SQLite database and migrates it in one step.
func OpenSQLite(path string) (*gorm.DB, error) {
	gdb, err := ConnectSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := AutoMigrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
