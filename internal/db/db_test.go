package db

import (
	"strings"
	"testing"

	"github.com/zulandar/foreman/internal/config"
	"github.com/zulandar/foreman/internal/models"
	"gorm.io/gorm"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		host     string
		port     int
		database string
		want     []string
	}{
		{
			name:     "default local",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "foreman",
			want:     []string{"root@tcp(127.0.0.1:3306)/foreman", "parseTime=true"},
		},
		{
			name:     "custom host and port",
			user:     "app",
			host:     "10.0.0.5",
			port:     3307,
			database: "foreman_prod",
			want:     []string{"app@tcp(10.0.0.5:3307)/foreman_prod"},
		},
		{
			name: "admin without database",
			user: "root",
			host: "db.internal",
			port: 3306,
			want: []string{"root@tcp(db.internal:3306)/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, "", tt.host, tt.port, tt.database)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("DSN() = %q, want to contain %q", got, w)
				}
			}
		})
	}
}

func TestDSN_Password(t *testing.T) {
	dsn := DSN("app", "s3cret", "localhost", 3306, "foreman")
	if !strings.HasPrefix(dsn, "app:s3cret@tcp(") {
		t.Errorf("DSN should start with user:password@tcp(: %s", dsn)
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantWAL bool
	}{
		{":memory:", ":memory:?_foreign_keys=on", false},
		{"foreman.db", "foreman.db?_foreign_keys=on", true},
		{"file:x?mode=memory&cache=shared", "file:x?mode=memory&cache=shared&_foreign_keys=on", false},
	}
	for _, tt := range tests {
		got := SQLiteDSN(tt.path)
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("SQLiteDSN(%q) = %q, want prefix %q", tt.path, got, tt.want)
		}
		if strings.Contains(got, "_journal_mode=WAL") != tt.wantWAL {
			t.Errorf("SQLiteDSN(%q) = %q, WAL = %v", tt.path, got, !tt.wantWAL)
		}
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "postgres"})
	if err == nil || !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %v, want unsupported driver", err)
	}
}

func TestConnectMySQL_Error(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := ConnectMySQL("root", "", "127.0.0.1", 1, "nonexistent")
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to")
	}
}

func TestConnectAdmin_Error(t *testing.T) {
	_, err := ConnectAdmin(config.DatabaseConfig{Driver: "mysql", User: "root", Host: "127.0.0.1", Port: 1})
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: admin connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: admin connect to")
	}
}

func TestAllModels_Count(t *testing.T) {
	if n := len(AllModels()); n != 5 {
		t.Errorf("AllModels() returned %d models, want 5", n)
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return gdb
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gdb := openTestDB(t)

	for _, table := range []string{"projects", "subprojects", "notes", "task_status", "task_comments"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("table %s not created", table)
		}
	}
	if !gdb.Migrator().HasIndex(&models.TaskStatus{}, "idx_task_status_subproject_task") {
		t.Error("unique index on task_status(subproject_id, task_id) missing")
	}
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	gdb := openTestDB(t)
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	gdb := openTestDB(t)

	p := models.Project{ID: "p1", Name: "P1", Status: models.ProjectPlanning}
	sp := models.Subproject{ID: "s1", ProjectID: "p1", Name: "S1", Mode: models.ModePlanned}
	note := models.Note{ID: "n1", SubprojectID: "s1", Type: models.NoteText, Content: "hi"}
	for _, row := range []interface{}{&p, &sp, &note} {
		if err := gdb.Create(row).Error; err != nil {
			t.Fatalf("create %T: %v", row, err)
		}
	}

	if err := gdb.Delete(&models.Project{}, "id = ?", "p1").Error; err != nil {
		t.Fatalf("delete project: %v", err)
	}

	var count int64
	gdb.Model(&models.Note{}).Count(&count)
	if count != 0 {
		t.Errorf("notes after cascade = %d, want 0", count)
	}
	gdb.Model(&models.Subproject{}).Count(&count)
	if count != 0 {
		t.Errorf("subprojects after cascade = %d, want 0", count)
	}
}

func TestCheckConstraint_RejectsUnknownMode(t *testing.T) {
	gdb := openTestDB(t)

	if err := gdb.Create(&models.Project{ID: "p1", Name: "P1", Status: models.ProjectPlanning}).Error; err != nil {
		t.Fatal(err)
	}
	err := gdb.Create(&models.Subproject{ID: "s1", ProjectID: "p1", Name: "S1", Mode: "building"}).Error
	if err == nil {
		t.Error("expected check constraint violation for mode=building")
	}
}
