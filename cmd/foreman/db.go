package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/foreman/internal/config"
	"github.com/zulandar/foreman/internal/db"
	"github.com/zulandar/foreman/internal/logging"
	"gorm.io/gorm"
)

func newDBCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd(flags))
	cmd.AddCommand(newDBResetCmd(flags))
	return cmd
}

func newDBInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the Foreman database",
		Long:  "Creates the database (MySQL) if needed and migrates all tables.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, flags.configPath)
		},
	}
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	fmt.Fprintf(out, "Loaded %s config from %s\n", cfg.Database.Driver, configPath)

	if cfg.Database.Driver == "mysql" {
		if err := ensureDatabase(cfg.Database, false); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", cfg.Database.Name)
	}

	if err := migrate(cfg.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nForeman database initialized successfully.")
	return nil
}

func newDBResetCmd(flags *rootFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the Foreman database",
		Long: `Drops every Foreman table (or the whole MySQL database) and migrates
a fresh schema. All projects, notes and task history are lost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, flags.configPath, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target := cfg.Database.Path
	if cfg.Database.Driver == "mysql" {
		target = cfg.Database.Name
	}

	if !skipConfirm {
		ok, err := confirm(cmd, fmt.Sprintf("WARNING: This will permanently delete all data in database %q.", target))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	switch cfg.Database.Driver {
	case "mysql":
		if err := ensureDatabase(cfg.Database, true); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped and re-created database %s\n", target)
	default:
		if err := dropTables(cfg.Database); err != nil {
			return err
		}
		fmt.Fprintf(out, "Dropped %d tables in %s\n", len(db.AllModels()), target)
	}

	if err := migrate(cfg.Database); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "\nForeman database reset successfully.")
	return nil
}

// ensureDatabase creates the MySQL database, dropping it first when drop
// is set.
func ensureDatabase(cfg config.DatabaseConfig, drop bool) error {
	adminDB, err := db.ConnectAdmin(cfg)
	if err != nil {
		return err
	}
	defer closeDB(adminDB)
	if drop {
		if err := db.DropDatabase(adminDB, cfg.Name); err != nil {
			return err
		}
	}
	return db.CreateDatabase(adminDB, cfg.Name)
}

func migrate(cfg config.DatabaseConfig) error {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer closeDB(gormDB)
	return db.AutoMigrate(gormDB)
}

// dropTables removes every model table, children first.
func dropTables(cfg config.DatabaseConfig) error {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer closeDB(gormDB)
	models := db.AllModels()
	for i := len(models) - 1; i >= 0; i-- {
		if err := gormDB.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("db: drop table: %w", err)
		}
	}
	return nil
}

func closeDB(gormDB *gorm.DB) {
	if sqlDB, err := gormDB.DB(); err == nil {
		logging.CloseError("database", sqlDB.Close())
	}
}
