package cmd

import (
	"fmt"

	"github.com/kozaktomas/class-attendance/internal/config"
	"github.com/kozaktomas/class-attendance/internal/database/mariadb"
	"github.com/kozaktomas/class-attendance/internal/database/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply pending schema migrations to the configured database.

The driver is chosen by DATABASE_DRIVER (postgres or mysql) and the
connection by DATABASE_URL. The serve command migrates on start as well.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "Only list pending migrations (PostgreSQL)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if cfg.Database.Driver == config.DriverMariaDB {
		pool, err := mariadb.NewPool(&cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to MariaDB: %w", err)
		}
		defer pool.Close()
		if err := pool.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating MariaDB: %w", err)
		}
		fmt.Println("MariaDB schema is up to date")
		return nil
	}

	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()

	if mustGetBool(cmd, "status") {
		pending, err := pool.PendingMigrations(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No pending migrations")
			return nil
		}
		for _, file := range pending {
			fmt.Printf("pending: %s\n", file)
		}
		return nil
	}

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating PostgreSQL: %w", err)
	}
	applied, err := pool.MigrationsApplied(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("PostgreSQL schema is up to date (%d migrations applied)\n", len(applied))
	return nil
}
