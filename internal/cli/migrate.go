package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"focusflow/backend/internal/config"
	"focusflow/backend/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply pending database migrations.

Migrations are plain SQL files applied in name order, each inside its
own transaction. Applied names are tracked in the schema_migrations
table, so running this repeatedly is safe.

Examples:
  focusd migrate                      # Apply pending migrations
  DB_PATH=/tmp/dev.db focusd migrate  # Migrate a specific database file`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if applied == 0 {
		fmt.Println("No migrations to run")
		return nil
	}
	fmt.Printf("Applied %d migrations\n", applied)
	return nil
}
