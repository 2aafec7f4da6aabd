package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library/internal/config"
	"library/internal/infrastructure/database"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|version]",
	Short: "Manage the database schema",
	Long: `Apply or roll back schema migrations from MIGRATIONS_PATH.

Only the LIBRARY_DB_* variables are required.

Examples:
  library migrate up
  library migrate down --steps 1
  library migrate version`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "down", "version"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back with down")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.ReadEnv()
	source, dsn := cfg.MigrationsPath, cfg.GetDBMigrationConnectionString()
	out := cmd.OutOrStdout()

	switch args[0] {
	case "up":
		if err := database.Migrate(source, dsn); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
	case "down":
		if migrateSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		if err := database.MigrateDown(source, dsn, migrateSteps); err != nil {
			return err
		}
		fmt.Fprintf(out, "rolled back %d migration(s)\n", migrateSteps)
	case "version":
		version, dirty, err := database.MigrationVersion(source, dsn)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version %d (dirty: %t)\n", version, dirty)
	default:
		return fmt.Errorf("unknown migrate action %q: want up, down or version", args[0])
	}
	return nil
}
