package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opsdesk-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *database.DB) error {
			return db.RunMigrations(migrationsPath)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *database.DB) error {
			return db.MigrateDown(migrationsPath)
		})
	},
}

var migrateGotoCmd = &cobra.Command{
	Use:   "goto <version>",
	Short: "Migrate up or down to a specific version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return withDB(func(db *database.DB) error {
			return db.MigrateToVersion(migrationsPath, uint(version))
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *database.DB) error {
			version, dirty, err := db.MigrationVersion(migrationsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateGotoCmd, migrateStatusCmd)
}

func withDB(fn func(db *database.DB) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db)
}
