package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/opsdesk-api/internal/config"
	"github.com/opsdesk-api/pkg/logger"
)

var (
	configFile     string
	migrationsPath string
)

var rootCmd = &cobra.Command{
	Use:   "opsdesk",
	Short: "Field operations dashboard API",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// a missing .env is normal outside local development
		_ = godotenv.Overload()
	},
	SilenceUsage: true,
}

func init() {
	defaultMigrations := os.Getenv("MIGRATIONS_PATH")
	if defaultMigrations == "" {
		defaultMigrations = "./migrations"
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "migrations", defaultMigrations, "directory holding the SQL migrations")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
}

// setup loads configuration and builds the process logger
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.Log), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
