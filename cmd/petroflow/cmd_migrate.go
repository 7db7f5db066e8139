package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database schema migrations",
	Long: `Apply the embedded schema migrations to the configured database.
Safe to run repeatedly; an up-to-date schema is a no-op.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.DSN == "" {
		return fmt.Errorf("no database DSN configured; set storage.dsn or %s", config.EnvDatabaseURL)
	}
	return postgres.Migrate(cfg.Storage.DSN)
}
