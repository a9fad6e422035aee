/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/mockly/apiserver/config"
	"github.com/mockly/apiserver/internal/db"
	"github.com/spf13/cobra"
)

var (
	migrationsURL string
	downSteps     int
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(migrator *migrate.Migrate) error {
			if err := migrator.Up(); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					slog.Info("schema already up to date")
					return nil
				}
				return fmt.Errorf("migrate up failed: %w", err)
			}
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (one step by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(migrator *migrate.Migrate) error {
			if downSteps < 1 {
				return errors.New("steps must be at least 1")
			}
			if err := migrator.Steps(-downSteps); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					return nil
				}
				return fmt.Errorf("migrate down failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.PersistentFlags().StringVar(&migrationsURL, "source", "file://internal/db/migrations", "migrations source URL")
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")
}

func withMigrator(fn func(*migrate.Migrate) error) error {
	cfg := config.LoadConfig()

	migrator, err := migrate.New(migrationsURL, db.URL(cfg.Database))
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := fn(migrator); err != nil {
		return err
	}

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.Info("schema has no applied migrations")
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	default:
		slog.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}
	return nil
}
