// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/roles/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the role store database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops all role data)",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE:  runMigrateVersion,
	})

	return cmd
}

func newMigrator(cmd *cobra.Command) (*postgres.Migrator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, oops.
			Code("CONFIG_INVALID").
			Errorf("database-url flag or DATABASE_URL environment variable is required")
	}
	return postgres.NewMigrator(cfg.DatabaseURL)
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	m, err := newMigrator(cmd)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck // close error after successful Up is not actionable

	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return err
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	m, err := newMigrator(cmd)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck // close error after successful Down is not actionable

	cmd.Println("Rolling back all migrations...")
	if err := m.Down(); err != nil {
		return err
	}
	cmd.Println("Rollback completed")
	return nil
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	m, err := newMigrator(cmd)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck // close error after read-only call is not actionable

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}

	if version == 0 {
		cmd.Println("No migrations applied")
		return nil
	}

	name, err := postgres.MigrationName(version)
	if err != nil {
		return err
	}
	if name != "" {
		cmd.Printf("Version: %d (%s)\n", version, name)
	} else {
		cmd.Printf("Version: %d\n", version)
	}
	if dirty {
		cmd.Println("WARNING: migration state is dirty; manual intervention required")
	}
	return nil
}
