// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the rolegate CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rolegate",
		Short: "Rolegate - role-based access control evaluator",
		Long: `Rolegate evaluates role-based permission checks against role
definitions loaded from YAML files or PostgreSQL, and can serve
decisions over HTTP.`,
	}

	cmd.PersistentFlags().String("config", "", "config file path")
	cmd.PersistentFlags().String("log-format", "json", "log format (json or text)")
	cmd.PersistentFlags().String("source", "yaml", "role source (yaml or postgres)")
	cmd.PersistentFlags().String("roles-dir", "roles", "directory of role YAML files")
	cmd.PersistentFlags().String("sets-file", "", "permission-sets YAML file")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string (defaults to DATABASE_URL)")

	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewGenSchemaCmd())

	return cmd
}
