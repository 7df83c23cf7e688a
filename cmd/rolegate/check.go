// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check subcommand.
func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <role> <permission>",
		Short: "Check whether a role holds a permission",
		Long: `Check evaluates a single role/permission pair against the loaded
role definitions. Exits 0 when allowed and 1 when denied.`,
		Args: cobra.ExactArgs(2),
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	e, cleanup, err := newEvaluator(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	role, permission := args[0], args[1]
	if e.RoleHasPermission(role, permission) {
		cmd.Println("allowed")
		return nil
	}

	cmd.Println("denied")
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return oops.
		Code("PERMISSION_DENIED").
		With("role", role).
		With("permission", permission).
		Errorf("permission %q denied for role %q", permission, role)
}
