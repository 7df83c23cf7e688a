// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/access/catalog"
)

// NewInspectCmd creates the inspect subcommand.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [role]",
		Short: "Show loaded roles and their effective permissions",
		Long: `Inspect lists the loaded roles. Given a role name, it prints the
role's effective permissions (direct grants followed by permission-set
expansion). The --filter flag narrows the permission list with a glob
pattern using "." as separator.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInspect,
	}

	cmd.Flags().String("filter", "", "glob pattern to filter permissions")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	e, cleanup, err := newEvaluator(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(args) == 0 {
		for _, r := range e.Roles() {
			if r.Description != "" {
				cmd.Printf("%s\t%s\n", r.Name, r.Description)
			} else {
				cmd.Println(r.Name)
			}
		}
		return nil
	}

	role := args[0]
	perms := e.EffectivePermissions(role)
	if perms == nil {
		cmd.SilenceUsage = true
		cmd.Printf("role %q is not defined\n", role)
		return nil
	}

	filter, _ := cmd.Flags().GetString("filter") //nolint:errcheck // flag is always registered
	if filter != "" {
		cat := catalog.New()
		for _, p := range perms {
			cat.Define(p)
		}
		perms, err = cat.Match(filter)
		if err != nil {
			return err
		}
	}

	for _, p := range perms {
		cmd.Println(p)
	}
	return nil
}
