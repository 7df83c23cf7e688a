// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/rolegate/rolegate/internal/roles"
)

// NewGenSchemaCmd creates the gen-schema subcommand.
func NewGenSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-schema",
		Short: "Print the JSON Schema for role definition files",
		Long: `Print the JSON Schema that role YAML files are validated against,
for editor integration and external tooling.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := roles.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	}
}
