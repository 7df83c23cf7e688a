// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	goyaml "gopkg.in/yaml.v3"

	"github.com/rolegate/rolegate/internal/access/catalog"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate role definitions against a permission manifest",
		Long: `Validate loads the role definitions and checks every granted
permission against the application's permission manifest, a YAML tree of
groups and leaves:

  app:
    home: [get, post]
    version: info

Warnings are printed but do not fail the command unless --strict is set.`,
		RunE: runValidate,
	}

	cmd.Flags().String("manifest", "permissions.yaml", "permission manifest file")
	cmd.Flags().Bool("strict", false, "exit non-zero when warnings are found")

	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manifestPath, _ := cmd.Flags().GetString("manifest") //nolint:errcheck // flag is always registered
	strict, _ := cmd.Flags().GetBool("strict")           //nolint:errcheck // flag is always registered

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return oops.
			Code("MANIFEST_UNREADABLE").
			With("file", manifestPath).
			Wrap(err)
	}

	var tree map[string]any
	if err := goyaml.Unmarshal(data, &tree); err != nil {
		return oops.
			Code("INVALID_MANIFEST").
			With("file", manifestPath).
			Wrap(err)
	}

	cat, err := catalog.FromTree(tree)
	if err != nil {
		return err
	}

	e, cleanup, err := newEvaluator(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	warnings := e.ValidateRoles(cat.All())
	for _, w := range warnings {
		cmd.Println(w)
	}

	if len(warnings) == 0 {
		cmd.Println("All role definitions are consistent with the manifest")
		return nil
	}

	if strict {
		cmd.SilenceUsage = true
		return oops.
			Code("VALIDATION_FAILED").
			With("warnings", len(warnings)).
			Errorf("%d validation warning(s)", len(warnings))
	}
	return nil
}
