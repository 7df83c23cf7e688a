// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package roles loads role and permission-set definitions for the access
// evaluator.
//
// Sources are external collaborators: they absorb malformed input and
// report coded errors, so the evaluator only ever receives well-formed
// records (or nothing).
package roles

import (
	"context"

	"github.com/rolegate/rolegate/internal/access"
)

// Source yields role and permission-set definitions from some backing
// store (YAML files, a database, ...).
type Source interface {
	// Roles returns all role records in declaration order.
	Roles(ctx context.Context) ([]access.Role, error)

	// PermissionSets returns the permission-set definitions.
	PermissionSets(ctx context.Context) (map[string][]string, error)
}

// Load populates the evaluator from a source. Roles and sets are loaded
// together so a single failure leaves the evaluator untouched.
func Load(ctx context.Context, src Source, e *access.Evaluator) error {
	rs, err := src.Roles(ctx)
	if err != nil {
		return err
	}
	sets, err := src.PermissionSets(ctx)
	if err != nil {
		return err
	}

	e.SetPermissionSets(sets)
	e.SetRoles(rs)
	return nil
}
