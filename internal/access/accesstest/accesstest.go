// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package accesstest provides test fixtures for permission evaluation.
package accesstest

import "github.com/rolegate/rolegate/internal/access"

// StaticResolver returns a RoleResolver that always yields the given role.
func StaticResolver(role string) access.RoleResolver {
	return func() string { return role }
}

// Fixture returns an Evaluator loaded with a small canned role hierarchy:
//
//	viewer  — app.home.get
//	editor  — app.* plus the "reporting" set (reports.view, reports.export)
//	admin   — *
func Fixture() *access.Evaluator {
	e := access.NewEvaluator()
	e.SetPermissionSets(map[string][]string{
		"reporting": {"reports.view", "reports.export"},
	})
	e.SetRoles([]access.Role{
		{Name: "viewer", Permissions: []string{"app.home.get"}},
		{Name: "editor", Permissions: []string{"app.*"}, PermissionSets: []string{"reporting"}},
		{Name: "admin", Permissions: []string{"*"}},
	})
	return e
}
