// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package access

import (
	"fmt"
	"strings"
)

// ValidateRoles cross-checks every permission declared in the loaded
// permission sets and roles against the application's defined permission
// universe, and every role's set references against the permission-set
// store. It returns human-readable warnings and never mutates state or
// fails; the caller decides whether warnings are fatal.
//
// Validation order is deterministic: permission sets first, then roles,
// each in store order.
//
// Note the asymmetry with Matches: the validator only treats a dotted
// ".*" suffix as a prefix pattern. A bare trailing "*" without a
// preceding dot is checked as an exact string and will almost always be
// flagged, even though the matcher honors it at evaluation time. This
// mirrors the behavior role authors already rely on; unifying the two
// rules would silently change existing validation output.
func (e *Evaluator) ValidateRoles(defined map[string]struct{}) []string {
	snap := e.snapshot()
	var warnings []string

	for _, setName := range snap.setOrder {
		for _, perm := range snap.sets[setName] {
			checkPermission(perm, fmt.Sprintf("PermissionSet '%s'", setName), defined, &warnings)
		}
	}

	for _, roleName := range snap.roleOrder {
		r := snap.roles[roleName]
		for _, perm := range r.Permissions {
			checkPermission(perm, fmt.Sprintf("Role '%s'", roleName), defined, &warnings)
		}
		for _, setName := range r.PermissionSets {
			if _, ok := snap.sets[setName]; !ok {
				warnings = append(warnings,
					fmt.Sprintf("Role '%s': PermissionSet '%s' is not defined.", roleName, setName))
			}
		}
	}

	recordValidation(len(warnings))
	return warnings
}

// checkPermission validates a single declared permission against the
// defined universe, appending a warning when it matches nothing.
func checkPermission(perm, context string, defined map[string]struct{}, warnings *[]string) {
	if perm == "*" {
		return
	}

	if strings.HasSuffix(perm, ".*") {
		prefix := strings.TrimSuffix(perm, ".*")
		for p := range defined {
			if strings.HasPrefix(p, prefix) {
				return
			}
		}
		*warnings = append(*warnings,
			fmt.Sprintf("%s: Prefix '%s' does not match any code structure.", context, perm))
		return
	}

	if _, ok := defined[perm]; !ok {
		*warnings = append(*warnings,
			fmt.Sprintf("%s: Permission '%s' is not defined in your constants.", context, perm))
	}
}
