// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package access

import "strings"

// Matches reports whether any of the granted permissions satisfies the
// required permission.
//
// Matching rules, in order:
//   - a literal "*" grant matches everything
//   - an exact string match
//   - a grant ending in "*" matches when required starts with the grant
//     minus the trailing "*" (so "app.*" allows "app.home.get")
//
// Strings are compared byte-for-byte with no normalization. A required
// permission that itself contains a wildcard is compared literally;
// wildcards only carry meaning on the grant side.
func Matches(grants []string, required string) bool {
	for _, g := range grants {
		if g == "*" {
			return true
		}
	}

	for _, g := range grants {
		if g == required {
			return true
		}
		if strings.HasSuffix(g, "*") {
			// Empty prefix (bare "*") is already handled above, but
			// strings.HasPrefix(required, "") agreeing keeps both paths
			// equivalent.
			if strings.HasPrefix(required, strings.TrimSuffix(g, "*")) {
				return true
			}
		}
	}
	return false
}
