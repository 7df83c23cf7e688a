// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rolegate/rolegate/internal/access"
)

func TestMatches_ExactMatch(t *testing.T) {
	assert.True(t, access.Matches([]string{"app.home.get"}, "app.home.get"))
	assert.False(t, access.Matches([]string{"app.home.get"}, "app.home.post"))
	assert.False(t, access.Matches([]string{"app.home.get"}, "app.home"))
}

func TestMatches_ExactMatchIsReflexive(t *testing.T) {
	for _, p := range []string{"a", "app.home.get", "admin.users.delete", "x.y.z.w"} {
		assert.True(t, access.Matches([]string{p}, p), "Matches([%q], %q)", p, p)
	}
}

func TestMatches_UniversalWildcard(t *testing.T) {
	// A literal "*" grant matches every string, regardless of position.
	assert.True(t, access.Matches([]string{"*"}, "anything.at.all"))
	assert.True(t, access.Matches([]string{"unrelated", "*"}, "app.home.get"))
	assert.True(t, access.Matches([]string{"*"}, ""))
	assert.True(t, access.Matches([]string{"*"}, "*"))
}

func TestMatches_PrefixWildcard(t *testing.T) {
	tests := []struct {
		name     string
		grant    string
		required string
		want     bool
	}{
		{"dotted prefix allows descendants", "app.*", "app.home.get", true},
		{"dotted prefix allows direct child", "app.*", "app.get", true},
		{"prefix does not match unrelated", "app.*", "admin.delete", false},
		{"prefix comparison is textual, not segment-aware", "app.*", "application.get", false},
		{"bare prefix without dot matches textually", "app*", "application.get", true},
		{"deep prefix", "app.home.*", "app.home.get", true},
		{"deep prefix excludes siblings", "app.home.*", "app.admin.get", false},
		{"empty prefix matches everything", "*", "whatever", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, access.Matches([]string{tt.grant}, tt.required))
		})
	}
}

func TestMatches_PrefixPropertyHolds(t *testing.T) {
	// For w = prefix + "*", Matches([w], p) iff p starts with prefix.
	cases := []struct {
		prefix   string
		required string
	}{
		{"app.", "app.home.get"},
		{"app.", "ap"},
		{"", "anything"},
		{"admin", "admin.x"},
		{"admin", "adm"},
	}
	for _, c := range cases {
		w := c.prefix + "*"
		want := len(c.required) >= len(c.prefix) && c.required[:len(c.prefix)] == c.prefix
		assert.Equal(t, want, access.Matches([]string{w}, c.required),
			"Matches([%q], %q)", w, c.required)
	}
}

func TestMatches_RequiredWildcardComparedLiterally(t *testing.T) {
	// Wildcards only expand on the grant side.
	assert.False(t, access.Matches([]string{"app.home.get"}, "app.*"))
	assert.True(t, access.Matches([]string{"app.*"}, "app.*")) // exact match of the literal string
	assert.True(t, access.Matches([]string{"app.*"}, "app.x")) // and still a prefix grant
}

func TestMatches_NoNormalization(t *testing.T) {
	assert.False(t, access.Matches([]string{"App.Home.Get"}, "app.home.get"))
	assert.False(t, access.Matches([]string{" app.home.get"}, "app.home.get"))
	assert.False(t, access.Matches([]string{"app.home.get "}, "app.home.get"))
}

func TestMatches_ScanOrderIrrelevantForOutcome(t *testing.T) {
	grants := []string{"nope.x", "app.*", "other.y"}
	reversed := []string{"other.y", "app.*", "nope.x"}
	assert.True(t, access.Matches(grants, "app.list"))
	assert.True(t, access.Matches(reversed, "app.list"))
}

func TestMatches_EmptyGrants(t *testing.T) {
	assert.False(t, access.Matches(nil, "app.home.get"))
	assert.False(t, access.Matches([]string{}, "app.home.get"))
}
