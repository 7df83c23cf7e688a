// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package catalog enumerates an application's defined permission universe.
//
// Applications declare their permission constants explicitly through a
// Catalog (no runtime reflection over type members) and hand the resulting
// set to the validator, which flags role definitions that grant permissions
// the code never defined.
package catalog

import (
	"sort"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Catalog is the set of permission strings an application defines.
type Catalog struct {
	perms map[string]struct{}
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{perms: make(map[string]struct{})}
}

// Define registers a permission string and returns it, so constant
// declarations can register and assign in one step:
//
//	var PermHomeGet = cat.Define("app.home.get")
func (c *Catalog) Define(perm string) string {
	c.perms[perm] = struct{}{}
	return perm
}

// Group returns a Group that registers permissions under a dotted prefix.
func (c *Catalog) Group(prefix string) *Group {
	return &Group{catalog: c, prefix: prefix}
}

// All returns the defined universe as a set, the shape the validator takes.
func (c *Catalog) All() map[string]struct{} {
	out := make(map[string]struct{}, len(c.perms))
	for p := range c.perms {
		out[p] = struct{}{}
	}
	return out
}

// Strings returns the defined permissions sorted lexically.
func (c *Catalog) Strings() []string {
	out := make([]string, 0, len(c.perms))
	for p := range c.perms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Match returns the defined permissions matching a glob pattern with "."
// as separator ("app.*" matches "app.get" but not "app.home.get"). This is
// an introspection helper for tooling; runtime permission matching uses
// the trailing-prefix rules in the access package, not glob semantics.
func (c *Catalog) Match(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '.')
	if err != nil {
		return nil, oops.
			Code("INVALID_PATTERN").
			With("pattern", pattern).
			Wrap(err)
	}

	var out []string
	for _, p := range c.Strings() {
		if g.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Group registers permissions under a shared dotted prefix.
type Group struct {
	catalog *Catalog
	prefix  string
}

// Define registers "<prefix>.<leaf>" and returns the full permission string.
func (g *Group) Define(leaf string) string {
	return g.catalog.Define(g.prefix + "." + leaf)
}

// Group returns a nested group under "<prefix>.<name>".
func (g *Group) Group(name string) *Group {
	return &Group{catalog: g.catalog, prefix: g.prefix + "." + name}
}

// FromTree builds a Catalog from a nested structure of groups and leaves,
// the shape a YAML or JSON permission manifest decodes into. Map keys are
// dotted path segments; leaves are strings or lists of strings:
//
//	app:
//	  home: [get, post]
//	  version: info
//
// defines app.home.get, app.home.post, and app.version.info. A nil or empty
// tree yields an empty catalog. Non-string leaves are rejected.
func FromTree(tree map[string]any) (*Catalog, error) {
	c := New()
	if err := addTree(c, "", tree); err != nil {
		return nil, err
	}
	return c, nil
}

func addTree(c *Catalog, prefix string, tree map[string]any) error {
	for key, value := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if err := addNode(c, path, value); err != nil {
			return err
		}
	}
	return nil
}

func addNode(c *Catalog, path string, value any) error {
	switch v := value.(type) {
	case string:
		c.Define(path + "." + v)
	case []any:
		for _, item := range v {
			leaf, ok := item.(string)
			if !ok {
				return oops.
					Code("INVALID_MANIFEST").
					With("path", path).
					Errorf("permission leaf must be a string, got %T", item)
			}
			c.Define(path + "." + leaf)
		}
	case map[string]any:
		return addTree(c, path, v)
	case nil:
		c.Define(path)
	default:
		return oops.
			Code("INVALID_MANIFEST").
			With("path", path).
			Errorf("unsupported manifest node type %T", value)
	}
	return nil
}
