// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package roles

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/rolegate/rolegate/internal/access"
)

// RoleFile is the YAML document shape for a single role definition.
type RoleFile struct {
	RoleName       string   `yaml:"role_name" json:"role_name" jsonschema:"required,minLength=1"`
	Description    string   `yaml:"description" json:"description,omitempty"`
	Permissions    []string `yaml:"permissions" json:"permissions,omitempty"`
	PermissionSets []string `yaml:"permission_sets" json:"permission_sets,omitempty"`
}

// SetsFile is the permission-sets document: an optional format version
// header plus the named sets.
type SetsFile struct {
	Version string              `yaml:"version"`
	Sets    map[string][]string `yaml:"sets"`
}

// setsVersionConstraint is the supported permission-sets document format
// range. Bump the major bound when the document shape changes.
var setsVersionConstraint = mustConstraint(">= 1.0.0, < 2.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic("roles: invalid sets version constraint: " + err.Error())
	}
	return c
}

// YAMLSource loads roles from a directory of per-role YAML files and
// permission sets from a single YAML document.
type YAMLSource struct {
	rolesDir string
	setsPath string
}

// NewYAMLSource creates a YAMLSource. setsPath may be empty when the
// application uses no permission sets.
func NewYAMLSource(rolesDir, setsPath string) *YAMLSource {
	return &YAMLSource{rolesDir: rolesDir, setsPath: setsPath}
}

// Roles reads every *.yaml/*.yml file in the roles directory, in sorted
// filename order. Each file must validate against the role-file JSON
// Schema before it is decoded.
func (s *YAMLSource) Roles(ctx context.Context) ([]access.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Wrapf(err, "context cancelled before role load")
	}

	entries, err := os.ReadDir(s.rolesDir)
	if err != nil {
		return nil, oops.
			Code("ROLE_DIR_UNREADABLE").
			With("dir", s.rolesDir).
			Wrap(err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		slog.Warn("no role files found", "dir", s.rolesDir)
		return nil, nil
	}

	out := make([]access.Role, 0, len(files))
	for _, name := range files {
		path := filepath.Join(s.rolesDir, name)
		role, err := loadRoleFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, nil
}

func loadRoleFile(path string) (access.Role, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return access.Role{}, oops.
			Code("ROLE_FILE_UNREADABLE").
			With("file", path).
			Wrap(err)
	}

	// The validation error keeps its own code; only add the file context.
	if err := ValidateRoleDocument(data); err != nil {
		return access.Role{}, oops.
			With("file", path).
			Wrap(err)
	}

	var rf RoleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return access.Role{}, oops.
			Code("ROLE_FILE_INVALID").
			With("file", path).
			Wrap(err)
	}

	return access.Role{
		Name:           rf.RoleName,
		Description:    rf.Description,
		Permissions:    rf.Permissions,
		PermissionSets: rf.PermissionSets,
	}, nil
}

// PermissionSets reads the permission-sets document. Returns an empty map
// when no sets path was configured.
func (s *YAMLSource) PermissionSets(ctx context.Context) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Wrapf(err, "context cancelled before permission-set load")
	}
	if s.setsPath == "" {
		return map[string][]string{}, nil
	}

	data, err := os.ReadFile(s.setsPath)
	if err != nil {
		return nil, oops.
			Code("SETS_FILE_UNREADABLE").
			With("file", s.setsPath).
			Wrap(err)
	}

	var sf SetsFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, oops.
			Code("SETS_FILE_INVALID").
			With("file", s.setsPath).
			Wrap(err)
	}

	// Version header is optional; absent means "current".
	if sf.Version != "" {
		v, err := semver.NewVersion(sf.Version)
		if err != nil {
			return nil, oops.
				Code("SETS_VERSION_INVALID").
				With("file", s.setsPath).
				With("version", sf.Version).
				Wrap(err)
		}
		if !setsVersionConstraint.Check(v) {
			return nil, oops.
				Code("SETS_VERSION_UNSUPPORTED").
				With("file", s.setsPath).
				With("version", sf.Version).
				With("supported", setsVersionConstraint.String()).
				Errorf("unsupported permission-sets format version")
		}
	}

	if sf.Sets == nil {
		return map[string][]string{}, nil
	}
	return sf.Sets, nil
}

// Verify the interface is satisfied.
var _ Source = (*YAMLSource)(nil)
