// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package access evaluates role-based permission checks.
//
// Permissions are opaque dot-segmented strings ("app.home.get"), optionally
// wildcarded with a trailing "*" ("app.*") or the universal "*". Roles bundle
// direct permissions with references to named permission sets; the Evaluator
// owns both stores and answers "does role R satisfy permission P" with a
// plain boolean. Denial is data, not control flow: unknown roles, missing
// resolvers, and unmatched permissions all evaluate to false without error.
//
// Role and permission-set definitions are supplied by an external source
// (see internal/roles); the evaluator only ever receives well-formed records.
package access

import (
	"sort"
	"sync"
	"time"
)

// Role is a named bundle of granted permissions and permission-set references.
type Role struct {
	Name           string
	Description    string
	Permissions    []string
	PermissionSets []string
}

// RoleResolver locates the acting role when a check does not name one
// explicitly. An empty return value means no current role. The resolver is
// invoked synchronously and must not call back into the evaluator.
type RoleResolver func() string

// RestrictionFunc supplies object-level restrictions (for example row
// filters) for a role and object type. A nil return value means no
// restriction applies.
type RestrictionFunc func(role, objectType string) any

// DenyFallback produces a process-wide fallback value for guarded calls that
// are denied without a per-call handler. See Wrap.
type DenyFallback func(permission string) any

// snapshot is an immutable view of the role and permission-set stores.
// Order slices preserve declaration order for deterministic validation output.
type snapshot struct {
	roles     map[string]Role
	roleOrder []string
	sets      map[string][]string
	setOrder  []string
}

func emptySnapshot() *snapshot {
	return &snapshot{
		roles: make(map[string]Role),
		sets:  make(map[string][]string),
	}
}

// Evaluator answers permission checks against the currently loaded roles and
// permission sets. It is explicitly constructed and passed by the embedding
// application; there is no process-wide instance.
//
// Thread-safety: bulk loads build a fresh snapshot off to the side and
// publish it in one step, so concurrent readers never observe a
// half-replaced store.
type Evaluator struct {
	mu           sync.RWMutex
	snap         *snapshot
	resolver     RoleResolver
	restrict     RestrictionFunc
	denyFallback DenyFallback
}

// Option configures an Evaluator at construction time.
type Option func(*Evaluator)

// WithRoleResolver installs the current-role resolver.
func WithRoleResolver(fn RoleResolver) Option {
	return func(e *Evaluator) { e.resolver = fn }
}

// WithRestrictions installs the object-restriction strategy.
func WithRestrictions(fn RestrictionFunc) Option {
	return func(e *Evaluator) { e.restrict = fn }
}

// WithDenyFallback installs the process-wide deny fallback used by guarded
// calls that have no per-call handler.
func WithDenyFallback(fn DenyFallback) Option {
	return func(e *Evaluator) { e.denyFallback = fn }
}

// NewEvaluator creates an Evaluator with empty stores.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{snap: emptySnapshot()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetRoles replaces the entire role store. Records with an empty name are
// skipped; duplicate names are last-writer-wins. The permission-set store is
// untouched.
func (e *Evaluator) SetRoles(roles []Role) {
	next := make(map[string]Role, len(roles))
	order := make([]string, 0, len(roles))
	for _, r := range roles {
		if r.Name == "" {
			continue
		}
		if _, seen := next[r.Name]; !seen {
			order = append(order, r.Name)
		}
		next[r.Name] = r
	}

	e.mu.Lock()
	e.snap = &snapshot{
		roles:     next,
		roleOrder: order,
		sets:      e.snap.sets,
		setOrder:  e.snap.setOrder,
	}
	e.mu.Unlock()
}

// SetPermissionSets replaces the entire permission-set store. Set names are
// ordered lexically for deterministic validation output, since Go map
// iteration order is unspecified.
func (e *Evaluator) SetPermissionSets(sets map[string][]string) {
	next := make(map[string][]string, len(sets))
	order := make([]string, 0, len(sets))
	for name, members := range sets {
		next[name] = append([]string(nil), members...)
		order = append(order, name)
	}
	sort.Strings(order)

	e.mu.Lock()
	e.snap = &snapshot{
		roles:     e.snap.roles,
		roleOrder: e.snap.roleOrder,
		sets:      next,
		setOrder:  order,
	}
	e.mu.Unlock()
}

// SetRoleResolver installs the current-role resolver, replacing any
// previously installed one.
func (e *Evaluator) SetRoleResolver(fn RoleResolver) {
	e.mu.Lock()
	e.resolver = fn
	e.mu.Unlock()
}

// SetDenyFallback installs the process-wide deny fallback, replacing any
// previously installed one.
func (e *Evaluator) SetDenyFallback(fn DenyFallback) {
	e.mu.Lock()
	e.denyFallback = fn
	e.mu.Unlock()
}

// HasPermission reports whether the current role (via the installed
// resolver) satisfies the required permission. Returns false when no
// resolver is installed, the resolver yields no role, or the role is
// unknown. Never errors.
func (e *Evaluator) HasPermission(required string) bool {
	e.mu.RLock()
	resolver := e.resolver
	e.mu.RUnlock()

	if resolver == nil {
		return false
	}
	return e.RoleHasPermission(resolver(), required)
}

// RoleHasPermission reports whether the named role satisfies the required
// permission. Unknown or empty roles are denied, never an error.
func (e *Evaluator) RoleHasPermission(role, required string) bool {
	start := time.Now()
	allowed := e.check(role, required)
	recordDecision(time.Since(start), allowed)
	return allowed
}

func (e *Evaluator) check(role, required string) bool {
	if role == "" {
		return false
	}
	snap := e.snapshot()
	r, ok := snap.roles[role]
	if !ok {
		return false
	}
	return Matches(snap.effectivePermissions(r), required)
}

// EffectivePermissions returns the role's direct permissions followed by the
// members of each referenced permission set in declaration order. Unknown
// set references contribute nothing; duplicates are preserved. Returns nil
// for unknown roles.
func (e *Evaluator) EffectivePermissions(role string) []string {
	snap := e.snapshot()
	r, ok := snap.roles[role]
	if !ok {
		return nil
	}
	return snap.effectivePermissions(r)
}

// Roles returns the loaded roles in declaration order.
func (e *Evaluator) Roles() []Role {
	snap := e.snapshot()
	out := make([]Role, 0, len(snap.roleOrder))
	for _, name := range snap.roleOrder {
		out = append(out, snap.roles[name])
	}
	return out
}

// ObjectRestrictions returns object-level restriction data for a role and
// object type via the installed strategy. Returns nil (no restriction) when
// no strategy is installed or the strategy has nothing to say.
func (e *Evaluator) ObjectRestrictions(role, objectType string) any {
	e.mu.RLock()
	restrict := e.restrict
	e.mu.RUnlock()

	if restrict == nil {
		return nil
	}
	return restrict(role, objectType)
}

func (e *Evaluator) snapshot() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

func (e *Evaluator) denyFallbackFn() DenyFallback {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.denyFallback
}

func (s *snapshot) effectivePermissions(r Role) []string {
	perms := make([]string, 0, len(r.Permissions))
	perms = append(perms, r.Permissions...)
	for _, name := range r.PermissionSets {
		if members, ok := s.sets[name]; ok {
			perms = append(perms, members...)
		}
	}
	return perms
}
