// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

package access

import "github.com/samber/oops"

// DenyHandler produces a caller-defined fallback result when a guarded call
// is denied.
type DenyHandler[T any] func(permission string) (T, error)

// Wrap returns a function that checks the permission through the
// evaluator's resolver before invoking op. On denial it fails with a
// PERMISSION_DENIED error carrying the required permission, unless the
// evaluator has a deny fallback installed whose value is assignable to T.
func Wrap[T any](e *Evaluator, permission string, op func() (T, error)) func() (T, error) {
	return WrapWithFallback(e, permission, op, nil)
}

// WrapWithFallback is Wrap with a per-call deny handler. Denial resolution
// order: the per-call handler, then the evaluator's process-wide deny
// fallback, then a PERMISSION_DENIED error.
func WrapWithFallback[T any](e *Evaluator, permission string, op func() (T, error), onDeny DenyHandler[T]) func() (T, error) {
	return func() (T, error) {
		if e.HasPermission(permission) {
			return op()
		}

		if onDeny != nil {
			return onDeny(permission)
		}

		if fallback := e.denyFallbackFn(); fallback != nil {
			// The process-wide fallback is untyped; a value that is not
			// assignable to the guarded result type falls through to the
			// denial error.
			if v, ok := fallback(permission).(T); ok {
				return v, nil
			}
		}

		var zero T
		return zero, oops.
			Code("PERMISSION_DENIED").
			With("permission", permission).
			Errorf("permission %q required", permission)
	}
}
