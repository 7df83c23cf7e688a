// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rolegate Contributors

// Package errutil provides helpers for working with coded errors.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// Code returns the error code of an oops error, or "" for nil and
// uncoded errors. Used by CLI surfaces to map codes to exit behavior.
func Code(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	// Code() reports any; uncoded errors carry nil.
	code, _ := oopsErr.Code().(string)
	return code
}

// LogError logs an error with structured context. Oops errors contribute
// their code and context map as attributes; plain errors log the message
// only.
func LogError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
