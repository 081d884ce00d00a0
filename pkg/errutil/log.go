// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package errutil holds helpers for working with oops coded errors.
package errutil

import (
	"fmt"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err with its code and context when it is an oops error.
// Plain errors are logged by their string form.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	if oopsErr, ok := oops.AsOops(err); ok {
		out := append([]any{"error", oopsErr.Error()}, attrs...)
		if code := oopsErr.Code(); code != nil && code != "" {
			out = append(out, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			out = append(out, "context", ctx)
		}
		logger.Error(msg, out...)
		return
	}
	logger.Error(msg, append([]any{"error", err}, attrs...)...)
}

// CodeOf returns the oops code carried by err, or "" when there is none.
func CodeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := oopsErr.Code()
	if code == nil {
		return ""
	}
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
