// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError emits an error-level record for err. Oops-built errors
// contribute their code and key/value context as structured attributes;
// anything else is logged as a bare string.
func LogError(logger *slog.Logger, msg string, err error) {
	if oopsErr, ok := oops.AsOops(err); ok {
		attrs := []any{
			"error", oopsErr.Error(),
		}
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
		logger.Error(msg, attrs...)
		return
	}
	logger.Error(msg, "error", err)
}
