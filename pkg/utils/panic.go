// Package utils holds small cross-cutting helpers shared by cmd/vntransl.
package utils

import (
	"log/slog"
	"os"
	"runtime/debug"
)

// SafeRun runs fn under a panic recovery that logs the panic value and stack
// trace through logger and exits 1, adapted from the teacher's interactive
// BSOD screen into something appropriate for a non-interactive batch run.
func SafeRun(logger *slog.Logger, fn func()) {
	defer RecoverPanic(logger)
	fn()
}

// RecoverPanic is the deferred half of SafeRun; exported so callers that
// already manage their own defer chain can use it directly.
func RecoverPanic(logger *slog.Logger) {
	if r := recover(); r != nil {
		logPanic(logger, r)
		os.Exit(1)
	}
}

func logPanic(logger *slog.Logger, r any) {
	logger.Error("panic recovered", "panic", r, "stack", string(debug.Stack()))
}
