//go:build !linux

package driver

import "log/slog"

// raisePriority is a no-op outside Linux; the OS scheduling priority
// raise is Linux-only per spec.
func raisePriority(logger *slog.Logger) {}
