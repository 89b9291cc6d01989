//go:build linux

package driver

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// raisePriority lowers the rx worker's nice value (best-effort) to cut
// tail latency on the receive path. Errors are swallowed with a warning
// exactly like the reference driver swallows non-fatal processing
// errors elsewhere; a failed priority bump never stops the worker.
func raisePriority(logger *slog.Logger) {
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -10); err != nil {
		logger.Warn("driver: could not raise rx worker scheduling priority", "error", err)
	}
}
