// Package drivermode implements the atomic Normal/Replay selector that
// gates the tx worker's periodic drive. Ported from the reference
// driver's AtomicU8-backed mode switch: Go exposes no byte-width atomic,
// so atomic.Uint32 is the idiomatic substitute, the same way the rest of
// this codebase reaches for atomic.Bool/atomic.Pointer elsewhere. Go's
// sync/atomic offers no memory-order choice, so "relaxed ordering is
// sufficient" holds trivially here.
package drivermode

import "sync/atomic"

// Mode is the driver's two-valued operating mode.
type Mode uint32

const (
	Normal Mode = 0
	Replay Mode = 1
)

func (m Mode) String() string {
	if m == Replay {
		return "replay"
	}
	return "normal"
}

// Atomic is a single-writer (the client layer), multi-reader (the tx
// worker) mode cell.
type Atomic struct {
	v atomic.Uint32
}

// Get returns the current mode. The zero value reads as Normal.
func (a *Atomic) Get() Mode { return Mode(a.v.Load()) }

// Set unconditionally stores a new mode.
func (a *Atomic) Set(m Mode) { a.v.Store(uint32(m)) }

// CompareAndSwap stores new only if the current value is old, reporting
// whether the swap happened.
func (a *Atomic) CompareAndSwap(old, new Mode) bool {
	return a.v.CompareAndSwap(uint32(old), uint32(new))
}
