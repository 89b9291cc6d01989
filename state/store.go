// Package state implements the lock-free, many-reader state store: one
// single-slot cell per state category, swapped atomically by its single
// writer and read wait-free by any number of readers.
package state

import (
	"sync/atomic"
	"time"

	"github.com/piperbot/piper-go/protocol"
)

// Cell is a single-slot lock-free holder for an immutable snapshot
// record. The zero value holds no value; Load returns the zero T and
// false until the first Store.
type Cell[T any] struct {
	p atomic.Pointer[T]
}

// Store replaces the cell's contents. Safe for exactly one writer;
// concurrent writers would still be safe individually but the store's
// single-writer-per-cell policy is what keeps higher-level invariants
// (e.g. monotonic timestamps) true.
func (c *Cell[T]) Store(v T) {
	c.p.Store(&v)
}

// Load returns the most recently stored value and true, or the zero
// value and false if nothing has been stored yet.
func (c *Cell[T]) Load() (T, bool) {
	p := c.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// MotionSnapshot is the composite of joint position, joint dynamic, and
// end-pose data belonging to one logical sample.
type MotionSnapshot struct {
	Positions   protocol.Angles
	Velocities  protocol.Velocities
	Torques     protocol.Torques
	EndPose     EndPose
	FrameValidMask uint8
	TimestampUs uint64
}

// Consistent reports whether every one of the three frame-groups
// contributed to this snapshot.
func (m MotionSnapshot) Consistent() bool { return m.FrameValidMask == 0b111 }

// EndPose is the end-effector pose: translation in millimetres (not
// metres), rotation in radians.
type EndPose struct {
	X, Y, Z    protocol.Millimetres
	RX, RY, RZ protocol.Radians
}

// GripperState is the last observed gripper feedback.
type GripperState struct {
	Position    protocol.Millimetres
	Effort      protocol.Newtons
	Status      uint8
	TimestampUs uint64
}

// RobotControlState is the last observed control-flags feedback.
type RobotControlState struct {
	EnableFlags uint8
	ActiveMode  uint8
	FaultBits   uint16
	TimestampUs uint64
}

// ConnectionHealth reports transport liveness, written by the rx worker
// and the heartbeat ticker.
type ConnectionHealth struct {
	LinkOK      bool
	LastRxAgeUs uint64
	LastTxAgeUs uint64
	RxFPS       float64
	TxFPS       float64
	FatalErr    error
}

// Store is the fixed set of cells the driver publishes into and readers
// observe from.
type Store struct {
	Motion     Cell[MotionSnapshot]
	Gripper    Cell[GripperState]
	Control    Cell[RobotControlState]
	Connection Cell[ConnectionHealth]
}

// New returns an empty store. Cells read as (zero, false) until the
// driver's workers publish their first values.
func New() *Store {
	return &Store{}
}

// Snapshot reads every cell in turn and returns a plain aggregate. It is
// not globally atomic: because categories advance independently, the
// individual fields may reflect different moments in time. Consumers
// that need tight alignment should read Store.Motion directly instead.
type Snapshot struct {
	Motion     MotionSnapshot
	Gripper    GripperState
	Control    RobotControlState
	Connection ConnectionHealth
	ReadAt     time.Time
}

func (s *Store) Snapshot() Snapshot {
	motion, _ := s.Motion.Load()
	gripper, _ := s.Gripper.Load()
	control, _ := s.Control.Load()
	conn, _ := s.Connection.Load()
	return Snapshot{
		Motion:     motion,
		Gripper:    gripper,
		Control:    control,
		Connection: conn,
		ReadAt:     time.Now(),
	}
}
