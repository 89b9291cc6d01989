// Package aggregator groups related feedback frames into time-synchronized
// MotionSnapshots. It produces the snapshots the rx worker publishes into
// the state store and is driven exclusively by the rx worker, so its
// internal mutex never contends with anything but itself across calls.
package aggregator

import (
	"sync"

	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/state"
)

const (
	maskPosition uint8 = 1 << 0
	maskDynamic  uint8 = 1 << 1
	maskEndPose  uint8 = 1 << 2
	maskFull     uint8 = maskPosition | maskDynamic | maskEndPose
)

// Aggregator holds the three pending frame-groups for one in-progress
// MotionSnapshot. Gripper and control-flags feedback keep no pending
// state here: ObserveGripper and ObserveControlFlags convert each event
// straight into its state record.
type Aggregator struct {
	mu sync.Mutex

	pending state.MotionSnapshot
	mask    uint8
}

// New returns an empty aggregator, cycle not yet started.
func New() *Aggregator {
	return &Aggregator{}
}

// Observe folds one decoded feedback event into the in-progress
// snapshot. It returns the snapshot to publish and true if a commit (full
// or partial) just happened, or the zero value and false if the event
// only updated in-progress state with no commit.
//
// Re-arrival of a group that is already set in the current cycle forces
// a partial commit of whatever has accumulated so far before starting a
// fresh cycle with the new event — this is what lets scenario 2's
// "second position group before dyn/pose arrive" publish immediately
// instead of silently overwriting a field.
func (a *Aggregator) Observe(event protocol.FeedbackEvent, timestampUs uint64) (state.MotionSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e := event.(type) {
	case protocol.JointPositionEvent:
		return a.observeGroup(maskPosition, timestampUs, func() {
			a.pending.Positions[e.JointA] = e.PositionA
			a.pending.Positions[e.JointB] = e.PositionB
		})
	case protocol.JointDynamicEvent:
		return a.observeGroup(maskDynamic, timestampUs, func() {
			a.pending.Velocities[e.JointA] = e.VelocityA
			a.pending.Velocities[e.JointB] = e.VelocityB
			a.pending.Torques[e.JointA] = e.TorqueA
			a.pending.Torques[e.JointB] = e.TorqueB
		})
	case protocol.EndPoseEvent:
		return a.observeGroup(maskEndPose, timestampUs, func() {
			if e.HasX {
				a.pending.EndPose.X = e.X
			}
			if e.HasY {
				a.pending.EndPose.Y = e.Y
			}
			if e.HasZ {
				a.pending.EndPose.Z = e.Z
			}
			if e.HasRX {
				a.pending.EndPose.RX = e.RX
			}
			if e.HasRY {
				a.pending.EndPose.RY = e.RY
			}
			if e.HasRZ {
				a.pending.EndPose.RZ = e.RZ
			}
		})
	default:
		return state.MotionSnapshot{}, false
	}
}

// observeGroup applies apply() to the pending snapshot's matching group,
// with re-arrival-forces-partial-commit semantics, then reports whether a
// commit happened. timestampUs is stamped onto the pending snapshot after
// apply() runs, so a committed snapshot always carries the timestamp of
// the most recent frame folded into that cycle, per spec's "publish using
// the most recent frame's timestamp."
func (a *Aggregator) observeGroup(bit uint8, timestampUs uint64, apply func()) (state.MotionSnapshot, bool) {
	if a.mask&bit != 0 {
		// This group already arrived in the current cycle: commit the
		// partial snapshot now, then start a fresh cycle with the new
		// event.
		committed := a.pending
		committed.FrameValidMask = a.mask
		a.pending = state.MotionSnapshot{}
		a.mask = 0
		apply()
		a.pending.TimestampUs = timestampUs
		a.mask |= bit
		return committed, true
	}

	apply()
	a.pending.TimestampUs = timestampUs
	a.mask |= bit
	if a.mask == maskFull {
		committed := a.pending
		committed.FrameValidMask = a.mask
		a.pending = state.MotionSnapshot{}
		a.mask = 0
		return committed, true
	}
	return state.MotionSnapshot{}, false
}

// ObserveGripper commits gripper feedback independently of the motion
// cycle.
func (a *Aggregator) ObserveGripper(e protocol.GripperEvent, timestampUs uint64) state.GripperState {
	return state.GripperState{
		Position:    e.Position,
		Effort:      e.Effort,
		Status:      e.Status,
		TimestampUs: timestampUs,
	}
}

// ObserveControlFlags commits control-flags feedback independently of the
// motion cycle.
func (a *Aggregator) ObserveControlFlags(e protocol.ControlFlagsEvent, timestampUs uint64) state.RobotControlState {
	return state.RobotControlState{
		EnableFlags: e.EnableFlags,
		ActiveMode:  e.ActiveMode,
		FaultBits:   e.FaultBits,
		TimestampUs: timestampUs,
	}
}
