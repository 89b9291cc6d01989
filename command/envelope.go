// Package command defines the envelopes a client submits to the tx
// worker and the priority channel that carries them. Envelopes carry no
// back-reference to their sender.
package command

import (
	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/transport"
)

// Priority classifies an Envelope for the tx worker's two-FIFO drain
// order: Realtime always overtakes Normal and Bulk.
type Priority int

const (
	Bulk Priority = iota
	Normal
	Realtime
)

// Envelope is the closed set of things a client can ask the tx worker to
// do. Concrete variants are the exported structs below, closed off by the
// unexported isEnvelope method; Go has no sum types, so this mirrors the
// teacher's closed-variant-per-message style rather than a tagged union.
type Envelope interface {
	Priority() Priority
	isEnvelope()
}

type base struct{ priority Priority }

func (b base) Priority() Priority { return b.priority }
func (base) isEnvelope()          {}

// Enable requests the enable command frame.
type Enable struct {
	base
}

// Disable requests the disable command frame.
type Disable struct {
	base
}

// SetMode requests the arm's own mode-select command frame.
type SetMode struct {
	base
	Mode uint8
}

// PositionTarget requests a per-joint position target frame.
type PositionTarget struct {
	base
	Joint int
	Angle protocol.Radians
}

// MitTarget requests a per-joint MIT-mode target frame.
type MitTarget struct {
	base
	Joint  int
	Target protocol.MitTarget
}

// GripperSet requests the gripper-set command frame.
type GripperSet struct {
	base
	Position protocol.Millimetres
	Effort   protocol.Newtons
}

// RawFrame sends a frame as-is, bypassing the codec. The replay
// sequencer uses this to re-emit recorded frames verbatim.
type RawFrame struct {
	base
	Frame transport.Frame
}

// Shutdown has no wire form: the tx worker discards it without sending
// anything and keeps running. The tx worker terminates only when the
// Queue is closed.
type Shutdown struct {
	base
}

// NewEnable, NewDisable, ... construct envelopes with an explicit
// priority; callers normally use Normal unless they have a reason not
// to.
func NewEnable(p Priority) Enable   { return Enable{base{p}} }
func NewDisable(p Priority) Disable { return Disable{base{p}} }
func NewSetMode(p Priority, mode uint8) SetMode {
	return SetMode{base{p}, mode}
}
func NewPositionTarget(p Priority, joint int, angle protocol.Radians) PositionTarget {
	return PositionTarget{base{p}, joint, angle}
}
func NewMitTarget(p Priority, joint int, target protocol.MitTarget) MitTarget {
	return MitTarget{base{p}, joint, target}
}
func NewGripperSet(p Priority, position protocol.Millimetres, effort protocol.Newtons) GripperSet {
	return GripperSet{base{p}, position, effort}
}
func NewRawFrame(p Priority, frame transport.Frame) RawFrame {
	return RawFrame{base{p}, frame}
}
func NewShutdown() Shutdown { return Shutdown{base{Realtime}} }

// Encode translates an envelope into the wire frame the tx worker sends,
// using the protocol codec. Shutdown has no wire form and is handled by
// the tx worker directly.
func Encode(e Envelope) (transport.Frame, bool, error) {
	switch v := e.(type) {
	case Enable:
		return protocol.EncodeEnable(true), true, nil
	case Disable:
		return protocol.EncodeEnable(false), true, nil
	case SetMode:
		return protocol.EncodeModeSelect(v.Mode), true, nil
	case PositionTarget:
		f, err := protocol.EncodePositionTarget(v.Joint, v.Angle)
		return f, true, err
	case MitTarget:
		f, err := protocol.EncodeMitTarget(v.Joint, v.Target)
		return f, true, err
	case GripperSet:
		return protocol.EncodeGripperSet(v.Position, v.Effort), true, nil
	case RawFrame:
		return v.Frame, true, nil
	default:
		return transport.Frame{}, false, nil
	}
}
