package protocol

import (
	"encoding/binary"

	"github.com/piperbot/piper-go/transport"
)

// EncodeEnable builds the enable/disable command frame.
func EncodeEnable(enable bool) transport.Frame {
	var b byte
	if enable {
		b = 1
	}
	return transport.NewFrame(IDEnableDisable, []byte{b})
}

// EncodeModeSelect builds the mode-select command frame carrying the
// arm's own raw mode byte (distinct from drivermode.Mode, which
// gates the driver's own tx loop rather than the arm's operating mode).
func EncodeModeSelect(mode uint8) transport.Frame {
	return transport.NewFrame(IDModeSelect, []byte{mode})
}

// EncodePositionTarget builds the position-target command frame for one
// joint (0-based, J1..J6 -> 0..5), in 0.001° fixed-point.
func EncodePositionTarget(joint int, angle Radians) (transport.Frame, error) {
	if joint < 0 || joint > 5 {
		return transport.Frame{}, outOfRange(jointIDForPositionTarget(joint), "joint index must be 0..5")
	}
	milliDegrees := int32(RadiansToDegrees(angle) * 1000)
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(milliDegrees))
	return transport.NewFrame(jointIDForPositionTarget(joint), buf), nil
}

// MitTarget is the per-joint target for MIT-mode commanding.
type MitTarget struct {
	Position Radians
	Velocity RadiansPerSecond
	Torque   NewtonMetres
	Kp       float64 // 0..250, scale 1.0
	Kd       float64 // 0..25.0, scale 0.1
}

// EncodeMitTarget packs an MIT-mode target for one joint into the full 8
// bytes: position int16 BE (0.1°), velocity int16 BE (0.01 rad/s),
// torque int16 BE (0.01 Nm), kp uint8 (scale 1.0), kd uint8 (scale 0.1).
func EncodeMitTarget(joint int, t MitTarget) (transport.Frame, error) {
	if joint < 0 || joint > 5 {
		return transport.Frame{}, outOfRange(jointIDForMitTarget(joint), "joint index must be 0..5")
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(int16(RadiansToDegrees(t.Position)*10)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(int16(t.Velocity*100)))
	binary.BigEndian.PutUint16(buf[4:6], uint16(int16(t.Torque*100)))
	buf[6] = uint8(t.Kp)
	buf[7] = uint8(t.Kd * 10)
	return transport.NewFrame(jointIDForMitTarget(joint), buf), nil
}

// EncodeGripperSet builds the gripper-set command frame.
func EncodeGripperSet(position Millimetres, effort Newtons) transport.Frame {
	buf := make([]byte, 6)
	binary.BigEndian.PutUint32(buf[0:4], uint32(position*1000))
	binary.BigEndian.PutUint16(buf[4:6], uint16(effort*1000))
	return transport.NewFrame(IDGripperSet, buf)
}
