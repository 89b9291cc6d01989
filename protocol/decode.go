package protocol

import (
	"encoding/binary"

	"github.com/piperbot/piper-go/transport"
)

// DecodeFeedback decodes one feedback frame into the closed FeedbackEvent
// set, dispatching on the frame's CAN ID. It is total over the input
// byte space: every frame ID this package recognizes is handled, and any
// other ID yields an UnknownID error.
func DecodeFeedback(f transport.Frame) (FeedbackEvent, error) {
	switch f.ID {
	case IDJointPosition01, IDJointPosition23, IDJointPosition45:
		return decodeJointPosition(f)
	case IDJointDynamic01, IDJointDynamic23, IDJointDynamic45:
		return decodeJointDynamic(f)
	case IDEndPoseXY:
		return decodeEndPoseXY(f)
	case IDEndPoseZR:
		return decodeEndPoseZR(f)
	case IDEndPoseRR:
		return decodeEndPoseRR(f)
	case IDGripperFeedback:
		return decodeGripper(f)
	case IDControlFlagsFeedback:
		return decodeControlFlags(f)
	default:
		return nil, unknownID(f.ID)
	}
}

func decodeJointPosition(f transport.Frame) (FeedbackEvent, error) {
	if f.Len != 8 {
		return nil, wrongLength(f.ID, int(f.Len), 8)
	}
	joints := positionFrameJoints[f.ID]
	a := int32(binary.BigEndian.Uint32(f.Data[0:4]))
	b := int32(binary.BigEndian.Uint32(f.Data[4:8]))
	return JointPositionEvent{
		JointA:    joints[0],
		JointB:    joints[1],
		PositionA: DegreesToRadians(float64(a) / 1000),
		PositionB: DegreesToRadians(float64(b) / 1000),
	}, nil
}

func decodeJointDynamic(f transport.Frame) (FeedbackEvent, error) {
	if f.Len != 8 {
		return nil, wrongLength(f.ID, int(f.Len), 8)
	}
	joints := dynamicFrameJoints[f.ID]
	velA := int16(binary.BigEndian.Uint16(f.Data[0:2]))
	torqueA := int16(binary.BigEndian.Uint16(f.Data[2:4]))
	velB := int16(binary.BigEndian.Uint16(f.Data[4:6]))
	torqueB := int16(binary.BigEndian.Uint16(f.Data[6:8]))
	return JointDynamicEvent{
		JointA:    joints[0],
		JointB:    joints[1],
		VelocityA: RadiansPerSecond(float64(velA) / 100),
		VelocityB: RadiansPerSecond(float64(velB) / 100),
		TorqueA:   NewtonMetres(float64(torqueA) / 1000),
		TorqueB:   NewtonMetres(float64(torqueB) / 1000),
	}, nil
}

func decodeEndPoseXY(f transport.Frame) (FeedbackEvent, error) {
	if f.Len != 8 {
		return nil, wrongLength(f.ID, int(f.Len), 8)
	}
	x := int32(binary.BigEndian.Uint32(f.Data[0:4]))
	y := int32(binary.BigEndian.Uint32(f.Data[4:8]))
	return EndPoseEvent{
		HasX: true, HasY: true,
		X: Millimetres(float64(x) / 1000),
		Y: Millimetres(float64(y) / 1000),
	}, nil
}

func decodeEndPoseZR(f transport.Frame) (FeedbackEvent, error) {
	if f.Len != 8 {
		return nil, wrongLength(f.ID, int(f.Len), 8)
	}
	z := int32(binary.BigEndian.Uint32(f.Data[0:4]))
	rx := int32(binary.BigEndian.Uint32(f.Data[4:8]))
	return EndPoseEvent{
		HasZ: true, HasRX: true,
		Z:  Millimetres(float64(z) / 1000),
		RX: DegreesToRadians(float64(rx) / 1000),
	}, nil
}

func decodeEndPoseRR(f transport.Frame) (FeedbackEvent, error) {
	if f.Len != 8 {
		return nil, wrongLength(f.ID, int(f.Len), 8)
	}
	ry := int32(binary.BigEndian.Uint32(f.Data[0:4]))
	rz := int32(binary.BigEndian.Uint32(f.Data[4:8]))
	return EndPoseEvent{
		HasRY: true, HasRZ: true,
		RY: DegreesToRadians(float64(ry) / 1000),
		RZ: DegreesToRadians(float64(rz) / 1000),
	}, nil
}

func decodeGripper(f transport.Frame) (FeedbackEvent, error) {
	if f.Len < 7 {
		return nil, wrongLength(f.ID, int(f.Len), 7)
	}
	position := binary.BigEndian.Uint32(f.Data[0:4])
	effort := binary.BigEndian.Uint16(f.Data[4:6])
	return GripperEvent{
		Position: Millimetres(float64(position) / 1000),
		Effort:   Newtons(float64(effort) / 1000),
		Status:   f.Data[6],
	}, nil
}

func decodeControlFlags(f transport.Frame) (FeedbackEvent, error) {
	if f.Len < 4 {
		return nil, wrongLength(f.ID, int(f.Len), 4)
	}
	return ControlFlagsEvent{
		EnableFlags: f.Data[0],
		ActiveMode:  f.Data[1],
		FaultBits:   binary.BigEndian.Uint16(f.Data[2:4]),
	}, nil
}
