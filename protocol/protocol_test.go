package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/transport"
)

func TestEncodePositionTargetUsesExpectedFrameIDsAndLength(t *testing.T) {
	for joint := 0; joint < 6; joint++ {
		frame, err := protocol.EncodePositionTarget(joint, protocol.DegreesToRadians(12.345))
		require.NoError(t, err)
		require.Equal(t, protocol.IDPositionTarget+uint32(joint), frame.ID)
		require.Equal(t, uint8(4), frame.Len)
	}
}

func TestEncodePositionTargetRejectsBadJoint(t *testing.T) {
	_, err := protocol.EncodePositionTarget(6, 0)
	require.Error(t, err)
	var de *protocol.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, protocol.OutOfRange, de.Kind)
}

func TestDecodeJointPositionGroupScenario1(t *testing.T) {
	// J1=0.5 rad (~28.6479°) encoded as milli-degrees, J2 arbitrary.
	j1 := protocol.DegreesToRadians(protocol.RadiansToDegrees(0.5))
	frame, err := encodeJointPositionPair(protocol.IDJointPosition01, j1, protocol.DegreesToRadians(10))
	require.NoError(t, err)

	event, err := protocol.DecodeFeedback(frame)
	require.NoError(t, err)

	pos, ok := event.(protocol.JointPositionEvent)
	require.True(t, ok)
	require.Equal(t, 0, pos.JointA)
	require.Equal(t, 1, pos.JointB)
	require.InDelta(t, 0.5, float64(pos.PositionA), 0.0001)
}

func TestDecodeUnknownID(t *testing.T) {
	frame := transport.NewFrame(0xDEAD, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	_, err := protocol.DecodeFeedback(frame)
	require.Error(t, err)
	var de *protocol.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, protocol.UnknownID, de.Kind)
}

func TestDecodeWrongLength(t *testing.T) {
	frame := transport.NewFrame(protocol.IDJointPosition01, []byte{1, 2, 3})
	_, err := protocol.DecodeFeedback(frame)
	require.Error(t, err)
	var de *protocol.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, protocol.WrongLength, de.Kind)
}

func TestEndPoseGroupRoundTrip(t *testing.T) {
	xy := transport.NewFrame(protocol.IDEndPoseXY, encodeI32Pair(100000, 200000))
	zr := transport.NewFrame(protocol.IDEndPoseZR, encodeI32Pair(300000, 0))
	rr := transport.NewFrame(protocol.IDEndPoseRR, encodeI32Pair(0, 0))

	xyEvt, err := protocol.DecodeFeedback(xy)
	require.NoError(t, err)
	pose := xyEvt.(protocol.EndPoseEvent)
	require.True(t, pose.HasX && pose.HasY)
	require.InDelta(t, 100.0, float64(pose.X), 0.001)
	require.InDelta(t, 200.0, float64(pose.Y), 0.001)

	zrEvt, err := protocol.DecodeFeedback(zr)
	require.NoError(t, err)
	zPose := zrEvt.(protocol.EndPoseEvent)
	require.True(t, zPose.HasZ && zPose.HasRX)
	require.InDelta(t, 300.0, float64(zPose.Z), 0.001)

	rrEvt, err := protocol.DecodeFeedback(rr)
	require.NoError(t, err)
	rPose := rrEvt.(protocol.EndPoseEvent)
	require.True(t, rPose.HasRY && rPose.HasRZ)
}

func TestGripperFeedbackRoundTrip(t *testing.T) {
	data := make([]byte, 7)
	data[0], data[1], data[2], data[3] = 0, 0, 0x27, 0x10 // 10000 -> 10.0mm
	data[4], data[5] = 0x03, 0xE8                         // 1000 -> 1.0N
	data[6] = 1
	frame := transport.NewFrame(protocol.IDGripperFeedback, data)

	evt, err := protocol.DecodeFeedback(frame)
	require.NoError(t, err)
	g := evt.(protocol.GripperEvent)
	require.InDelta(t, 10.0, float64(g.Position), 0.001)
	require.InDelta(t, 1.0, float64(g.Effort), 0.001)
	require.Equal(t, uint8(1), g.Status)
}

func TestEncodeMitTargetPacksEightBytes(t *testing.T) {
	frame, err := protocol.EncodeMitTarget(2, protocol.MitTarget{
		Position: protocol.DegreesToRadians(5),
		Velocity: 1.5,
		Torque:   2.0,
		Kp:       100,
		Kd:       2.5,
	})
	require.NoError(t, err)
	require.Equal(t, protocol.IDMitTarget+2, frame.ID)
	require.Equal(t, uint8(8), frame.Len)
	require.Equal(t, uint8(100), frame.Data[6])
	require.Equal(t, uint8(25), frame.Data[7])
}

func TestEncodeMitTargetRejectsBadJoint(t *testing.T) {
	_, err := protocol.EncodeMitTarget(-1, protocol.MitTarget{})
	require.Error(t, err)
}

func TestEncodeGripperSet(t *testing.T) {
	frame := protocol.EncodeGripperSet(25.5, 3.2)
	require.Equal(t, protocol.IDGripperSet, frame.ID)
	require.Equal(t, uint8(6), frame.Len)
}

func encodeI32Pair(a, b int32) []byte {
	buf := make([]byte, 8)
	putI32(buf[0:4], a)
	putI32(buf[4:8], b)
	return buf
}

func putI32(buf []byte, v int32) {
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
}

func encodeJointPositionPair(id uint32, a, b protocol.Radians) (transport.Frame, error) {
	buf := make([]byte, 8)
	putI32(buf[0:4], int32(protocol.RadiansToDegrees(a)*1000))
	putI32(buf[4:8], int32(protocol.RadiansToDegrees(b)*1000))
	return transport.NewFrame(id, buf), nil
}
