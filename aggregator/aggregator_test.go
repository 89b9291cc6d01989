package aggregator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/aggregator"
	"github.com/piperbot/piper-go/protocol"
)

func TestScenario1SnapshotCommitsOnAllThreeGroups(t *testing.T) {
	agg := aggregator.New()

	_, committed := agg.Observe(protocol.JointPositionEvent{
		JointA: 0, JointB: 1,
		PositionA: 0.5, PositionB: 0.1,
	}, 1000)
	require.False(t, committed)

	_, committed = agg.Observe(protocol.JointDynamicEvent{JointA: 0, JointB: 1}, 2000)
	require.False(t, committed)

	snap, committed := agg.Observe(protocol.EndPoseEvent{
		HasX: true, HasY: true, HasZ: true,
		X: 100, Y: 200, Z: 300,
	}, 3000)
	require.True(t, committed)
	require.True(t, snap.Consistent())
	require.InDelta(t, 0.5, float64(snap.Positions[0]), 0.0001)
	require.Equal(t, uint64(3000), snap.TimestampUs)
}

func TestScenario2PartialCommitOnRearrival(t *testing.T) {
	agg := aggregator.New()

	_, committed := agg.Observe(protocol.JointPositionEvent{JointA: 0, JointB: 1, PositionA: 1}, 1000)
	require.False(t, committed)

	snap, committed := agg.Observe(protocol.JointPositionEvent{JointA: 0, JointB: 1, PositionA: 2}, 2000)
	require.True(t, committed)
	require.Equal(t, uint8(0b001), snap.FrameValidMask)
	require.False(t, snap.Consistent())
	require.Equal(t, protocol.Radians(1), snap.Positions[0])
	require.Equal(t, uint64(1000), snap.TimestampUs)
}

func TestOtherCategoriesCommitIndependently(t *testing.T) {
	agg := aggregator.New()
	gripper := agg.ObserveGripper(protocol.GripperEvent{Position: 12, Status: 1}, 5000)
	require.Equal(t, protocol.Millimetres(12), gripper.Position)
	require.Equal(t, uint64(5000), gripper.TimestampUs)

	control := agg.ObserveControlFlags(protocol.ControlFlagsEvent{ActiveMode: 2}, 6000)
	require.Equal(t, uint8(2), control.ActiveMode)
	require.Equal(t, uint64(6000), control.TimestampUs)
}
