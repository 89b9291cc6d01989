package state_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/state"
)

func TestCellLoadBeforeStore(t *testing.T) {
	var c state.Cell[int]
	v, ok := c.Load()
	require.False(t, ok)
	require.Zero(t, v)
}

func TestCellStoreLoadRoundTrip(t *testing.T) {
	var c state.Cell[state.MotionSnapshot]
	want := state.MotionSnapshot{FrameValidMask: 0b111, TimestampUs: 42}
	c.Store(want)
	got, ok := c.Load()
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestMotionSnapshotConsistent(t *testing.T) {
	require.True(t, state.MotionSnapshot{FrameValidMask: 0b111}.Consistent())
	require.False(t, state.MotionSnapshot{FrameValidMask: 0b011}.Consistent())
}

func TestNoTornReadsUnderConcurrentWriters(t *testing.T) {
	var c state.Cell[state.MotionSnapshot]
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Store(state.MotionSnapshot{TimestampUs: uint64(i), FrameValidMask: 0b111})
		}(i)
	}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			v, ok := c.Load()
			if ok {
				require.Equal(t, uint8(0b111), v.FrameValidMask)
			}
		}
		close(done)
	}()
	wg.Wait()
	<-done
}

func TestStoreSnapshotComposesAllCells(t *testing.T) {
	s := state.New()
	s.Motion.Store(state.MotionSnapshot{FrameValidMask: 0b111})
	s.Gripper.Store(state.GripperState{Position: 10})
	s.Control.Store(state.RobotControlState{ActiveMode: 3})
	s.Connection.Store(state.ConnectionHealth{LinkOK: true})

	snap := s.Snapshot()
	require.True(t, snap.Motion.Consistent())
	require.Equal(t, protocol.Millimetres(10), snap.Gripper.Position)
	require.Equal(t, uint8(3), snap.Control.ActiveMode)
	require.True(t, snap.Connection.LinkOK)
}
