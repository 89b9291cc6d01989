package recording_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/command"
	"github.com/piperbot/piper-go/drivermode"
	"github.com/piperbot/piper-go/hooks"
	"github.com/piperbot/piper-go/recording"
	"github.com/piperbot/piper-go/transport"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestScenario5RecordingRoundTrip(t *testing.T) {
	mgr := hooks.NewManager()
	buf := &bytes.Buffer{}

	rec, err := recording.Start(mgr, nopCloser{buf}, recording.Header{
		InterfaceName: "can0",
		Notes:         recording.Notes{BusBitrate: 1_000_000, OperatorNote: "bench test"},
	}, recording.StopConditions{}, recording.TimestampUserspace, 1_000_000)
	require.NoError(t, err)

	const n = 1000
	for i := 0; i < n; i++ {
		mgr.Broadcast(transport.Frame{
			ID:          0x2A1,
			Len:         8,
			TimestampUs: uint64(1_000_000 + i*1000),
		})
	}
	require.Eventually(t, func() bool { return rec.FrameCount() == n }, time.Second, time.Millisecond)
	rec.Stop()

	header, entries, err := recording.ReadAll(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, "can0", header.InterfaceName)
	require.Equal(t, uint32(1_000_000), header.Notes.BusBitrate)
	require.Len(t, entries, n)

	for i := 1; i < len(entries); i++ {
		require.GreaterOrEqual(t, entries[i].TimestampUs, entries[i-1].TimestampUs)
	}
	require.Equal(t, uint32(0x2A1), entries[0].CanID)
}

func TestRecordingStopsOnMaxFrames(t *testing.T) {
	mgr := hooks.NewManager()
	buf := &bytes.Buffer{}
	rec, err := recording.Start(mgr, nopCloser{buf}, recording.Header{InterfaceName: "can0"},
		recording.StopConditions{MaxFrames: 5}, recording.TimestampKernel, 0)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		mgr.Broadcast(transport.Frame{ID: uint32(i), Len: 8, TimestampUs: uint64(i * 1000)})
	}
	require.Eventually(t, func() bool { return rec.FrameCount() == 5 }, time.Second, time.Millisecond)
}

func TestRecordingStopsOnCanIDFirstOccurrence(t *testing.T) {
	mgr := hooks.NewManager()
	buf := &bytes.Buffer{}
	stopID := uint32(0x2B1)
	rec, err := recording.Start(mgr, nopCloser{buf}, recording.Header{InterfaceName: "can0"},
		recording.StopConditions{OnCanID: &stopID}, recording.TimestampKernel, 0)
	require.NoError(t, err)

	mgr.Broadcast(transport.Frame{ID: 0x100, Len: 8, TimestampUs: 1000})
	mgr.Broadcast(transport.Frame{ID: stopID, Len: 8, TimestampUs: 2000})
	mgr.Broadcast(transport.Frame{ID: 0x100, Len: 8, TimestampUs: 3000})

	require.Eventually(t, func() bool { return rec.FrameCount() == 2 }, time.Second, time.Millisecond)
}

func TestScenario6SpeedClampRejectsOutOfRange(t *testing.T) {
	require.ErrorIs(t, recording.ValidateSpeed(10.0, false), recording.ErrInvalidSpeed)
	require.ErrorIs(t, recording.ValidateSpeed(0.05, true), recording.ErrInvalidSpeed)
}

func TestScenario6SpeedClampAllowsTwoWithoutConfirmation(t *testing.T) {
	require.NoError(t, recording.ValidateSpeed(2.0, false))
}

func TestScenario6SpeedClampRefusesThreeWithoutConfirmation(t *testing.T) {
	require.ErrorIs(t, recording.ValidateSpeed(3.0, false), recording.ErrInvalidSpeed)
	require.NoError(t, recording.ValidateSpeed(3.0, true))
}

func TestReplayRequiresReplayMode(t *testing.T) {
	var mode drivermode.Atomic
	q := command.NewQueue()
	_, err := recording.NewReplayer(nil, &mode, q, 1.0, false)
	require.ErrorIs(t, err, recording.ErrNotInReplayMode)
}

func TestReplayEmitsFramesInOrder(t *testing.T) {
	var mode drivermode.Atomic
	mode.Set(drivermode.Replay)
	q := command.NewQueue()

	entries := []recording.Entry{
		{TimestampUs: 1000, CanID: 0x200},
		{TimestampUs: 1100, CanID: 0x201},
	}
	replayer, err := recording.NewReplayer(entries, &mode, q, 5.0, true)
	require.NoError(t, err)

	err = replayer.Run(context.Background(), time.Now())
	require.NoError(t, err)

	first, ok := q.Receive()
	require.True(t, ok)
	raw, isRaw := first.(command.RawFrame)
	require.True(t, isRaw)
	require.Equal(t, uint32(0x200), raw.Frame.ID)

	second, ok := q.Receive()
	require.True(t, ok)
	raw2 := second.(command.RawFrame)
	require.Equal(t, uint32(0x201), raw2.Frame.ID)
}
