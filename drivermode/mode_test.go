package drivermode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/drivermode"
)

func TestZeroValueIsNormal(t *testing.T) {
	var m drivermode.Atomic
	require.Equal(t, drivermode.Normal, m.Get())
}

func TestSetAndGet(t *testing.T) {
	var m drivermode.Atomic
	m.Set(drivermode.Replay)
	require.Equal(t, drivermode.Replay, m.Get())
}

func TestCompareAndSwap(t *testing.T) {
	var m drivermode.Atomic
	require.True(t, m.CompareAndSwap(drivermode.Normal, drivermode.Replay))
	require.Equal(t, drivermode.Replay, m.Get())
	require.False(t, m.CompareAndSwap(drivermode.Normal, drivermode.Replay))
}

func TestModeString(t *testing.T) {
	require.Equal(t, "normal", drivermode.Normal.String())
	require.Equal(t, "replay", drivermode.Replay.String())
}
