package heartbeat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/heartbeat"
)

func TestLinkOKWhenRxRecent(t *testing.T) {
	m := heartbeat.New(500 * time.Millisecond)
	m.RecordRx(1_000_000)
	health := m.Tick(1_100_000) // 100ms later
	require.True(t, health.LinkOK)
	require.Equal(t, uint64(100_000), health.LastRxAgeUs)
}

func TestLinkNotOKWhenRxStale(t *testing.T) {
	m := heartbeat.New(500 * time.Millisecond)
	m.RecordRx(1_000_000)
	health := m.Tick(2_000_000) // 1s later
	require.False(t, health.LinkOK)
}

func TestLinkNotOKBeforeAnyRx(t *testing.T) {
	m := heartbeat.New(0)
	health := m.Tick(1_000_000)
	require.False(t, health.LinkOK)
}

func TestFPSCountsWithinWindow(t *testing.T) {
	m := heartbeat.New(0)
	base := uint64(10_000_000) // 10s
	for i := 0; i < 20; i++ {
		m.RecordRx(base + uint64(i)*50_000) // every 50ms
	}
	health := m.Tick(base + 1_000_000)
	require.Greater(t, health.RxFPS, 0.0)
}
