package client_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/client"
	"github.com/piperbot/piper-go/driver"
	"github.com/piperbot/piper-go/protocol"
	_ "github.com/piperbot/piper-go/transport/daemon"
	"github.com/piperbot/piper-go/transport/daemon/daemontest"
)

func newConnected(t *testing.T) (*client.Piper, *daemontest.Server) {
	t.Helper()
	srv, err := daemontest.Listen(filepath.Join(t.TempDir(), "piper-daemon.sock"))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	p := client.New()
	require.Equal(t, client.Disconnected, p.State())

	err = p.Connect("daemon", srv.Addr(), 0, driver.Config{TxPeriod: 5 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, client.Standby, p.State())

	return p, srv
}

func TestConnectRequiresDisconnectedState(t *testing.T) {
	p, _ := newConnected(t)
	err := p.Connect("daemon", "whatever", 0, driver.Config{})
	require.ErrorIs(t, err, client.ErrWrongState)
}

func TestEnableRequiresStandby(t *testing.T) {
	p := client.New()
	require.ErrorIs(t, p.EnablePositionMode(), client.ErrWrongState)
}

func TestEnableDisableCycle(t *testing.T) {
	p, _ := newConnected(t)

	require.NoError(t, p.EnablePositionMode())
	require.Equal(t, client.Active, p.State())
	require.Equal(t, client.ArmModePosition, p.Mode())

	require.NoError(t, p.Disable())
	require.Equal(t, client.Standby, p.State())
}

func TestDisableRequiresActive(t *testing.T) {
	p, _ := newConnected(t)
	require.ErrorIs(t, p.Disable(), client.ErrWrongState)
}

func TestEnterReplayModeRequiresStandby(t *testing.T) {
	p, _ := newConnected(t)
	require.NoError(t, p.EnablePositionMode())
	require.ErrorIs(t, p.EnterReplayMode(), client.ErrWrongState)
}

func TestReplayRecordingRequiresReplayState(t *testing.T) {
	p, _ := newConnected(t)
	err := p.ReplayRecording(nil, 1.0, false)
	require.ErrorIs(t, err, client.ErrWrongState)
}

func TestDropFromActiveAttemptsDisableFirst(t *testing.T) {
	p, srv := newConnected(t)
	require.NoError(t, p.EnablePositionMode())

	require.NoError(t, p.Drop())
	require.Equal(t, client.Disconnected, p.State())

	// The disable command frame (enable/disable ID, data[0] == 0) reaches
	// the bus.
	require.Eventually(t, func() bool {
		for {
			select {
			case f := <-srv.Received():
				if f.ID == protocol.IDEnableDisable && f.Data[0] == 0 {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestRunLoopRequiresActiveState(t *testing.T) {
	p, _ := newConnected(t)
	err := p.RunLoop(nil, nil, time.Millisecond)
	require.ErrorIs(t, err, client.ErrWrongState)
}
