package driver_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/command"
	"github.com/piperbot/piper-go/driver"
	"github.com/piperbot/piper-go/drivermode"
	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/transport/daemon"
	"github.com/piperbot/piper-go/transport/daemon/daemontest"
)

func newTestDriver(t *testing.T) (*driver.Driver, *daemontest.Server) {
	t.Helper()
	srv, err := daemontest.Listen(filepath.Join(t.TempDir(), "piper-daemon.sock"))
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	bus, err := daemon.Open(srv.Addr(), 0)
	require.NoError(t, err)

	d, err := driver.New(driver.Config{
		Bus:      bus,
		TxPeriod: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	go d.Run()
	t.Cleanup(d.Stop)

	require.Eventually(t, func() bool { return srv.SubscriberCount() >= 1 }, time.Second, time.Millisecond)

	return d, srv
}

// TestReplayModeSuppressesPeriodicDrive exercises spec scenario 4: with an
// active position target queued, switching to Replay mode must stop
// periodic re-emission, and switching back to Normal must resume it within
// one tx cycle.
func TestReplayModeSuppressesPeriodicDrive(t *testing.T) {
	d, srv := newTestDriver(t)

	err := d.Queue.Send(command.NewPositionTarget(command.Normal, 0, protocol.DegreesToRadians(10)))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return countFramesWithID(srv, protocol.IDPositionTarget, 20*time.Millisecond) > 0
	}, time.Second, 5*time.Millisecond)

	d.Mode.Set(drivermode.Replay)

	drainFrames(srv, 30*time.Millisecond)
	require.Equal(t, 0, countFramesWithID(srv, protocol.IDPositionTarget, 50*time.Millisecond))

	d.Mode.Set(drivermode.Normal)

	require.Eventually(t, func() bool {
		return countFramesWithID(srv, protocol.IDPositionTarget, 20*time.Millisecond) > 0
	}, time.Second, 5*time.Millisecond)
}

func countFramesWithID(srv *daemontest.Server, id uint32, window time.Duration) int {
	deadline := time.After(window)
	count := 0
	for {
		select {
		case f := <-srv.Received():
			if f.ID == id {
				count++
			}
		case <-deadline:
			return count
		}
	}
}

func drainFrames(srv *daemontest.Server, window time.Duration) {
	deadline := time.After(window)
	for {
		select {
		case <-srv.Received():
		case <-deadline:
			return
		}
	}
}
