package driver

import (
	"time"
)

// heartbeatLoop ticks the heartbeat monitor at cfg.HeartbeatPeriod and
// publishes the resulting liveness/rate snapshot into Store.Connection,
// so link_ok and RxFPS/TxFPS reflect reality even when no rx/tx worker
// has anything new to report this period. It never clobbers a fatal
// transport error the rx worker has already recorded: once FatalErr is
// set, the bus is down for good and no amount of ticking makes it not
// so.
func (d *Driver) heartbeatLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.HeartbeatPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-d.shutdown:
			return
		case <-ticker.C:
			prev, _ := d.Store.Connection.Load()
			if prev.FatalErr != nil {
				continue
			}
			d.Store.Connection.Store(d.Heartbeat.Tick(uint64(time.Now().UnixMicro())))
		}
	}
}
