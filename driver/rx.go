package driver

import (
	"time"

	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/transport"
)

// runRx is the rx worker: it owns the sole write path into the
// aggregator and the motion/gripper/control-flags state cells.
func (d *Driver) runRx() {
	defer d.wg.Done()

	raisePriority(d.logger)

	for {
		select {
		case <-d.shutdown:
			return
		default:
		}

		frame, err := d.rx.Receive(d.cfg.RxPollInterval)
		if err == transport.ErrTimeout {
			continue
		}
		if err != nil {
			if transport.IsFatal(err) {
				health, _ := d.Store.Connection.Load()
				health.FatalErr = err
				health.LinkOK = false
				d.Store.Connection.Store(health)
				d.logger.Error("driver: fatal transport error, rx worker exiting", "error", err)
				return
			}
			// Non-fatal: count and keep polling.
			d.rxErrorCount.Add(1)
			continue
		}

		d.rxFrameCount.Add(1)
		ts := nowUs(frame.TimestampUs)
		d.Heartbeat.RecordRx(ts)
		d.Hooks.Broadcast(frame)

		event, err := protocol.DecodeFeedback(frame)
		if err != nil {
			// Unrecognized or malformed frame: counted and dropped, the
			// hook fan-out above already saw the raw bytes.
			d.rxErrorCount.Add(1)
			continue
		}
		d.applyFeedback(event, ts)
	}
}

func (d *Driver) applyFeedback(event protocol.FeedbackEvent, timestampUs uint64) {
	switch e := event.(type) {
	case protocol.JointPositionEvent, protocol.JointDynamicEvent, protocol.EndPoseEvent:
		if snap, committed := d.Aggregator.Observe(event, timestampUs); committed {
			d.Store.Motion.Store(snap)
		}
	case protocol.GripperEvent:
		d.Store.Gripper.Store(d.Aggregator.ObserveGripper(e, timestampUs))
	case protocol.ControlFlagsEvent:
		d.Store.Control.Store(d.Aggregator.ObserveControlFlags(e, timestampUs))
	}
}

func nowUs(frameTimestamp uint64) uint64 {
	if frameTimestamp != 0 {
		return frameTimestamp
	}
	return uint64(time.Now().UnixMicro())
}
