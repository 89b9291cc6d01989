package driver

import (
	"time"

	"github.com/piperbot/piper-go/command"
	"github.com/piperbot/piper-go/drivermode"
	"github.com/piperbot/piper-go/protocol"
	"github.com/piperbot/piper-go/transport"
)

// jointTarget is the last position or MIT command set for one joint, kept
// so the periodic drive can re-emit it. The tx worker is the loop's only
// goroutine, so these fields need no locking of their own.
type jointTarget struct {
	hasPosition bool
	position    protocol.Radians
	hasMit      bool
	mit         protocol.MitTarget
}

// runTx is the tx worker: periodic drive (Normal mode only) interleaved
// with on-demand drive draining the command queue, Realtime first.
func (d *Driver) runTx() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.TxPeriod)
	defer ticker.Stop()

	var targets [6]jointTarget

	for {
		// Priority check: a Realtime envelope queued after a Normal one
		// must still be drained first.
		select {
		case env := <-d.Queue.RealtimeCh():
			d.handleEnvelope(env, &targets)
			continue
		default:
		}

		select {
		case env := <-d.Queue.RealtimeCh():
			d.handleEnvelope(env, &targets)

		case env := <-d.Queue.NormalCh():
			d.handleEnvelope(env, &targets)

		case <-ticker.C:
			if d.Mode.Get() == drivermode.Normal {
				d.drivePeriodic(&targets)
			}

		case <-d.Queue.Closed():
			d.drainRemaining(&targets)
			return
		}
	}
}

func (d *Driver) drainRemaining(targets *[6]jointTarget) {
	for {
		env, ok := d.Queue.TryReceive()
		if !ok {
			return
		}
		d.handleEnvelope(env, targets)
	}
}

// drivePeriodic re-emits every joint's last active target indefinitely,
// per the design note resolving Open Question (a): the source implies
// indefinite re-emission, not a bounded refresh window.
func (d *Driver) drivePeriodic(targets *[6]jointTarget) {
	for joint, t := range targets {
		switch {
		case t.hasMit:
			if frame, err := protocol.EncodeMitTarget(joint, t.mit); err == nil {
				d.sendFrame(frame)
			}
		case t.hasPosition:
			if frame, err := protocol.EncodePositionTarget(joint, t.position); err == nil {
				d.sendFrame(frame)
			}
		}
	}
}

func (d *Driver) handleEnvelope(env command.Envelope, targets *[6]jointTarget) {
	switch v := env.(type) {
	case command.PositionTarget:
		if v.Joint >= 0 && v.Joint < 6 {
			targets[v.Joint] = jointTarget{hasPosition: true, position: v.Angle}
		}
	case command.MitTarget:
		if v.Joint >= 0 && v.Joint < 6 {
			targets[v.Joint] = jointTarget{hasMit: true, mit: v.Target}
		}
	case command.Shutdown:
		return
	}

	frame, sendable, err := command.Encode(env)
	if !sendable {
		return
	}
	if err != nil {
		d.logger.Warn("driver: failed to encode command envelope", "error", err)
		return
	}
	d.sendFrame(frame)
}

func (d *Driver) sendFrame(frame transport.Frame) {
	if err := d.tx.Send(frame); err != nil {
		d.logger.Warn("driver: send failed", "error", err)
		return
	}
	d.Heartbeat.RecordTx(uint64(time.Now().UnixMicro()))
}
