// Package client implements the runtime-checked connection state machine
// described by spec.md §4.12: Disconnected, Standby, Active(Mode), Replay.
// It is the one entry object a consumer constructs; everything else
// (driver, recording, protocol) is reached through it.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/piperbot/piper-go/command"
	"github.com/piperbot/piper-go/drivermode"
	"github.com/piperbot/piper-go/driver"
	"github.com/piperbot/piper-go/recording"
	"github.com/piperbot/piper-go/state"
	"github.com/piperbot/piper-go/transport"
)

// State is one of the four states the machine can be in.
type State int

const (
	Disconnected State = iota
	Standby
	Active
	Replay
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Standby:
		return "standby"
	case Active:
		return "active"
	case Replay:
		return "replay"
	default:
		return "unknown"
	}
}

// ArmMode distinguishes the two commandable control modes the arm
// exposes once Active; it is the Mode carried by the Active(Mode) state
// in spec.md's description, tracked here as a plain field the way the
// teacher's NMT/node state is a plain field rather than a type parameter.
type ArmMode uint8

const (
	ArmModePosition ArmMode = 0
	ArmModeMIT      ArmMode = 1
)

// Piper is the single entry object: it owns a driver instance and the
// connection state machine layered on top of it, matching the role the
// teacher's Network facade plays over its lower CANopen packages.
type Piper struct {
	mu    sync.Mutex
	state State
	mode  ArmMode

	drv *driver.Driver
}

// New returns a Piper in the Disconnected state. Call Connect before
// anything else.
func New() *Piper {
	return &Piper{state: Disconnected}
}

// Connect opens the transport backend and starts the driver's rx/tx
// workers, moving Disconnected -> Standby.
func (p *Piper) Connect(backend, channel string, bitrate int, cfg driver.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Disconnected {
		return ErrWrongState
	}
	bus, err := transport.Open(backend, channel, bitrate)
	if err != nil {
		return err
	}
	cfg.Bus = bus
	drv, err := driver.New(cfg)
	if err != nil {
		return err
	}
	p.drv = drv
	go drv.Run()
	p.state = Standby
	return nil
}

// Driver exposes the underlying driver for callers that need direct
// state-store or hook access; it is nil before Connect.
func (p *Piper) Driver() *driver.Driver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.drv
}

// State reports the current state.
func (p *Piper) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// EnablePositionMode moves Standby -> Active(Position).
func (p *Piper) EnablePositionMode() error {
	return p.enable(ArmModePosition)
}

// EnableMitMode moves Standby -> Active(MIT).
func (p *Piper) EnableMitMode() error {
	return p.enable(ArmModeMIT)
}

func (p *Piper) enable(mode ArmMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Standby {
		return ErrWrongState
	}
	p.drv.Mode.Set(drivermode.Normal)
	if err := p.drv.Queue.Send(command.NewSetMode(command.Normal, uint8(mode))); err != nil {
		return err
	}
	if err := p.drv.Queue.Send(command.NewEnable(command.Realtime)); err != nil {
		return err
	}
	p.mode = mode
	p.state = Active
	return nil
}

// Mode reports the arm mode Active was entered with; it is only
// meaningful while State() == Active.
func (p *Piper) Mode() ArmMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// Disable moves Active -> Standby, sending the disable envelope at
// Realtime priority so it overtakes anything already queued.
func (p *Piper) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Active {
		return ErrWrongState
	}
	err := p.drv.Queue.Send(command.NewDisable(command.Realtime))
	p.state = Standby
	return err
}

// EnterReplayMode moves Standby -> Replay, gating the driver's periodic
// tx drive off so the replay sequencer is the only thing emitting frames.
func (p *Piper) EnterReplayMode() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Standby {
		return ErrWrongState
	}
	p.drv.Mode.Set(drivermode.Replay)
	p.state = Replay
	return nil
}

// ReplayRecording runs a recorded entry stream through the driver's
// command queue as RawFrame envelopes, blocking until it finishes, and
// returns Replay -> Standby on completion per spec.md's
// replay_recording transition. It is only callable from Replay, matching
// recording.NewReplayer's own precondition.
func (p *Piper) ReplayRecording(entries []recording.Entry, speed float64, confirmed bool) error {
	p.mu.Lock()
	if p.state != Replay {
		p.mu.Unlock()
		return ErrWrongState
	}
	drv := p.drv
	p.mu.Unlock()

	replayer, err := recording.NewReplayer(entries, drv.Mode, drv.Queue, speed, confirmed)
	if err != nil {
		return err
	}
	if err := replayer.Run(context.Background(), time.Now()); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Replay {
		p.drv.Mode.Set(drivermode.Normal)
		p.state = Standby
	}
	return nil
}

// Drop tears the connection down from any state. If currently Active it
// guarantees a disable attempt first, per spec.md's drop-guarantee; the
// attempt is best-effort, the driver is stopped regardless, and the
// disable error, if any, is the only error Drop returns.
func (p *Piper) Drop() error {
	p.mu.Lock()
	wasActive := p.state == Active
	drv := p.drv
	p.mu.Unlock()

	var disableErr error
	if wasActive {
		disableErr = p.Disable()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if drv != nil {
		drv.Stop()
	}
	p.state = Disconnected
	p.drv = nil
	return disableErr
}

// Controller produces the next command envelope given the latest motion
// snapshot; the control/trajectory math is entirely a consumer concern
// per spec.md, RunLoop only supplies the ticked invocation.
type Controller interface {
	Step(snapshot state.MotionSnapshot) command.Envelope
}
