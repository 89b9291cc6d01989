// Package driver wires the transport, protocol codec, aggregator, state
// store, command queue, mode switch, hook fan-out, and heartbeat monitor
// into the two workers a driver instance owns, rx and tx, plus a
// heartbeat ticker; each runs on its own goroutine for the lifetime of
// the driver.
package driver

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/piperbot/piper-go/aggregator"
	"github.com/piperbot/piper-go/command"
	"github.com/piperbot/piper-go/drivermode"
	"github.com/piperbot/piper-go/heartbeat"
	"github.com/piperbot/piper-go/hooks"
	"github.com/piperbot/piper-go/state"
	"github.com/piperbot/piper-go/transport"
)

// Defaults match spec §5's timeouts.
const (
	DefaultRxPollInterval  = 2 * time.Millisecond
	DefaultTxPeriod        = 1 * time.Millisecond
	DefaultHeartbeatPeriod = 100 * time.Millisecond
	DefaultJoinTimeout     = 2 * time.Second
)

// Config bundles everything a Driver needs at construction. Logger
// defaults to slog.Default() when nil.
type Config struct {
	Bus             transport.Bus
	RxPollInterval  time.Duration
	TxPeriod        time.Duration
	HeartbeatPeriod time.Duration
	JoinTimeout     time.Duration
	Logger          *slog.Logger
}

// Driver owns the rx and tx workers and every component they share.
type Driver struct {
	cfg Config

	rx transport.RxHandle
	tx transport.TxHandle

	Aggregator *aggregator.Aggregator
	Store      *state.Store
	Queue      *command.Queue
	Mode       *drivermode.Atomic
	Hooks      *hooks.Manager
	Heartbeat  *heartbeat.Monitor

	logger *slog.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}

	rxFrameCount atomic.Uint64
	rxErrorCount atomic.Uint64
}

// New splits cfg.Bus and constructs a Driver ready to Run. It does not
// start the workers; call Run for that.
func New(cfg Config) (*Driver, error) {
	if cfg.RxPollInterval <= 0 {
		cfg.RxPollInterval = DefaultRxPollInterval
	}
	if cfg.TxPeriod <= 0 {
		cfg.TxPeriod = DefaultTxPeriod
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = DefaultHeartbeatPeriod
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rx, tx, err := cfg.Bus.Split()
	if err != nil {
		return nil, err
	}

	return &Driver{
		cfg:        cfg,
		rx:         rx,
		tx:         tx,
		Aggregator: aggregator.New(),
		Store:      state.New(),
		Queue:      command.NewQueue(),
		Mode:       &drivermode.Atomic{},
		Hooks:      hooks.NewManager(),
		Heartbeat:  heartbeat.New(0),
		logger:     logger,
		shutdown:   make(chan struct{}),
	}, nil
}

// Run starts the rx, tx, and heartbeat workers and blocks until all three
// have returned. Callers typically invoke it on its own goroutine and use
// Stop to end it.
func (d *Driver) Run() {
	d.wg.Add(3)
	go d.runRx()
	go d.runTx()
	go d.heartbeatLoop()
	d.wg.Wait()
}

// Stop closes the command queue, the sole trigger for tx-worker
// termination, and signals the shutdown flag the rx worker and the
// heartbeat ticker watch. It then waits for all three goroutines to join
// within cfg.JoinTimeout, surfacing a warning
// (not an error) if the bound is exceeded — matching the reference
// driver's Stop/Wait pair, generalized to a bounded join.
func (d *Driver) Stop() {
	close(d.shutdown)
	d.Queue.Close()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d.cfg.JoinTimeout):
		d.logger.Warn("driver: workers did not join within timeout")
	}
}

// RxStats reports running rx counters for diagnostics.
func (d *Driver) RxStats() (frames, errors uint64) {
	return d.rxFrameCount.Load(), d.rxErrorCount.Load()
}
