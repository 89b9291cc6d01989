// Package heartbeat computes connection liveness and frame rate stats
// from rx/tx activity and publishes them both as Prometheus collectors
// and through the state store's connection-health cell.
package heartbeat

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/piperbot/piper-go/state"
)

// DefaultLinkTimeout is how stale the last rx frame may be before
// link_ok flips false.
const DefaultLinkTimeout = 500 * time.Millisecond

const windowSeconds = 5

// rateCounter is a ring buffer of per-second frame counts, giving a
// proper windowed rate instead of a single running total.
type rateCounter struct {
	mu      sync.Mutex
	buckets [windowSeconds]uint64
	bucketSecond int64
}

func (r *rateCounter) record(nowUnix int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotate(nowUnix)
	r.buckets[nowUnix%windowSeconds]++
}

func (r *rateCounter) rotate(nowUnix int64) {
	if nowUnix == r.bucketSecond {
		return
	}
	// Zero every bucket after the last recorded second, up to and
	// including now, so a burst followed by silence decays correctly.
	start := r.bucketSecond + 1
	if nowUnix-r.bucketSecond > windowSeconds {
		start = nowUnix - windowSeconds + 1
	}
	for s := start; s <= nowUnix; s++ {
		r.buckets[((s % windowSeconds) + windowSeconds) % windowSeconds] = 0
	}
	r.bucketSecond = nowUnix
}

func (r *rateCounter) fps(nowUnix int64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rotate(nowUnix)
	var total uint64
	for _, b := range r.buckets {
		total += b
	}
	return float64(total) / windowSeconds
}

// Monitor tracks rx/tx activity and exposes both Prometheus collectors
// and the values published into state.ConnectionHealth.
type Monitor struct {
	linkTimeout time.Duration

	rxRate rateCounter
	txRate rateCounter

	mu        sync.Mutex
	lastRxUs  uint64
	lastTxUs  uint64

	linkOK    prometheus.Gauge
	rxFPS     prometheus.Gauge
	txFPS     prometheus.Gauge
	rxAgeUs   prometheus.Gauge
	txAgeUs   prometheus.Gauge
}

// New constructs a monitor. linkTimeout of 0 selects DefaultLinkTimeout.
func New(linkTimeout time.Duration) *Monitor {
	if linkTimeout <= 0 {
		linkTimeout = DefaultLinkTimeout
	}
	return &Monitor{
		linkTimeout: linkTimeout,
		linkOK: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "piper_link_ok",
			Help: "1 if the last rx frame is within the configured link timeout, else 0.",
		}),
		rxFPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "piper_rx_fps",
			Help: "Received CAN frames per second over a sliding window.",
		}),
		txFPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "piper_tx_fps",
			Help: "Transmitted CAN frames per second over a sliding window.",
		}),
		rxAgeUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "piper_rx_age_us",
			Help: "Microseconds since the last received frame.",
		}),
		txAgeUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "piper_tx_age_us",
			Help: "Microseconds since the last transmitted frame.",
		}),
	}
}

// Collectors returns every metric this monitor owns, for a caller to
// register on its own prometheus.Registerer. The driver never owns an
// HTTP server itself; this keeps metrics opt-in.
func (m *Monitor) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.linkOK, m.rxFPS, m.txFPS, m.rxAgeUs, m.txAgeUs}
}

// RecordRx marks a received frame at timestampUs (microseconds since the
// Unix epoch, matching transport.Frame.TimestampUs).
func (m *Monitor) RecordRx(timestampUs uint64) {
	m.mu.Lock()
	m.lastRxUs = timestampUs
	m.mu.Unlock()
	m.rxRate.record(int64(timestampUs / 1_000_000))
}

// RecordTx marks a transmitted frame at timestampUs.
func (m *Monitor) RecordTx(timestampUs uint64) {
	m.mu.Lock()
	m.lastTxUs = timestampUs
	m.mu.Unlock()
	m.txRate.record(int64(timestampUs / 1_000_000))
}

// Tick computes the current liveness/rate snapshot at nowUs and both
// updates the Prometheus gauges and returns the equivalent
// state.ConnectionHealth fields (minus FatalErr, which the rx worker
// sets directly on a transport failure).
func (m *Monitor) Tick(nowUs uint64) state.ConnectionHealth {
	m.mu.Lock()
	lastRx, lastTx := m.lastRxUs, m.lastTxUs
	m.mu.Unlock()

	rxAge := ageUs(nowUs, lastRx)
	txAge := ageUs(nowUs, lastTx)
	linkOK := lastRx != 0 && time.Duration(rxAge)*time.Microsecond < m.linkTimeout

	nowSec := int64(nowUs / 1_000_000)
	rxFPS := m.rxRate.fps(nowSec)
	txFPS := m.txRate.fps(nowSec)

	m.rxAgeUs.Set(float64(rxAge))
	m.txAgeUs.Set(float64(txAge))
	m.rxFPS.Set(rxFPS)
	m.txFPS.Set(txFPS)
	if linkOK {
		m.linkOK.Set(1)
	} else {
		m.linkOK.Set(0)
	}

	return state.ConnectionHealth{
		LinkOK:      linkOK,
		LastRxAgeUs: rxAge,
		LastTxAgeUs: txAge,
		RxFPS:       rxFPS,
		TxFPS:       txFPS,
	}
}

func ageUs(now, last uint64) uint64 {
	if last == 0 || now < last {
		return 0
	}
	return now - last
}
