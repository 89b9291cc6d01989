// Package hooks implements the rx worker's fan-out to external
// observers: a bounded capacity per sink, non-blocking offers, and a
// per-sink dropped-frame counter so one slow consumer never stalls the
// rx worker. The broadcast shape (copy the sink list under a lock,
// release it, then fan out) means a hook is never invoked while the
// manager's own lock is held.
package hooks

import (
	"sync"
	"sync/atomic"

	"github.com/piperbot/piper-go/transport"
)

const defaultSinkCapacity = 256

// Sink is one registered fan-out destination.
type Sink struct {
	ch      chan transport.Frame
	dropped atomic.Uint64
}

func newSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = defaultSinkCapacity
	}
	return &Sink{ch: make(chan transport.Frame, capacity)}
}

// Frames is the channel a consumer drains on its own goroutine.
func (s *Sink) Frames() <-chan transport.Frame { return s.ch }

// DroppedFrames reports how many frames this sink missed because its
// buffer was full when offered.
func (s *Sink) DroppedFrames() uint64 { return s.dropped.Load() }

func (s *Sink) offer(f transport.Frame) {
	select {
	case s.ch <- f:
	default:
		s.dropped.Add(1)
	}
}

// Handle is returned by Register; the caller keeps it only to
// de-register later via Close. Dropping a Handle without closing it
// leaks the sink until the Manager itself is discarded — callers that
// need de-registration must call Close explicitly, mirroring the
// teacher's handle/closeOnce idiom rather than relying on a finalizer.
type Handle struct {
	sink    *Sink
	manager *Manager
	once    sync.Once
}

// Close removes the sink from the manager's fan-out list. Safe to call
// more than once.
func (h *Handle) Close() {
	h.once.Do(func() {
		h.manager.remove(h.sink)
	})
}

// Manager owns the registered sink list and performs the non-blocking
// fan-out.
type Manager struct {
	mu    sync.RWMutex
	sinks []*Sink
}

// NewManager returns an empty fan-out manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a new sink with the given buffer capacity (0 selects a
// sensible default) and returns it alongside its de-registration handle.
func (m *Manager) Register(capacity int) (*Sink, *Handle) {
	sink := newSink(capacity)
	m.mu.Lock()
	m.sinks = append(m.sinks, sink)
	m.mu.Unlock()
	return sink, &Handle{sink: sink, manager: m}
}

func (m *Manager) remove(target *Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sinks {
		if s == target {
			m.sinks = append(m.sinks[:i], m.sinks[i+1:]...)
			return
		}
	}
}

// Broadcast offers frame to every registered sink. It copies the sink
// list under a read lock, releases it, then performs the non-blocking
// sends — so a slow sink can never hold up the rx worker's next receive.
func (m *Manager) Broadcast(frame transport.Frame) {
	m.mu.RLock()
	sinks := make([]*Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.RUnlock()

	for _, s := range sinks {
		s.offer(frame)
	}
}

// Len reports the current number of registered sinks, mainly for tests
// and diagnostics.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sinks)
}
