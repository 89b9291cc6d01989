package daemon

import (
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/piperbot/piper-go/transport"
)

func init() {
	transport.Register("daemon", Open)
}

// heartbeatInterval is sent well under the 10s cadence the wire contract
// requires and far under the default 30s client_timeout, so a single lost
// datagram never drops the subscription.
const heartbeatInterval = 3 * time.Second

// Bus is a thin socket participant: it owns no CAN hardware, it just
// speaks the daemon's local protocol. The daemon process that owns the
// GS-USB device and its process supervision are out of scope.
type Bus struct {
	conn net.Conn

	mu     sync.Mutex
	closed bool

	stopHeartbeat chan struct{}
	wg            sync.WaitGroup
}

// Open dials a daemon endpoint. channel is either a filesystem path to a
// Unix domain socket (the default transport) or "udp:host:port" for
// cross-host debugging.
func Open(channel string, bitrate int) (transport.Bus, error) {
	network, address := "unix", channel
	if rest, ok := strings.CutPrefix(channel, "udp:"); ok {
		network, address = "udp", rest
	}
	conn, err := net.Dial(network, address)
	if err != nil {
		return nil, transport.NewDeviceError(transport.DeviceNotFound, err)
	}
	b := &Bus{conn: conn, stopHeartbeat: make(chan struct{})}
	if err := b.subscribe(); err != nil {
		conn.Close()
		return nil, err
	}
	b.wg.Add(1)
	go b.heartbeatLoop()
	return b, nil
}

func (b *Bus) subscribe() error {
	_, err := b.conn.Write(encodeMessage(message{Opcode: OpSubscribe}))
	return err
}

func (b *Bus) heartbeatLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopHeartbeat:
			return
		case <-ticker.C:
			_, _ = b.conn.Write(encodeMessage(message{Opcode: OpHeartbeat}))
		}
	}
}

func (b *Bus) Send(frame transport.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return transport.ErrNotStarted
	}
	_, err := b.conn.Write(encodeMessage(messageFromFrame(OpData, frame)))
	if err != nil {
		return transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	return nil
}

func (b *Bus) Receive(timeout time.Duration) (transport.Frame, error) {
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	_ = b.conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, messageSize)
	// io.ReadFull reconstructs the fixed-size record even over a
	// stream-oriented "unix" socket, which does not preserve datagram
	// boundaries the way "udp" or "unixgram" would.
	_, err := io.ReadFull(b.conn, buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return transport.Frame{}, transport.ErrTimeout
		}
		return transport.Frame{}, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	m, err := decodeMessage(buf)
	if err != nil {
		return transport.Frame{}, transport.ErrInvalidFrame
	}
	if m.Opcode == OpError {
		return transport.Frame{}, transport.NewDeviceError(transport.DeviceBackendSpecific, errDaemonError)
	}
	return frameFromMessage(m), nil
}

func (b *Bus) TryReceive() (transport.Frame, bool, error) {
	f, err := b.Receive(time.Millisecond)
	if err == transport.ErrTimeout {
		return transport.Frame{}, false, nil
	}
	if err != nil {
		return transport.Frame{}, false, err
	}
	return f, true, nil
}

// Split hands both halves the one connection: Send serializes on the
// bus mutex, Receive takes no lock. There is no descriptor to duplicate
// over a connected socket.
func (b *Bus) Split() (transport.RxHandle, transport.TxHandle, error) {
	return &rxHandle{bus: b}, &txHandle{bus: b}, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.stopHeartbeat)
	_, _ = b.conn.Write(encodeMessage(message{Opcode: OpUnsubscribe}))
	err := b.conn.Close()
	b.wg.Wait()
	return err
}

type rxHandle struct{ bus *Bus }

func (h *rxHandle) Receive(timeout time.Duration) (transport.Frame, error) { return h.bus.Receive(timeout) }
func (h *rxHandle) TryReceive() (transport.Frame, bool, error)             { return h.bus.TryReceive() }
func (h *rxHandle) Close() error                                          { return nil }

type txHandle struct{ bus *Bus }

func (h *txHandle) Send(frame transport.Frame) error { return h.bus.Send(frame) }
func (h *txHandle) Close() error                     { return nil }
