// Package transport provides a hardware-abstracted CAN 2.0 bus used by the
// driver. Concrete backends (SocketCAN, GS-USB, the daemon client) register
// themselves under a name and are looked up through Open.
package transport

import (
	"fmt"
	"time"
)

// Frame is the fixed-size CAN transport unit exchanged between the driver
// and a Bus implementation. It has copy semantics and never allocates on
// the hot path.
type Frame struct {
	ID         uint32
	Data       [8]byte
	Len        uint8
	Extended   bool
	TimestampUs uint64
}

// NewFrame builds a standard (11-bit) frame from a data slice, truncating
// or zero-padding to 8 bytes.
func NewFrame(id uint32, data []byte) Frame {
	var f Frame
	f.ID = id
	n := len(data)
	if n > 8 {
		n = 8
	}
	copy(f.Data[:], data[:n])
	f.Len = uint8(n)
	return f
}

// NewExtendedFrame builds a 29-bit extended frame.
func NewExtendedFrame(id uint32, data []byte) Frame {
	f := NewFrame(id, data)
	f.Extended = true
	return f
}

// Bus is the contract the driver consumes. Implementations may be used
// from two different goroutines after Split, never concurrently on the
// same handle before that.
type Bus interface {
	// Send blocks up to an internal bound; the frame is copied.
	Send(frame Frame) error
	// Receive blocks up to receiveTimeout. A timeout returns ErrTimeout
	// distinctly from other errors.
	Receive(receiveTimeout time.Duration) (Frame, error)
	// TryReceive reports (zero, false, nil) when no frame arrives within
	// about a millisecond: the backends in this module implement it as a
	// Receive with a 1 ms timeout, so it does not return immediately on
	// an idle bus.
	TryReceive() (Frame, bool, error)
	// Split yields two independent endpoints that may be driven from
	// separate goroutines; the receiver is consumed afterwards.
	Split() (RxHandle, TxHandle, error)
	// Close releases the underlying device.
	Close() error
}

// RxHandle is the receive-only half of a Split bus.
type RxHandle interface {
	Receive(receiveTimeout time.Duration) (Frame, error)
	TryReceive() (Frame, bool, error)
	Close() error
}

// TxHandle is the send-only half of a Split bus.
type TxHandle interface {
	Send(frame Frame) error
	Close() error
}

// NewFunc constructs a Bus for a given channel (interface name, device
// path, or daemon address depending on the backend).
type NewFunc func(channel string, bitrate int) (Bus, error)

var registry = make(map[string]NewFunc)

// Register makes a backend available under the given name. Backends call
// this from an init() function.
func Register(name string, fn NewFunc) {
	registry[name] = fn
}

// Open looks up a registered backend by name and constructs a Bus for the
// given channel and bitrate.
func Open(name, channel string, bitrate int) (Bus, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("transport: unknown backend %q", name)
	}
	return fn(channel, bitrate)
}

// Registered reports the names of backends linked into the binary.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
