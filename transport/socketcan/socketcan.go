// Package socketcan implements the transport.Bus contract on top of Linux
// SocketCAN raw sockets. It requires the named interface to already exist
// and be up (e.g. `ip link set can0 up type can bitrate 1000000`).
package socketcan

import (
	"fmt"
	"net"
	"sync"
	"time"
	"unsafe"

	"github.com/piperbot/piper-go/transport"
	"golang.org/x/sys/unix"
)

func init() {
	transport.Register("socketcan", Open)
}

const canFrameSize = 16

// wireFrame matches struct can_frame from linux/can.h.
type wireFrame struct {
	id   uint32
	dlc  uint8
	pad  uint8
	res0 uint8
	res1 uint8
	data [8]uint8
}

// Bus is a SocketCAN transport.Bus backed by one raw AF_CAN socket. Before
// Split, it may be used by a single goroutine for send and a single
// (possibly different) goroutine for receive, since the two directions
// never touch shared mutable state beyond the fd itself.
type Bus struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// Open binds a SocketCAN raw socket to the given interface name. bitrate is
// accepted for interface-symmetry with other backends but is not
// configurable from user space — the interface must already be configured
// at the OS level.
func Open(channel string, bitrate int) (transport.Bus, error) {
	iface, err := net.InterfaceByName(channel)
	if err != nil {
		return nil, transport.NewDeviceError(transport.DeviceNotFound, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, transport.NewDeviceError(transport.DeviceUnknown, fmt.Errorf("create socket: %w", err))
	}
	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Bind(fd, addr); err != nil {
		_ = unix.Close(fd)
		return nil, transport.NewDeviceError(transport.DeviceUnknown, fmt.Errorf("bind: %w", err))
	}
	return &Bus{fd: fd}, nil
}

func (b *Bus) Send(frame transport.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return transport.ErrNotStarted
	}
	id := frame.ID
	if frame.Extended {
		id |= unix.CAN_EFF_FLAG
	}
	wf := wireFrame{id: id, dlc: frame.Len, data: frame.Data}
	raw := (*(*[canFrameSize]byte)(unsafe.Pointer(&wf)))[:]
	n, err := unix.Write(b.fd, raw)
	if err != nil {
		return transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	if n != canFrameSize {
		return transport.ErrInvalidFrame
	}
	return nil
}

func (b *Bus) Receive(timeout time.Duration) (transport.Frame, error) {
	if err := setReadTimeout(b.fd, timeout); err != nil {
		return transport.Frame{}, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	raw := make([]byte, canFrameSize)
	n, err := unix.Read(b.fd, raw)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return transport.Frame{}, transport.ErrTimeout
		}
		return transport.Frame{}, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	if n != canFrameSize {
		return transport.Frame{}, transport.ErrInvalidFrame
	}
	wf := (*wireFrame)(unsafe.Pointer(&raw[0]))
	f := transport.Frame{
		ID:          wf.id &^ (unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG),
		Extended:    wf.id&unix.CAN_EFF_FLAG != 0,
		Len:         wf.dlc,
		Data:        wf.data,
		TimestampUs: uint64(time.Now().UnixMicro()),
	}
	return f, nil
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

// Split duplicates the underlying file descriptor so rx and tx can be
// driven from two goroutines without sharing a mutex on the hot path; the
// original Bus must not be used afterwards.
func (b *Bus) Split() (transport.RxHandle, transport.TxHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dupFd, err := unix.Dup(b.fd)
	if err != nil {
		return nil, nil, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	rx := &Bus{fd: b.fd}
	tx := &Bus{fd: dupFd}
	return rx, tx, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return unix.Close(b.fd)
}

func setReadTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}
