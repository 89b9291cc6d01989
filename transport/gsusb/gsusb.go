// Package gsusb implements the transport.Bus contract over a
// candlelight-class GS-USB CAN adapter via direct USB bulk transfers,
// bypassing any kernel gs_usb driver.
package gsusb

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"
	"github.com/piperbot/piper-go/transport"
)

func init() {
	transport.Register("gsusb", Open)
}

// USB identification and endpoint layout for candlelight-class adapters.
const (
	vendorID  = gousb.ID(0x1d50)
	productID = gousb.ID(0x606f)

	endpointOut = 0x02
	endpointIn  = 0x81

	// GS-USB control requests (subset needed to bring the bus up).
	reqHostFormat   = 0
	reqBitTiming    = 1
	reqMode         = 2
	breqSetHostFmt  = 0xA5A5A5A5
	modeReset       = 0
	modeStart       = 1
)

// wireFrame mirrors struct gs_host_frame (echo_id, can_id, can_dlc, channel,
// flags, reserved, data[8]) as exchanged over the bulk endpoints.
type wireFrame struct {
	EchoID  uint32
	CanID   uint32
	DLC     uint8
	Channel uint8
	Flags   uint8
	Rsvd    uint8
	Data    [8]byte
}

const wireFrameSize = 4 + 4 + 1 + 1 + 1 + 1 + 8

// Bus is exclusive to one GS-USB device; Split shares it behind two
// direction-scoped mutexes since a USB device offers no fd-dup
// equivalent.
type Bus struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	out    *gousb.OutEndpoint
	in     *gousb.InEndpoint
	rxMu   sync.Mutex
	txMu   sync.Mutex
	closed bool
}

// Open claims the first matching GS-USB device and configures the given
// bitrate via a control transfer before the bulk interface is claimed for
// traffic.
func Open(channel string, bitrate int) (transport.Bus, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil {
		ctx.Close()
		return nil, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, transport.NewDeviceError(transport.DeviceNotFound, fmt.Errorf("no gs_usb adapter found (vid:pid %s:%s)", vendorID, productID))
	}
	if err := configureBitrate(dev, bitrate); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, transport.NewDeviceError(transport.DeviceUnsupportedConfig, err)
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, transport.NewDeviceError(transport.DeviceBusy, err)
	}
	out, err := intf.OutEndpoint(endpointOut)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	in, err := intf.InEndpoint(endpointIn)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	if err := startBus(dev); err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return &Bus{ctx: ctx, dev: dev, cfg: cfg, intf: intf, out: out, in: in}, nil
}

func configureBitrate(dev *gousb.Device, bitrate int) error {
	payload := make([]byte, 20)
	binary.LittleEndian.PutUint32(payload[16:], uint32(bitrate))
	_, err := dev.Control(0x41, reqBitTiming, 0, 0, payload)
	if err != nil {
		return transport.NewDeviceError(transport.DeviceUnsupportedConfig, fmt.Errorf("set bit timing: %w", err))
	}
	return nil
}

func startBus(dev *gousb.Device) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, modeStart)
	_, err := dev.Control(0x41, reqMode, 0, 0, payload)
	if err != nil {
		return transport.NewDeviceError(transport.DeviceBackendSpecific, fmt.Errorf("start mode: %w", err))
	}
	return nil
}

func (b *Bus) Send(frame transport.Frame) error {
	b.txMu.Lock()
	defer b.txMu.Unlock()
	if b.closed {
		return transport.ErrNotStarted
	}
	wf := wireFrame{CanID: frame.ID, DLC: frame.Len, Data: frame.Data}
	if frame.Extended {
		wf.Flags |= 1
	}
	buf := make([]byte, wireFrameSize)
	marshal(&wf, buf)
	if _, err := b.out.Write(buf); err != nil {
		return transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	return nil
}

func (b *Bus) Receive(timeout time.Duration) (transport.Frame, error) {
	b.rxMu.Lock()
	defer b.rxMu.Unlock()
	if b.closed {
		return transport.Frame{}, transport.ErrNotStarted
	}
	buf := make([]byte, wireFrameSize)
	n, err := readWithTimeout(b.in, buf, timeout)
	if err != nil {
		if err == errUSBTimeout {
			return transport.Frame{}, transport.ErrTimeout
		}
		return transport.Frame{}, transport.NewDeviceError(transport.DeviceBackendSpecific, err)
	}
	if n != wireFrameSize {
		return transport.Frame{}, transport.ErrInvalidFrame
	}
	wf := unmarshal(buf)
	return transport.Frame{
		ID:          wf.CanID,
		Len:         wf.DLC,
		Data:        wf.Data,
		Extended:    wf.Flags&1 != 0,
		TimestampUs: uint64(time.Now().UnixMicro()),
	}, nil
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

// Split returns two endpoints backed by the one shared device; direction
// mutexes (rxMu/txMu), not a duplicated descriptor, provide the isolation
// a file-descriptor dup would give SocketCAN.
func (b *Bus) Split() (transport.RxHandle, transport.TxHandle, error) {
	return &rxHandle{bus: b}, &txHandle{bus: b}, nil
}

func (b *Bus) Close() error {
	b.txMu.Lock()
	b.rxMu.Lock()
	defer b.rxMu.Unlock()
	defer b.txMu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.intf.Close()
	b.cfg.Close()
	b.dev.Close()
	b.ctx.Close()
	return nil
}

type rxHandle struct{ bus *Bus }

func (h *rxHandle) Receive(timeout time.Duration) (transport.Frame, error) { return h.bus.Receive(timeout) }
func (h *rxHandle) TryReceive() (transport.Frame, bool, error)             { return h.bus.TryReceive() }
func (h *rxHandle) Close() error                                          { return nil }

type txHandle struct{ bus *Bus }

func (h *txHandle) Send(frame transport.Frame) error { return h.bus.Send(frame) }
func (h *txHandle) Close() error                     { return nil }

func marshal(wf *wireFrame, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], wf.EchoID)
	binary.LittleEndian.PutUint32(buf[4:8], wf.CanID)
	buf[8] = wf.DLC
	buf[9] = wf.Channel
	buf[10] = wf.Flags
	buf[11] = wf.Rsvd
	copy(buf[12:20], wf.Data[:])
}

func unmarshal(buf []byte) wireFrame {
	var wf wireFrame
	wf.EchoID = binary.LittleEndian.Uint32(buf[0:4])
	wf.CanID = binary.LittleEndian.Uint32(buf[4:8])
	wf.DLC = buf[8]
	wf.Channel = buf[9]
	wf.Flags = buf[10]
	wf.Rsvd = buf[11]
	copy(wf.Data[:], buf[12:20])
	return wf
}
