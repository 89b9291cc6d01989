// Package daemon implements the client side of the GS-USB daemon's local
// wire protocol: a single process owns the USB device and multiplexes it
// to clients over a local socket: a Unix domain stream socket by default
// (not a Unix datagram socket; Receive reassembles the fixed-size records
// from the stream), or a UDP endpoint for cross-host debugging. Daemon
// process supervision
// (PID/lock files, signal handling) is out of scope here — only the wire
// contract is implemented.
package daemon

import (
	"encoding/binary"
	"errors"

	"github.com/piperbot/piper-go/transport"
)

// Opcode identifies a daemon datagram message.
type Opcode uint8

const (
	OpData        Opcode = 0x01
	OpSubscribe   Opcode = 0x02
	OpUnsubscribe Opcode = 0x03
	OpHeartbeat   Opcode = 0x04
	OpError       Opcode = 0xFF
)

// messageSize is the fixed 24-byte record: opcode(1) + flags(1) +
// can_id(4) + len(1) + data(8) + timestamp_us(8) = 23, padded to 24.
const messageSize = 24

const flagExtended = 0x01

// message is the in-memory form of one wire record.
type message struct {
	Opcode      Opcode
	Extended    bool
	CanID       uint32
	Len         uint8
	Data        [8]byte
	TimestampUs uint64
}

var errShortMessage = errors.New("daemon: short message")
var errDaemonError = errors.New("daemon: server reported an error")

func encodeMessage(m message) []byte {
	buf := make([]byte, messageSize)
	buf[0] = byte(m.Opcode)
	if m.Extended {
		buf[1] = flagExtended
	}
	binary.BigEndian.PutUint32(buf[2:6], m.CanID)
	buf[6] = m.Len
	copy(buf[7:15], m.Data[:])
	binary.BigEndian.PutUint64(buf[15:23], m.TimestampUs)
	return buf
}

func decodeMessage(buf []byte) (message, error) {
	if len(buf) < messageSize {
		return message{}, errShortMessage
	}
	var m message
	m.Opcode = Opcode(buf[0])
	m.Extended = buf[1]&flagExtended != 0
	m.CanID = binary.BigEndian.Uint32(buf[2:6])
	m.Len = buf[6]
	copy(m.Data[:], buf[7:15])
	m.TimestampUs = binary.BigEndian.Uint64(buf[15:23])
	return m, nil
}

func frameFromMessage(m message) transport.Frame {
	return transport.Frame{
		ID:          m.CanID,
		Extended:    m.Extended,
		Len:         m.Len,
		Data:        m.Data,
		TimestampUs: m.TimestampUs,
	}
}

func messageFromFrame(op Opcode, f transport.Frame) message {
	return message{
		Opcode:      op,
		Extended:    f.Extended,
		CanID:       f.ID,
		Len:         f.Len,
		Data:        f.Data,
		TimestampUs: f.TimestampUs,
	}
}
