// Package recording implements the append-only capture file and its
// bounded-speed replay. Recording is implemented as a hook sink that
// serializes frames instead of forwarding them; back-pressure is handled
// with the same per-sink dropped-frame counter hooks.Sink already
// provides, rather than a second bespoke mechanism.
package recording

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrBadMagic   = errors.New("recording: bad magic")
	ErrBadVersion = errors.New("recording: unsupported version")
	ErrTruncated  = errors.New("recording: truncated stream")
)

const (
	magic          = "PIPERREC"
	formatVersion  = uint16(1)
	headerSize     = 32
	interfaceField = 64
	entrySize      = 8 + 4 + 1 + 1 + 8 // timestamp_us + can_id + flags + len + data[8]
)

const (
	flagExtended  = 0x01
	tsrcShift     = 1
	tsrcMask      = 0b11
)

// TimestampSource tags how precisely a RecordingEntry's timestamp was
// obtained.
type TimestampSource uint8

const (
	TimestampHardware  TimestampSource = 1 // ~1us resolution
	TimestampKernel    TimestampSource = 2 // ~10us resolution
	TimestampUserspace TimestampSource = 3 // ~100us resolution
)

// Notes is the small structured payload embedded in the header's
// variable-length notes field: bus bitrate and an optional operator note,
// CBOR-encoded so the free-form field carries real structure instead of a
// bare string. The interface name lives in its own header field.
type Notes struct {
	BusBitrate   uint32 `cbor:"bus_bitrate"`
	OperatorNote string `cbor:"operator_note,omitempty"`
}

// Header is the recording file's fixed 32-byte prefix plus its
// variable-length interface-name and notes fields.
type Header struct {
	Version          uint16
	StartWallclockUs uint64
	InterfaceName    string
	Notes            Notes
}

// Entry is one captured frame.
type Entry struct {
	TimestampUs uint64
	CanID       uint32
	Extended    bool
	Source      TimestampSource
	Len         uint8
	Data        [8]byte
}

func writeHeader(w io.Writer, h Header) error {
	if len(h.InterfaceName) > interfaceField {
		h.InterfaceName = h.InterfaceName[:interfaceField]
	}
	notesBytes, err := cbor.Marshal(h.Notes)
	if err != nil {
		return err
	}

	fixed := make([]byte, headerSize)
	copy(fixed[0:8], magic)
	binary.LittleEndian.PutUint16(fixed[8:10], formatVersion)
	// fixed[10:12] reserved, left zero.
	binary.LittleEndian.PutUint64(fixed[12:20], h.StartWallclockUs)
	binary.LittleEndian.PutUint32(fixed[20:24], h.Notes.BusBitrate)
	fixed[24] = uint8(len(h.InterfaceName))
	// fixed[25:32] reserved, left zero.
	if _, err := w.Write(fixed); err != nil {
		return err
	}

	nameBuf := make([]byte, interfaceField)
	copy(nameBuf, h.InterfaceName)
	if _, err := w.Write(nameBuf); err != nil {
		return err
	}

	notesLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(notesLen, uint16(len(notesBytes)))
	if _, err := w.Write(notesLen); err != nil {
		return err
	}
	_, err = w.Write(notesBytes)
	return err
}

func readHeader(r io.Reader) (Header, error) {
	fixed := make([]byte, headerSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Header{}, ErrTruncated
		}
		return Header{}, err
	}
	if string(fixed[0:8]) != magic {
		return Header{}, ErrBadMagic
	}
	version := binary.LittleEndian.Uint16(fixed[8:10])
	if version != formatVersion {
		return Header{}, ErrBadVersion
	}
	startWallclock := binary.LittleEndian.Uint64(fixed[12:20])
	bitrate := binary.LittleEndian.Uint32(fixed[20:24])
	nameLen := fixed[24]

	nameBuf := make([]byte, interfaceField)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return Header{}, ErrTruncated
	}
	if int(nameLen) > interfaceField {
		return Header{}, ErrTruncated
	}
	interfaceName := string(nameBuf[:nameLen])

	notesLenBuf := make([]byte, 2)
	if _, err := io.ReadFull(r, notesLenBuf); err != nil {
		return Header{}, ErrTruncated
	}
	notesLen := binary.LittleEndian.Uint16(notesLenBuf)
	notesBuf := make([]byte, notesLen)
	if notesLen > 0 {
		if _, err := io.ReadFull(r, notesBuf); err != nil {
			return Header{}, ErrTruncated
		}
	}
	var notes Notes
	if notesLen > 0 {
		if err := cbor.Unmarshal(notesBuf, &notes); err != nil {
			return Header{}, err
		}
	}
	notes.BusBitrate = bitrate

	return Header{
		Version:          version,
		StartWallclockUs: startWallclock,
		InterfaceName:    interfaceName,
		Notes:            notes,
	}, nil
}

func writeEntry(w io.Writer, e Entry) error {
	buf := make([]byte, entrySize)
	binary.LittleEndian.PutUint64(buf[0:8], e.TimestampUs)
	binary.LittleEndian.PutUint32(buf[8:12], e.CanID)
	var flags byte
	if e.Extended {
		flags |= flagExtended
	}
	flags |= byte(e.Source&tsrcMask) << tsrcShift
	buf[12] = flags
	buf[13] = e.Len
	copy(buf[14:22], e.Data[:])
	_, err := w.Write(buf)
	return err
}

func readEntry(r io.Reader) (Entry, error) {
	buf := make([]byte, entrySize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Entry{}, err // io.EOF propagates to signal end of stream
	}
	var e Entry
	e.TimestampUs = binary.LittleEndian.Uint64(buf[0:8])
	e.CanID = binary.LittleEndian.Uint32(buf[8:12])
	flags := buf[12]
	e.Extended = flags&flagExtended != 0
	e.Source = TimestampSource((flags >> tsrcShift) & tsrcMask)
	e.Len = buf[13]
	copy(e.Data[:], buf[14:22])
	return e, nil
}
