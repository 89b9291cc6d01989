package recording

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/piperbot/piper-go/command"
	"github.com/piperbot/piper-go/drivermode"
	"github.com/piperbot/piper-go/transport"
)

var (
	// ErrInvalidSpeed is returned when speed is below 0.1 or above 5.0,
	// or when speed > 2.0 is requested without confirmed set.
	ErrInvalidSpeed = errors.New("recording: invalid replay speed")
	// ErrNotInReplayMode is returned when replay is attempted while the
	// driver mode is not drivermode.Replay.
	ErrNotInReplayMode = errors.New("recording: driver is not in replay mode")
)

const (
	minSpeed          = 0.1
	maxSpeed          = 5.0
	confirmThreshold  = 2.0
)

// ValidateSpeed enforces the replay speed constraints before any frame is
// emitted: 0 < speed <= 5.0; speed > 2.0 requires confirmed; speed < 0.1
// is always rejected.
func ValidateSpeed(speed float64, confirmed bool) error {
	if speed < minSpeed || speed > maxSpeed {
		return ErrInvalidSpeed
	}
	if speed > confirmThreshold && !confirmed {
		return ErrInvalidSpeed
	}
	return nil
}

// ReadAll reads a header and the full entry stream until EOF.
func ReadAll(r io.Reader) (Header, []Entry, error) {
	header, err := readHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	var entries []Entry
	for {
		e, err := readEntry(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return header, entries, ErrTruncated
		}
		entries = append(entries, e)
	}
	return header, entries, nil
}

// Replayer emits a loaded recording's frames in order, each as a
// Realtime RawFrame envelope, at wall-clock instants derived from the
// entries' original timestamps scaled by speed.
type Replayer struct {
	entries []Entry
	mode    *drivermode.Atomic
	queue   *command.Queue
	speed   float64
}

// NewReplayer validates speed and the current driver mode up front, per
// spec: replay aborts on an out-of-range speed or wrong mode before
// emitting any frame.
func NewReplayer(entries []Entry, mode *drivermode.Atomic, queue *command.Queue, speed float64, confirmed bool) (*Replayer, error) {
	if err := ValidateSpeed(speed, confirmed); err != nil {
		return nil, err
	}
	if mode.Get() != drivermode.Replay {
		return nil, ErrNotInReplayMode
	}
	return &Replayer{entries: entries, mode: mode, queue: queue, speed: speed}, nil
}

// Run emits every entry at its scheduled instant relative to start,
// computed as (entry.timestamp_us - first.timestamp_us) / speed. It
// returns early if ctx is cancelled or the mode switches away from
// Replay mid-stream.
func (r *Replayer) Run(ctx context.Context, start time.Time) error {
	if len(r.entries) == 0 {
		return nil
	}
	first := r.entries[0].TimestampUs
	for _, e := range r.entries {
		if r.mode.Get() != drivermode.Replay {
			return ErrNotInReplayMode
		}
		deltaUs := float64(e.TimestampUs-first) / r.speed
		target := start.Add(time.Duration(deltaUs * float64(time.Microsecond)))
		if wait := time.Until(target); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		frame := transport.Frame{
			ID:          e.CanID,
			Extended:    e.Extended,
			Len:         e.Len,
			Data:        e.Data,
			TimestampUs: e.TimestampUs,
		}
		if err := r.queue.Send(command.NewRawFrame(command.Realtime, frame)); err != nil {
			return err
		}
	}
	return nil
}
