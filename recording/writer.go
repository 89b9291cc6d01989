package recording

import (
	"io"
	"sync"
	"time"

	"github.com/piperbot/piper-go/hooks"
)

// StopConditions enumerates why a recording session ends on its own;
// the zero value means "run until External (Stop) is called".
type StopConditions struct {
	MaxDuration time.Duration // 0 disables
	MaxFrames   uint64        // 0 disables
	OnCanID     *uint32       // nil disables; matches the first occurrence
}

// Recorder registers itself as a hook sink and serializes every frame it
// receives into an append-only file. A recorder that falls behind relies
// on hooks.Sink's own dropped-frame counter rather than a second
// back-pressure mechanism — recording is just a hook sink that
// serializes instead of forwarding.
type Recorder struct {
	w      io.WriteCloser
	sink   *hooks.Sink
	handle *hooks.Handle
	source TimestampSource

	conditions StopConditions
	startUs    uint64

	mu         sync.Mutex
	frameCount uint64

	done     chan struct{}
	stopOnce sync.Once
	runDone  chan struct{}
}

// Start writes the header, registers a sink on mgr, and begins draining
// it on a new goroutine. startUs is the recording's start wall-clock in
// microseconds, used both for the header and for MaxDuration checks.
func Start(mgr *hooks.Manager, w io.WriteCloser, header Header, conditions StopConditions, source TimestampSource, startUs uint64) (*Recorder, error) {
	header.StartWallclockUs = startUs
	if err := writeHeader(w, header); err != nil {
		w.Close()
		return nil, err
	}
	sink, handle := mgr.Register(0)
	r := &Recorder{
		w:          w,
		sink:       sink,
		handle:     handle,
		source:     source,
		conditions: conditions,
		startUs:    startUs,
		done:       make(chan struct{}),
		runDone:    make(chan struct{}),
	}
	go r.run()
	return r, nil
}

func (r *Recorder) run() {
	defer close(r.runDone)
	for {
		select {
		case f := <-r.sink.Frames():
			entry := Entry{
				TimestampUs: f.TimestampUs,
				CanID:       f.ID,
				Extended:    f.Extended,
				Source:      r.source,
				Len:         f.Len,
				Data:        f.Data,
			}
			if err := writeEntry(r.w, entry); err != nil {
				// Stop waits for run to return, so it cannot be called
				// synchronously from here.
				go r.Stop()
				return
			}
			r.mu.Lock()
			r.frameCount++
			stop := r.shouldStop(entry)
			r.mu.Unlock()
			if stop {
				go r.Stop()
				return
			}
		case <-r.done:
			return
		}
	}
}

// shouldStop must be called with r.mu held.
func (r *Recorder) shouldStop(e Entry) bool {
	if r.conditions.MaxDuration > 0 {
		elapsed := time.Duration(e.TimestampUs-r.startUs) * time.Microsecond
		if elapsed >= r.conditions.MaxDuration {
			return true
		}
	}
	if r.conditions.MaxFrames > 0 && r.frameCount >= r.conditions.MaxFrames {
		return true
	}
	if r.conditions.OnCanID != nil && e.CanID == *r.conditions.OnCanID {
		return true
	}
	return false
}

// FrameCount reports how many entries have been written so far.
func (r *Recorder) FrameCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frameCount
}

// DroppedFrames reports how many frames were dropped because the
// recorder's sink fell behind.
func (r *Recorder) DroppedFrames() uint64 { return r.sink.DroppedFrames() }

// Stop ends the recording session (the External stop condition),
// de-registers the sink, and closes the underlying file. Safe to call
// more than once or concurrently with the condition checks in run().
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.handle.Close()
	})
	<-r.runDone
	r.w.Close()
}
