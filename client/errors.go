package client

import (
	"errors"

	"github.com/piperbot/piper-go/recording"
)

// ErrWrongState is returned by a transition method called from a state
// it cannot fire from, e.g. EnableMitMode while Disconnected.
var ErrWrongState = errors.New("client: invalid state transition")

// ErrReplayNotActive and ErrInvalidSpeed alias the recording package's
// sentinels directly: the replay precondition and the speed bound are
// recording's concerns, not a second copy of the same rule.
var (
	ErrReplayNotActive = recording.ErrNotInReplayMode
	ErrInvalidSpeed    = recording.ErrInvalidSpeed
)
