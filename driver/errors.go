package driver

import "github.com/piperbot/piper-go/command"

var (
	// ErrChannelClosed is what Queue.Send returns once Stop has closed the
	// command queue; it is the same value as command.ErrChannelClosed.
	ErrChannelClosed = command.ErrChannelClosed
	// ErrChannelFull mirrors command.ErrChannelFull for callers that
	// only import driver.
	ErrChannelFull = command.ErrChannelFull
)
