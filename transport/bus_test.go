package transport_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/transport"
)

func TestNewFrameTruncatesAndPads(t *testing.T) {
	f := transport.NewFrame(0x100, []byte{1, 2, 3})
	require.Equal(t, uint8(3), f.Len)
	require.Equal(t, [8]byte{1, 2, 3, 0, 0, 0, 0, 0}, f.Data)
	require.False(t, f.Extended)

	long := transport.NewFrame(0x100, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	require.Equal(t, uint8(8), long.Len)
}

func TestNewExtendedFrameSetsFlag(t *testing.T) {
	f := transport.NewExtendedFrame(0x1ABCDEF, []byte{0xFF})
	require.True(t, f.Extended)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := transport.Open("does-not-exist", "can0", 1000000)
	require.Error(t, err)
}

func TestDeviceErrorFatalClassification(t *testing.T) {
	fatal := transport.NewDeviceError(transport.DeviceAccessDenied, errors.New("denied"))
	require.True(t, fatal.IsFatal())
	require.True(t, transport.IsFatal(fatal))

	retryable := transport.NewDeviceError(transport.DeviceBusy, errors.New("busy"))
	require.False(t, retryable.IsFatal())
	require.False(t, transport.IsFatal(retryable))

	require.False(t, transport.IsFatal(transport.ErrTimeout))
}

func TestDeviceErrorUnwrap(t *testing.T) {
	base := errors.New("underlying")
	de := transport.NewDeviceError(transport.DeviceBackendSpecific, base)
	require.ErrorIs(t, de, base)
}
