package hooks_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/piperbot/piper-go/hooks"
	"github.com/piperbot/piper-go/transport"
)

func TestBroadcastDeliversToAllSinks(t *testing.T) {
	m := hooks.NewManager()
	sinkA, handleA := m.Register(4)
	defer handleA.Close()
	sinkB, handleB := m.Register(4)
	defer handleB.Close()

	m.Broadcast(transport.NewFrame(0x100, []byte{1}))

	require.Len(t, sinkA.Frames(), 1)
	require.Len(t, sinkB.Frames(), 1)
}

func TestFullSinkIncrementsDroppedCounterWithoutBlocking(t *testing.T) {
	m := hooks.NewManager()
	sink, handle := m.Register(1)
	defer handle.Close()

	m.Broadcast(transport.NewFrame(0x100, nil))
	m.Broadcast(transport.NewFrame(0x101, nil))
	m.Broadcast(transport.NewFrame(0x102, nil))

	require.Equal(t, uint64(2), sink.DroppedFrames())
}

func TestHandleCloseRemovesSink(t *testing.T) {
	m := hooks.NewManager()
	_, handle := m.Register(1)
	require.Equal(t, 1, m.Len())
	handle.Close()
	require.Equal(t, 0, m.Len())
	handle.Close() // idempotent
}
