package tracer

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestIsAnchor(t *testing.T) {
	require.True(t, IsAnchor(LogCallName))
	require.True(t, IsAnchor(ExposeTracerName))
	require.True(t, IsAnchor(ExposeTracerLenName))
	require.False(t, IsAnchor("main"))
	require.False(t, IsAnchor("_Z3addii"))
}

// TestPointerStability is the tracer pointer stability scenario from the
// design: log two entries (four slots), read them back through the raw
// pointer.
func TestPointerStability(t *testing.T) {
	tr := NewTracer()
	tr.Log(FunctionCall, 1)
	tr.Log(FunctionCall, 2)

	ptr := tr.AsPointer()
	require.NotNil(t, ptr)
	require.Equal(t, uint32(4), tr.Len())

	base := unsafe.Slice(ptr, 4)
	require.Equal(t, []int32{int32(FunctionCall), 1, int32(FunctionCall), 2}, base)
}

func TestLogOverflowKeepsNewest(t *testing.T) {
	tr := NewTracerWithEntries(2)
	for i := int32(0); i < 5; i++ {
		tr.Log(FunctionCall, i)
	}
	entries := tr.Snapshot()
	require.Len(t, entries, 2)
	require.Equal(t, int32(3), entries[0].Payload)
	require.Equal(t, int32(4), entries[1].Payload)
}

func TestSnapshotDecodesPairs(t *testing.T) {
	tr := NewTracer()
	tr.Log(FunctionCall, 0)
	tr.Log(FunctionReturnVoid, VoidPlaceholder)
	tr.Log(FunctionReturnValue, 42)

	entries := tr.Snapshot()
	require.Equal(t, []Entry{
		{Kind: FunctionCall, Payload: 0},
		{Kind: FunctionReturnVoid, Payload: VoidPlaceholder},
		{Kind: FunctionReturnValue, Payload: 42},
	}, entries)
}

func TestDefaultInstanceBootstraps(t *testing.T) {
	require.Equal(t, uint32(0), ExposeTracerLen())
	LogCall(int32(FunctionCall), 7)
	require.Equal(t, uint32(2), ExposeTracerLen())
	require.NotNil(t, ExposeTracer())
}
