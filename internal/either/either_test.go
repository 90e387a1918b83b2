package either

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmptySizeHint(t *testing.T) {
	it := Empty[int]()
	require.Equal(t, 0, it.Len())
	_, ok := it.Next()
	require.False(t, ok)
}

func TestOfIteratesInOrder(t *testing.T) {
	it := Of([]string{"a", "b", "c"})
	require.Equal(t, 3, it.Len())

	var got []string
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		got = append(got, v)
	}
	require.Equal(t, []string{"a", "b", "c"}, got)

	_, ok := it.Next()
	require.False(t, ok)
}

func TestSliceDrains(t *testing.T) {
	it := Of([]int{1, 2, 3})
	require.Equal(t, []int{1, 2, 3}, it.Slice())

	empty := Empty[int]()
	require.Equal(t, []int{}, empty.Slice())
}
