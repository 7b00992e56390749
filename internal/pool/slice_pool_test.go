package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetOffsetSlice(t *testing.T) {
	offsets, cleanup := GetOffsetSlice(100)
	require.Empty(t, *offsets)
	require.GreaterOrEqual(t, cap(*offsets), 100)

	for i := range 150 {
		*offsets = append(*offsets, uint64(i))
	}
	require.Len(t, *offsets, 150)
	cleanup()

	again, cleanup2 := GetOffsetSlice(10)
	defer cleanup2()
	require.Empty(t, *again)
}
