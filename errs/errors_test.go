package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelRoots(t *testing.T) {
	tests := []struct {
		err  error
		root error
	}{
		{ErrTruncatedVarInt, ErrMalformedField},
		{ErrUnknownFieldType, ErrMalformedField},
		{ErrVectorHint, ErrRangeOverflow},
		{ErrOffsetOutOfRange, ErrTapeCorrupt},
		{ErrDBIndexOutOfRange, ErrTapeCorrupt},
		{ErrTapeShrunk, ErrTapeStale},
		{ErrStaleOffset, ErrTapeStale},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.ErrorIs(t, tt.err, tt.root)

			wrapped := fmt.Errorf("frame at 100: %w", tt.err)
			require.ErrorIs(t, wrapped, tt.err)
			require.ErrorIs(t, wrapped, tt.root)
		})
	}

	require.False(t, errors.Is(ErrTapeShrunk, ErrTapeCorrupt))
}
