package options

import (
	"errors"
	"testing"
	"time"

	"github.com/arloliu/mdwire/errs"
	"github.com/stretchr/testify/require"
)

type reader struct {
	loc     *time.Location
	every   int
	reverse bool
	calls   []string
}

type readerOption = Option[*reader]

func withLocation(loc *time.Location) readerOption {
	return New(func(r *reader) error {
		if loc == nil {
			return errors.New("nil location")
		}
		r.loc = loc
		r.calls = append(r.calls, "location")

		return nil
	})
}

func withEvery(n int) readerOption {
	return New(func(r *reader) error {
		if n < 0 {
			return errors.New("negative cadence")
		}
		r.every = n
		r.calls = append(r.calls, "every")

		return nil
	})
}

func withReverse() readerOption {
	return NoError(func(r *reader) {
		r.reverse = true
		r.calls = append(r.calls, "reverse")
	})
}

func TestApply(t *testing.T) {
	t.Run("in order", func(t *testing.T) {
		r := &reader{}
		require.NoError(t, Apply(r, withReverse(), withLocation(time.UTC), withEvery(5)))
		require.Equal(t, []string{"reverse", "location", "every"}, r.calls)
		require.Equal(t, time.UTC, r.loc)
		require.Equal(t, 5, r.every)
		require.True(t, r.reverse)
	})

	t.Run("no options", func(t *testing.T) {
		r := &reader{every: 3}
		require.NoError(t, Apply(r))
		require.Equal(t, 3, r.every)
	})

	t.Run("later options win", func(t *testing.T) {
		r := &reader{}
		require.NoError(t, Apply(r, withEvery(1), withEvery(9)))
		require.Equal(t, 9, r.every)
	})

	t.Run("nil skipped", func(t *testing.T) {
		var maybe readerOption
		r := &reader{}
		require.NoError(t, Apply(r, maybe, withEvery(2), nil))
		require.Equal(t, []string{"every"}, r.calls)
	})
}

func TestApply_StopsAtFirstError(t *testing.T) {
	r := &reader{}
	err := Apply(r, withEvery(4), withLocation(nil), withReverse())

	require.ErrorIs(t, err, errs.ErrInvalidOption)
	require.ErrorContains(t, err, "#1")
	require.ErrorContains(t, err, "nil location")
	require.Equal(t, []string{"every"}, r.calls)
	require.False(t, r.reverse)
}

func TestApply_KeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Apply(&reader{}, New(func(*reader) error { return cause }))

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, errs.ErrInvalidOption)
}
