package message

import (
	"testing"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
	"github.com/arloliu/mdwire/internal/clock"
	"github.com/arloliu/mdwire/section"
	"github.com/stretchr/testify/require"
)

func fixedClock() *clock.Midnight {
	return clock.New(time.UTC, func() time.Time {
		return time.Date(2024, 1, 15, 9, 30, 15, 0, time.UTC)
	})
}

func testFields() []encoding.Field {
	return []encoding.Field{
		encoding.NewField(3, encoding.String("IBM")),
		encoding.NewField(22, encoding.Double(101.25)),
		encoding.NewField(25, encoding.Double(101.5)),
		encoding.NewField(32, encoding.Int32(-42)),
		encoding.NewField(6, encoding.Double(2000)),
	}
}

func TestBuilder_TwoPhaseLength(t *testing.T) {
	for _, packed := range []bool{true, false} {
		b, err := NewBuilder(WithPackedFields(packed), WithClock(fixedClock()))
		require.NoError(t, err)

		b.Init(section.MsgHeader{Tag: 9, DataType: format.DataFieldList, MsgType: format.MsgUpdate, RTL: 3})
		require.NoError(t, b.AddFields(testFields()...))
		require.Equal(t, 5, b.NumFields())

		frame, err := b.Finish()
		require.NoError(t, err)

		n, ok := section.PeekLen(frame)
		require.True(t, ok)
		require.Equal(t, uint32(len(frame)), n, "len bounds exactly one frame")

		msg, consumed, err := Parse(frame)
		require.NoError(t, err)
		require.Equal(t, len(frame), consumed)
		require.Equal(t, packed, msg.Header.Protocol.IsPacked())
		require.Equal(t, uint32(9), msg.Header.Tag)
		require.Equal(t, uint32(3), msg.Header.RTL)
		require.Equal(t, format.MsgUpdate, msg.Header.MsgType)
		require.Len(t, msg.Fields, 5)

		promoted, ok := msg.Fields.Get(6)
		require.True(t, ok)
		require.Equal(t, format.FieldInt64, promoted.Type())
		require.InDelta(t, 2000.0, promoted.Float64(), 0)

		b.Release()
	}
}

func TestBuilder_DefaultTime(t *testing.T) {
	c := fixedClock()
	b, err := NewBuilder(WithClock(c))
	require.NoError(t, err)
	defer b.Release()

	b.Init(section.MsgHeader{MsgType: format.MsgImage})
	frame, err := b.Finish()
	require.NoError(t, err)

	msg, _, err := Parse(frame)
	require.NoError(t, err)
	require.Equal(t, uint32((9*3600+30*60+15)*clock.TicksPerSecond), msg.Header.Time)
	require.True(t, msg.Time(c).Equal(time.Date(2024, 1, 15, 9, 30, 15, 0, time.UTC)))
	require.Empty(t, msg.Fields)
}

func TestBuilder_Reuse(t *testing.T) {
	b, err := NewBuilder(WithClock(fixedClock()))
	require.NoError(t, err)
	defer b.Release()

	b.Init(section.MsgHeader{Time: 1})
	require.NoError(t, b.Add(encoding.NewField(1, encoding.String("first message"))))
	_, err = b.Finish()
	require.NoError(t, err)

	b.Init(section.MsgHeader{Time: 2})
	require.NoError(t, b.Add(encoding.NewField(2, encoding.Int32(7))))
	frame, err := b.Finish()
	require.NoError(t, err)

	msg, _, err := Parse(frame)
	require.NoError(t, err)
	require.Equal(t, uint32(2), msg.Header.Time)
	require.Equal(t, encoding.FieldList{encoding.NewField(2, encoding.Int32(7))}, msg.Fields)
}

func TestBuilder_Errors(t *testing.T) {
	_, err := NewBuilder(WithClock(nil))
	require.Error(t, err)

	b, err := NewBuilder()
	require.NoError(t, err)
	defer b.Release()

	require.Error(t, b.Add(encoding.NewField(1, encoding.Int32(1))))
	_, err = b.Finish()
	require.Error(t, err)

	b.Init(section.MsgHeader{Time: 1})
	err = b.Add(encoding.NewField(1, encoding.Vector{Precision: 50}))
	require.ErrorIs(t, err, errs.ErrVectorHint)
}

func TestBuild(t *testing.T) {
	frame, err := Build(section.MsgHeader{Time: 5, MsgType: format.MsgUpdate}, testFields(), WithClock(fixedClock()))
	require.NoError(t, err)

	msg, _, err := Parse(frame)
	require.NoError(t, err)
	require.Len(t, msg.Fields, 5)
}

func TestParse_Errors(t *testing.T) {
	frame, err := Build(section.MsgHeader{Time: 5}, testFields())
	require.NoError(t, err)

	t.Run("incomplete", func(t *testing.T) {
		_, _, err := Parse(frame[:len(frame)-1])
		require.ErrorIs(t, err, errs.ErrInvalidFrameLen)
	})

	t.Run("bad field", func(t *testing.T) {
		bad := append([]byte(nil), frame...)
		bad = append(bad, 0x3f, 0x00)
		section.PatchLen(bad, uint32(len(bad)))
		_, _, err := Parse(bad)
		require.ErrorIs(t, err, errs.ErrUnknownFieldType)
	})

	t.Run("short header", func(t *testing.T) {
		_, _, err := Parse(frame[:4])
		require.ErrorIs(t, err, errs.ErrInvalidHeaderSize)
	})
}
