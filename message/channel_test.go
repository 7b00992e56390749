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

type loopback struct {
	sink   FrameHandler
	now    float64
	refuse bool
	sent   int
}

func (l *loopback) Write(frame []byte) bool {
	if l.refuse {
		return false
	}
	l.sent++
	// deliver in two chunks to exercise reassembly
	half := len(frame) / 2
	l.sink.OnFrame(frame[:half])
	l.sink.OnFrame(frame[half:])

	return true
}

func (l *loopback) Now() float64 {
	return l.now
}

func TestPublisherSubscriber(t *testing.T) {
	var got []*Message
	sub, err := NewSubscriber(func(msg *Message) { got = append(got, msg) })
	require.NoError(t, err)
	defer sub.Close()

	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	tr := &loopback{sink: sub, now: float64(ts.Unix())}

	pub, err := NewPublisher(tr, WithClock(clock.New(time.UTC, nil)))
	require.NoError(t, err)
	defer pub.Close()

	for i := range 3 {
		n, err := pub.Publish(
			section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgUpdate},
			[]encoding.Field{encoding.NewField(22, encoding.Double(100 + float64(i)))},
		)
		require.NoError(t, err)
		require.Positive(t, n)
	}

	require.Len(t, got, 3)
	for i, msg := range got {
		require.Equal(t, uint32(i+1), msg.Header.RTL)
		require.Equal(t, uint32(10*3600*clock.TicksPerSecond), msg.Header.Time)
		f, ok := msg.Fields.Get(22)
		require.True(t, ok)
		require.InDelta(t, 100+float64(i), f.Float64(), 1e-9)
	}

	parsed, dropped := sub.Stats()
	require.Equal(t, uint64(3), parsed)
	require.Equal(t, uint64(0), dropped)
}

func TestPublisher_TransportRefuses(t *testing.T) {
	tr := &loopback{refuse: true}
	pub, err := NewPublisher(tr)
	require.NoError(t, err)
	defer pub.Close()

	_, err = pub.Publish(section.MsgHeader{Time: 1}, nil)
	require.ErrorIs(t, err, errs.ErrTransportWrite)

	_, err = NewPublisher(nil)
	require.Error(t, err)
}

func TestSubscriber_MalformedMessage(t *testing.T) {
	var errsSeen []error
	var delivered int
	sub, err := NewSubscriber(
		func(*Message) { delivered++ },
		WithErrorHandler(func(err error) { errsSeen = append(errsSeen, err) }),
	)
	require.NoError(t, err)
	defer sub.Close()

	good, err := Build(section.MsgHeader{Time: 1}, []encoding.Field{encoding.NewField(1, encoding.Int32(1))})
	require.NoError(t, err)

	bad := append(append([]byte(nil), good...), 0x3f)
	section.PatchLen(bad, uint32(len(bad)))

	sub.OnFrame(append(append([]byte(nil), bad...), good...))

	require.Equal(t, 1, delivered)
	require.Len(t, errsSeen, 1)
	require.ErrorIs(t, errsSeen[0], errs.ErrMalformedField)

	_, err = NewSubscriber(nil)
	require.Error(t, err)
}
