package mdwire

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/format"
	"github.com/arloliu/mdwire/message"
	"github.com/arloliu/mdwire/section"
	"github.com/arloliu/mdwire/tape"
	"github.com/stretchr/testify/require"
)

func TestBuildAndParseMessage(t *testing.T) {
	hdr := section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgUpdate, Time: 1234, RTL: 7}
	fields := []encoding.Field{
		encoding.NewField(22, encoding.Double(101.25)),
		encoding.NewField(32, encoding.Int64(-42)),
		encoding.NewField(3, encoding.String("APPLE INC")),
	}

	for _, packed := range []bool{true, false} {
		msg, err := BuildMessage(hdr, fields, message.WithPackedFields(packed))
		require.NoError(t, err)

		m, n, err := ParseMessage(msg)
		require.NoError(t, err)
		require.Equal(t, len(msg), n)
		require.Equal(t, packed, m.Header.Protocol.IsPacked())
		require.Equal(t, uint32(7), m.Header.RTL)
		require.Len(t, m.Fields, 3)

		bid, ok := m.Fields.Get(22)
		require.True(t, ok)
		require.InDelta(t, 101.25, bid.Float64(), 1e-9)

		vol, ok := m.Fields.Get(32)
		require.True(t, ok)
		require.Equal(t, int64(-42), vol.Int64())
	}
}

func TestNewBuilder(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)
	defer b.Release()

	b.Init(section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgImage, Time: 1})
	require.NoError(t, b.Add(encoding.NewField(6, encoding.Double(2000))))
	msg, err := b.Finish()
	require.NoError(t, err)

	m, _, err := ParseMessage(msg)
	require.NoError(t, err)
	require.Equal(t, format.FieldInt64, m.Fields[0].Type())
	require.InDelta(t, 2000.0, m.Fields[0].Float64(), 1e-9)
}

func TestTapeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.tape")
	day := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

	w, err := CreateTape(path, tape.WriterConfig{MaxRecords: 4, SecPerIndex: 60, Location: time.UTC, CreateTime: day})
	require.NoError(t, err)
	require.NoError(t, w.AddField("BID", 22, format.FieldDouble))

	for i := range 3 {
		hdr := section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgUpdate, Time: 1}
		_, err := w.AppendMessage("IDN", "AAPL.O", day.Add(time.Duration(i)*time.Second), hdr,
			[]encoding.Field{encoding.NewField(22, encoding.Double(float64(100+i)))})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	store, err := OpenTape(path, tape.WithLocation(time.UTC))
	require.NoError(t, err)
	defer store.Close()

	idx, ok := store.Find("IDN", "AAPL.O")
	require.True(t, ok)
	require.Equal(t, 0, idx)

	var bids []float64
	r, err := NewReplayer(store, tape.SinkFuncs{
		Record: func(rec *tape.Record) {
			f, ok := rec.Fields.Get(22)
			require.True(t, ok)
			bids = append(bids, f.Float64())
		},
	}, tape.WithDirection(tape.Reverse))
	require.NoError(t, err)

	r.Subscribe("IDN", "AAPL.O")
	n, err := r.Pump(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.InDeltaSlice(t, []float64{102, 101, 100}, bids, 1e-9)
}

func TestTickerKey(t *testing.T) {
	require.Equal(t, TickerKey("IDN", "AAPL.O"), TickerKey("IDN", "AAPL.O"))
	require.NotEqual(t, TickerKey("IDN", "AAPL.O"), TickerKey("IDN", "MSFT.O"))
	require.NotEqual(t, TickerKey("ID", "NAAPL.O"), TickerKey("IDN", "AAPL.O"))
}
