package tape

import (
	"testing"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
	"github.com/arloliu/mdwire/section"
	"github.com/stretchr/testify/require"
)

func TestParseSlice(t *testing.T) {
	path, _ := writeTape(t, aapl(time.Second, 1))
	s := openTape(t, path)

	sl, err := ParseSlice("09:30:00|10:00:00.500|60|BID,ASK,6", s)
	require.NoError(t, err)
	require.True(t, sl.Start.Equal(testDay.Add(9*time.Hour+30*time.Minute)))
	require.True(t, sl.End.Equal(testDay.Add(10*time.Hour+500*time.Millisecond)))
	require.Equal(t, time.Minute, sl.Interval)
	require.Equal(t, []uint32{fidBid, fidAsk, 6}, sl.FieldIDs)
	require.True(t, sl.Sampled())

	sl, err = ParseSlice("20240316 01:00:00|20240315 23:00:00", s)
	require.NoError(t, err)
	require.True(t, sl.Start.Equal(testDay.Add(23*time.Hour)), "reversed window is swapped")
	require.True(t, sl.End.Equal(testDay.Add(25*time.Hour)))
	require.False(t, sl.Sampled())
	require.Nil(t, sl.FieldIDs)

	sl, err = ParseSlice("", s)
	require.NoError(t, err)
	require.True(t, sl.Start.IsZero())
	require.True(t, sl.Contains(testDay))
}

func TestParseSlice_Errors(t *testing.T) {
	path, _ := writeTape(t, aapl(time.Second, 1))
	s := openTape(t, path)

	for spec, want := range map[string]error{
		"a|b|c|d|e":            errs.ErrInvalidSlice,
		"9h|10:00:00":          errs.ErrInvalidSlice,
		"09:00:00||abc":        errs.ErrInvalidSlice,
		"09:00:00||0.5":        errs.ErrInvalidSlice,
		"09:00:00||-5":         errs.ErrInvalidSlice,
		"09:00:00||60|NO_SUCH": errs.ErrUnknownField,
	} {
		_, err := ParseSlice(spec, s)
		require.ErrorIs(t, err, want, spec)
	}
}

func TestSlice_Contains(t *testing.T) {
	sl := &Slice{Start: testDay.Add(time.Minute), End: testDay.Add(2 * time.Minute)}

	require.False(t, sl.Contains(testDay))
	require.True(t, sl.Contains(testDay.Add(time.Minute)))
	require.True(t, sl.Contains(testDay.Add(2*time.Minute)))
	require.False(t, sl.Contains(testDay.Add(2*time.Minute+time.Nanosecond)))
}

func sampleRec(stream int, at time.Duration, bid float64) *Record {
	return &Record{
		Ticker:   "T",
		StreamID: stream,
		Time:     testDay.Add(at),
		Header:   sampleHeader(),
		Fields:   encoding.FieldList{encoding.NewField(fidBid, encoding.Double(bid))},
	}
}

func TestSampler_OneEmissionPerCrossing(t *testing.T) {
	sm := newSampler(&Slice{Interval: time.Minute, FieldIDs: []uint32{fidBid}})

	require.Nil(t, sm.observe(sampleRec(0, 10*time.Second, 1)))
	require.Nil(t, sm.observe(sampleRec(0, 40*time.Second, 2)))

	out := sm.observe(sampleRec(0, 70*time.Second, 3))
	require.NotNil(t, out)
	require.True(t, out.Time.Equal(testDay))
	require.Equal(t, format.MsgUpdate, out.Header.MsgType)
	f, ok := out.Fields.Get(fidBid)
	require.True(t, ok)
	require.InDelta(t, 2.0, f.Float64(), 0)
}

func TestSampler_PerTickerCaches(t *testing.T) {
	sm := newSampler(&Slice{Interval: time.Minute})

	require.Nil(t, sm.observe(sampleRec(0, 10*time.Second, 1)))
	require.Nil(t, sm.observe(sampleRec(1, 50*time.Second, 9)))

	out := sm.observe(sampleRec(1, 61*time.Second, 10))
	require.NotNil(t, out)
	require.Equal(t, 1, out.StreamID)
	f, _ := out.Fields.Get(fidBid)
	require.InDelta(t, 9.0, f.Float64(), 0)
}

func TestSampler_IgnoresUnrequestedFields(t *testing.T) {
	sm := newSampler(&Slice{Interval: time.Minute, FieldIDs: []uint32{fidAsk}})

	require.Nil(t, sm.observe(sampleRec(0, 10*time.Second, 1)))
	// Only BID was ever seen, so the bucket has nothing to emit.
	require.Nil(t, sm.observe(sampleRec(0, 70*time.Second, 2)))
}

func sampleHeader() section.MsgHeader {
	return section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgImage}
}
