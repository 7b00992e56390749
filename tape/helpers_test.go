package tape

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/format"
	"github.com/arloliu/mdwire/section"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

const (
	fidBid = 22
	fidAsk = 25
)

type tick struct {
	svc string
	tkr string
	at  time.Duration
	bid float64
	typ format.MsgType
}

func aapl(at time.Duration, bid float64) tick { return tick{svc: "IDN", tkr: "AAPL.O", at: at, bid: bid} }
func msft(at time.Duration, bid float64) tick { return tick{svc: "IDN", tkr: "MSFT.O", at: at, bid: bid} }
func ibm(at time.Duration, bid float64) tick  { return tick{svc: "IDN", tkr: "IBM.N", at: at, bid: bid} }

func testWriterConfig() WriterConfig {
	return WriterConfig{
		MaxRecords:  8,
		SecPerIndex: 60,
		Location:    time.UTC,
		CreateTime:  testDay.Add(time.Hour),
	}
}

func newTestWriter(t *testing.T, path string) *Writer {
	t.Helper()

	w, err := Create(path, testWriterConfig())
	require.NoError(t, err)
	require.NoError(t, w.AddField("BID", fidBid, format.FieldDouble))
	require.NoError(t, w.AddField("ASK", fidAsk, format.FieldDouble))

	return w
}

func appendTicks(t *testing.T, w *Writer, ticks ...tick) []uint64 {
	t.Helper()

	offs := make([]uint64, 0, len(ticks))
	for _, tk := range ticks {
		typ := tk.typ
		if typ == format.MsgUndef {
			typ = format.MsgUpdate
		}
		hdr := section.MsgHeader{DataType: format.DataFieldList, MsgType: typ}
		fields := []encoding.Field{
			encoding.NewField(fidBid, encoding.Double(tk.bid)),
			encoding.NewField(fidAsk, encoding.Double(tk.bid+1)),
		}
		off, err := w.AppendMessage(tk.svc, tk.tkr, testDay.Add(tk.at), hdr, fields)
		require.NoError(t, err)
		offs = append(offs, off)
	}

	return offs
}

// writeTape records ticks into a fresh tape and returns its path and the
// frame offsets in append order.
func writeTape(t *testing.T, ticks ...tick) (string, []uint64) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.tape")
	w := newTestWriter(t, path)
	offs := appendTicks(t, w, ticks...)
	require.NoError(t, w.Close())

	return path, offs
}

func openTape(t *testing.T, path string) *Store {
	t.Helper()

	s, err := Open(path, WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

// replaceFile atomically swaps path for a file written by fn, leaving any
// existing mapping of the old inode intact.
func replaceFile(t *testing.T, path string, fn func(tmp string)) {
	t.Helper()

	tmp := path + ".new"
	fn(tmp)
	require.NoError(t, os.Rename(tmp, path))
}

// capture is a Sink that copies everything it receives.
type capture struct {
	records  []Record
	statuses []Status
	onRecord func(rec *Record)
}

func (c *capture) OnRecord(rec *Record) {
	c.records = append(c.records, *rec)
	if c.onRecord != nil {
		c.onRecord(rec)
	}
}

func (c *capture) OnStatus(st *Status) {
	c.statuses = append(c.statuses, *st)
}

func (c *capture) ofKind(k StatusKind) []Status {
	var out []Status
	for _, st := range c.statuses {
		if st.Kind == k {
			out = append(out, st)
		}
	}

	return out
}

func (c *capture) done(t *testing.T) Status {
	t.Helper()

	done := c.ofKind(StatusStreamDone)
	require.NotEmpty(t, done)

	return done[len(done)-1]
}

func (c *capture) bids(t *testing.T) []float64 {
	t.Helper()

	out := make([]float64, 0, len(c.records))
	for _, rec := range c.records {
		f, ok := rec.Fields.Get(fidBid)
		require.True(t, ok)
		out = append(out, f.Float64())
	}

	return out
}

func (c *capture) reset() {
	c.records = nil
	c.statuses = nil
}
