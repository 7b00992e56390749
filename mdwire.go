// Package mdwire provides a binary wire codec for field-oriented market-data
// messages and a recorded-tape store that replays them.
//
// A message is a fixed header followed by a list of (id, type, value) fields.
// Integers are packed into 1, 2, 4 or 6 byte tiers with the sign folded into
// the field's type byte; doubles travel as fixed point with ten implied
// decimals. A tape is a memory-mapped file of such messages where each frame
// links back to the previous frame of the same ticker.
//
// # Core Features
//
//   - Tiered VarInt packing with an 8-byte unpacked fallback
//   - Per-type field codec (int, float, double, date, time, real, vector, strings)
//   - Two-phase message building with a backpatched length
//   - Stream splitting for byte-oriented transports
//   - Memory-mapped tapes with a per-ticker backward chain and a coarse time index
//   - Chronological, reverse, windowed, sampled and paged replay
//
// # Basic Usage
//
// Building and parsing a message:
//
//	msg, _ := mdwire.BuildMessage(section.MsgHeader{
//	    DataType: format.DataFieldList,
//	    MsgType:  format.MsgUpdate,
//	}, []encoding.Field{
//	    encoding.NewField(22, encoding.Double(101.25)),
//	    encoding.NewField(32, encoding.Int64(-42)),
//	})
//
//	m, n, _ := mdwire.ParseMessage(msg)
//	bid, _ := m.Fields.Get(22)
//
// Replaying a tape:
//
//	store, _ := mdwire.OpenTape("day.tape")
//	defer store.Close()
//
//	r, _ := mdwire.NewReplayer(store, tape.SinkFuncs{
//	    Record: func(rec *tape.Record) { fmt.Println(rec.Ticker, rec.Fields) },
//	})
//	r.Subscribe("IDN", "AAPL.O")
//	n, err := r.Pump(ctx)
//
// # Package Structure
//
// This package wraps the most common entry points. The encoding, section,
// message and tape packages expose the full API.
package mdwire

import (
	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/internal/hash"
	"github.com/arloliu/mdwire/message"
	"github.com/arloliu/mdwire/section"
	"github.com/arloliu/mdwire/tape"
)

// NewBuilder creates a reusable message builder.
//
// Fields are packed by default; pass message.WithPackedFields(false) for the
// fixed-width form. Call Release when the builder is no longer needed.
//
// Example:
//
//	b, _ := mdwire.NewBuilder()
//	defer b.Release()
//	b.Init(section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgImage})
//	_ = b.Add(encoding.NewField(3, encoding.String("APPLE INC")))
//	msg, _ := b.Finish()
func NewBuilder(opts ...message.BuilderOption) (*message.Builder, error) {
	return message.NewBuilder(opts...)
}

// BuildMessage encodes one message in a single call.
//
// Parameters:
//   - hdr: Header; Len is computed, a zero Time is stamped with the current tick
//   - fields: Fields in wire order
//   - opts: Builder options
//
// Returns:
//   - []byte: The encoded message, owned by the caller
//   - error: A field encoding error
func BuildMessage(hdr section.MsgHeader, fields []encoding.Field, opts ...message.BuilderOption) ([]byte, error) {
	return message.Build(hdr, fields, opts...)
}

// ParseMessage decodes the message at the start of data and returns the
// number of bytes it occupies.
func ParseMessage(data []byte) (message.Message, int, error) {
	return message.Parse(data)
}

// OpenTape maps and validates a tape file.
//
// The store is Ready on success. Call Load again to pick up frames appended
// since; a store whose file shrank or whose layout changed reports an error
// matching errs.ErrTapeStale.
//
// Example:
//
//	store, err := mdwire.OpenTape("day.tape", tape.WithLocation(ny))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
func OpenTape(path string, opts ...tape.StoreOption) (*tape.Store, error) {
	return tape.Open(path, opts...)
}

// CreateTape creates a new tape for recording.
//
// Register every field with AddField before the first Append; the dictionary
// is frozen once data is written.
func CreateTape(path string, cfg tape.WriterConfig) (*tape.Writer, error) {
	return tape.Create(path, cfg)
}

// NewReplayer creates a replay engine that delivers records and statuses
// from store to sink.
//
// Available options:
//   - tape.WithDirection(tape.Chronological|tape.Reverse)
//   - tape.WithLogger(logger)
//   - tape.WithMetrics(m)
//   - tape.WithProgressEvery(n)
func NewReplayer(store *tape.Store, sink tape.Sink, opts ...tape.ReplayerOption) (*tape.Replayer, error) {
	return tape.NewReplayer(store, sink, opts...)
}

// TickerKey returns the 64-bit key a tape uses to look up a ticker.
func TickerKey(service, ticker string) uint64 {
	return hash.TickerKey(service, ticker)
}
