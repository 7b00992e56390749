// Package tape reads, writes and replays recorded market-data tapes.
//
// A tape is a flat file with a fixed-layout prefix followed by message
// frames:
//
//	[TapeHeader][DictEntry x numDict][u64 index x numSecIdx][RecordHeader x maxRec][frames...]
//
// Every frame carries the byte distance back to the previous frame of the
// same ticker, so each ticker's messages form a singly-linked list that runs
// backward from the record head. Reverse-chronological traversal is native.
// Chronological traversal buffers the chain's offsets first; Chronological
// pays that cost only when it is asked for.
//
// The coarse time index maps buckets of secPerIdx seconds since the tape
// day's midnight to the offset of the first frame at or after the bucket.
// Seeks are approximate and every consumer re-checks the exact frame time.
//
// Offsets are plain integers into the mapping, never pointers, so a Store
// can remap a growing file without invalidating positions held by callers.
//
// # Reading
//
//	store, err := tape.Open("quotes.tape")
//	if err != nil { ... }
//	defer store.Close()
//
//	idx, ok := store.Find("IDN", "AAPL.O")
//	for frame, err := range store.Chronological(idx) { ... }
//
// # Replaying
//
//	r := tape.NewReplayer(store, sink)
//	r.Subscribe("IDN", "AAPL.O")
//	n, err := r.Pump(ctx)
package tape
