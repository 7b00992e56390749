package tape

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
	"github.com/arloliu/mdwire/internal/clock"
	"github.com/arloliu/mdwire/internal/collision"
	"github.com/arloliu/mdwire/message"
	"github.com/arloliu/mdwire/section"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxRecords  = 4096
	DefaultSecPerIndex = 60
)

// ErrDictionaryFrozen is returned by AddField after the layout is written.
var ErrDictionaryFrozen = errors.New("dictionary is frozen after the first append")

// WriterConfig shapes a new tape.
type WriterConfig struct {
	// MaxRecords caps the number of distinct tickers. Zero means DefaultMaxRecords.
	MaxRecords uint32
	// SecPerIndex is the time index bucket width. Zero means DefaultSecPerIndex.
	SecPerIndex uint32
	// Location is the zone of the tape day. Nil means time.Local.
	Location *time.Location
	// CreateTime stamps the tape and fixes its day. Zero means now.
	CreateTime time.Time
	Logger     zerolog.Logger
}

// Writer appends frames to a new tape file.
//
// The dictionary, time index and record table are rewritten by Sync and
// Close. Frames are written in place as they are appended.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	loc    *time.Location
	clock  *clock.Midnight
	logger zerolog.Logger

	hdr      section.TapeHeader
	day      time.Time
	dict     []section.DictEntry
	records  []section.RecordHeader
	registry *collision.Registry
	index    []uint64
	lastSlot int64

	frozen bool
	closed bool
	buf    []byte
}

// Create truncates or creates path and returns a Writer for it.
func Create(path string, cfg WriterConfig) (*Writer, error) {
	if cfg.MaxRecords == 0 {
		cfg.MaxRecords = DefaultMaxRecords
	}
	if cfg.SecPerIndex == 0 {
		cfg.SecPerIndex = DefaultSecPerIndex
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CreateTime.IsZero() {
		cfg.CreateTime = time.Now()
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	numSlots := (86400 + cfg.SecPerIndex - 1) / cfg.SecPerIndex
	w := &Writer{
		f:      f,
		loc:    cfg.Location,
		clock:  clock.New(cfg.Location, nil),
		logger: cfg.Logger.With().Str("tape", path).Logger(),
		hdr: section.TapeHeader{
			Version:    section.TapeVersion,
			CreateTime: cfg.CreateTime.Unix(),
			SecPerIdx:  cfg.SecPerIndex,
			NumSecIdx:  numSlots,
			MaxRec:     cfg.MaxRecords,
		},
		day:      clock.StartOfDay(cfg.CreateTime, cfg.Location),
		registry: collision.NewRegistry(64),
		index:    make([]uint64, numSlots),
		lastSlot: -1,
	}

	return w, nil
}

// AddField registers a dictionary entry. Fields must be added before the
// first Append.
func (w *Writer) AddField(name string, fid uint32, ft format.FieldType) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case w.closed:
		return errs.ErrWriterClosed
	case w.frozen:
		return ErrDictionaryFrozen
	case name == "" || len(name) >= section.DictNameSize:
		return fmt.Errorf("field name %q must be 1..%d bytes", name, section.DictNameSize-1)
	case !ft.IsValid():
		return fmt.Errorf("field %s type %d: %w", name, ft, errs.ErrUnknownFieldType)
	}

	w.dict = append(w.dict, section.DictEntry{Name: name, FID: fid, Type: ft})

	return nil
}

// freezeLocked fixes the layout and writes the zeroed prefix.
func (w *Writer) freezeLocked() error {
	if w.frozen {
		return nil
	}

	w.hdr.NumDict = uint32(len(w.dict)) //nolint:gosec
	w.hdr.DataOffset = w.hdr.LayoutSize()
	w.hdr.DataEnd = w.hdr.DataOffset

	if err := w.f.Truncate(int64(w.hdr.DataOffset)); err != nil { //nolint:gosec
		return err
	}

	off := int64(w.hdr.DictOffset()) //nolint:gosec
	for i := range w.dict {
		if _, err := w.f.WriteAt(w.dict[i].Bytes(), off); err != nil {
			return err
		}
		off += section.DictEntrySize
	}
	w.frozen = true

	return w.syncLocked()
}

// Append writes one wire message for service/ticker stamped ts and returns
// the frame offset.
func (w *Writer) Append(service, ticker string, ts time.Time, msg []byte) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, errs.ErrWriterClosed
	}
	if err := w.freezeLocked(); err != nil {
		return 0, err
	}

	idx, err := w.recordLocked(service, ticker)
	if err != nil {
		return 0, err
	}
	rec := &w.records[idx]

	off := w.hdr.DataEnd
	fh := section.FrameHeader{
		DBIdx: rec.DBIdx,
		Sec:   uint32(ts.Unix()),              //nolint:gosec
		Usec:  uint32(ts.Nanosecond() / 1000), //nolint:gosec
	}
	if rec.Head != 0 {
		fh.Last = off - rec.Head
	}
	frameLen := uint64(fh.Size()) + uint64(len(msg))
	if frameLen > 0xffffffff {
		return 0, errs.ErrValueOverflow
	}
	fh.MsgLen = uint32(frameLen)

	w.buf = fh.AppendTo(w.buf[:0])
	w.buf = append(w.buf, msg...)
	if _, err := w.f.WriteAt(w.buf, int64(off)); err != nil { //nolint:gosec
		return 0, err
	}

	rec.Head = off
	rec.NumMsg++
	rec.NumBytes += frameLen
	rec.MsgSec, rec.MsgUsec = fh.Sec, fh.Usec
	if len(msg) > section.MsgHeaderFixedSize && format.MsgType(msg[9]) == format.MsgImage {
		rec.Image = off
	}

	w.hdr.DataEnd += frameLen
	w.hdr.NumMsg++
	if w.hdr.StartTime == 0 {
		w.hdr.StartTime = int64(fh.Sec)
	}
	w.hdr.CurTime, w.hdr.CurTimeUsec = int64(fh.Sec), fh.Usec

	if slot, ok := w.fillIndexLocked(ts, off); ok {
		rec.IdxTime = fh.Sec
		rec.IdxSlot = uint32(slot) //nolint:gosec
	}

	return off, nil
}

// AppendMessage builds a wire message from hdr and fields and appends it.
// A zero header time is taken from ts.
func (w *Writer) AppendMessage(service, ticker string, ts time.Time, hdr section.MsgHeader, fields []encoding.Field, opts ...message.BuilderOption) (uint64, error) {
	if hdr.Time == 0 {
		hdr.Time = w.clock.TicksAt(ts)
	}

	msg, err := message.Build(hdr, fields, opts...)
	if err != nil {
		return 0, err
	}

	return w.Append(service, ticker, ts, msg)
}

func (w *Writer) recordLocked(service, ticker string) (int, error) {
	if idx, ok := w.registry.Lookup(service, ticker); ok {
		return idx, nil
	}
	if len(service) >= section.RecordNameSize || len(ticker) >= section.RecordNameSize {
		return 0, fmt.Errorf("%s/%s longer than %d bytes: %w", service, ticker, section.RecordNameSize-1, errs.ErrInvalidTickerKey)
	}
	if w.hdr.NumRec >= w.hdr.MaxRec {
		return 0, errs.ErrTapeFull
	}

	idx := int(w.hdr.NumRec)
	if err := w.registry.Add(service, ticker, idx); err != nil {
		return 0, err
	}
	w.records = append(w.records, section.RecordHeader{
		Service:  service,
		Ticker:   ticker,
		DBIdx:    uint32(idx), //nolint:gosec
		StreamID: uint32(idx), //nolint:gosec
	})
	w.hdr.NumRec++

	w.logger.Debug().Str("service", service).Str("ticker", ticker).Int("db_idx", idx).Msg("new record")

	return idx, nil
}

// fillIndexLocked points every slot from the last filled one through the
// slot of ts at off.
func (w *Writer) fillIndexLocked(ts time.Time, off uint64) (int64, bool) {
	elapsed := ts.Sub(w.day)
	if elapsed < 0 {
		return 0, false
	}
	slot := int64(elapsed/time.Second) / int64(w.hdr.SecPerIdx)
	if slot >= int64(len(w.index)) {
		return 0, false
	}
	for i := w.lastSlot + 1; i <= slot; i++ {
		w.index[i] = off
	}
	if slot > w.lastSlot {
		w.lastSlot = slot
	}

	return slot, true
}

// Sync writes the header, time index and record table.
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errs.ErrWriterClosed
	}
	if err := w.freezeLocked(); err != nil {
		return err
	}

	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	idx := make([]byte, 0, len(w.index)*section.SecIndexEntry)
	for _, off := range w.index {
		idx = engine.AppendUint64(idx, off)
	}
	if _, err := w.f.WriteAt(idx, int64(w.hdr.SecIndexOffset())); err != nil { //nolint:gosec
		return err
	}

	for i := range w.records {
		if _, err := w.f.WriteAt(w.records[i].Bytes(), int64(w.hdr.RecordOffset(uint32(i)))); err != nil { //nolint:gosec
			return err
		}
	}

	// Header last, so a reader never sees a data end beyond written frames.
	_, err := w.f.WriteAt(w.hdr.Bytes(), 0)

	return err
}

// Header returns a copy of the current tape header.
func (w *Writer) Header() section.TapeHeader {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.hdr
}

// Close syncs the tape and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	err := w.freezeLocked()
	if err == nil {
		err = w.syncLocked()
	}
	if err == nil {
		err = w.f.Sync()
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}

	w.logger.Info().
		Uint32("records", w.hdr.NumRec).
		Uint64("messages", w.hdr.NumMsg).
		Uint64("bytes", w.hdr.DataEnd).
		Msg("tape closed")

	return err
}
