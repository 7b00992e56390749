package tape

import (
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/mdwire/endian"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/clock"
	"github.com/arloliu/mdwire/internal/collision"
	"github.com/arloliu/mdwire/internal/mmap"
	"github.com/arloliu/mdwire/internal/options"
	"github.com/arloliu/mdwire/section"
	"github.com/rs/zerolog"
)

var engine = endian.TapeEngine()

// Store is a memory-mapped, read-only view of a tape file.
//
// Load may be called again to pick up growth, including from a Sink while a
// pump runs. Running iterators keep reading the mapping they started on,
// which is unmapped when the last of them finishes. Payload slices handed
// out outside an iteration become invalid at the reload; offsets stay valid.
type Store struct {
	path   string
	loc    *time.Location
	logger zerolog.Logger

	mu       sync.RWMutex
	mapping  *mmap.Mapping
	header   section.TapeHeader
	dict     []section.DictEntry
	byName   map[string]int
	byFID    map[uint32]int
	records  []section.RecordHeader
	registry *collision.Registry
	loaded   bool
	loadErr  error

	state atomic.Int32
}

// StoreOption configures a Store.
type StoreOption = options.Option[*Store]

// WithLocation sets the time zone used for tape-day arithmetic.
func WithLocation(loc *time.Location) StoreOption {
	return options.New(func(s *Store) error {
		if loc == nil {
			return fmt.Errorf("location cannot be nil")
		}
		s.loc = loc

		return nil
	})
}

// WithStoreLogger sets the logger used for load events.
func WithStoreLogger(logger zerolog.Logger) StoreOption {
	return options.NoError(func(s *Store) {
		s.logger = logger
	})
}

// NewStore creates an unloaded Store for path.
func NewStore(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{
		path:   path,
		loc:    time.Local,
		logger: zerolog.Nop(),
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}
	s.logger = s.logger.With().Str("tape", path).Logger()

	return s, nil
}

// Open creates a Store for path and loads it.
func Open(path string, opts ...StoreOption) (*Store, error) {
	s, err := NewStore(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the tape file path.
func (s *Store) Path() string {
	return s.path
}

// Location returns the time zone of the tape day.
func (s *Store) Location() *time.Location {
	return s.loc
}

// State returns the store lifecycle state.
func (s *Store) State() State {
	return State(s.state.Load())
}

// Err returns the error that moved the store to StateLoadFailed.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadErr
}

// Load maps the tape, or remaps it to pick up growth, and validates it.
//
// A remap fails with errs.ErrTapeStale if the file shrank or its fixed
// layout changed since the previous load. Any failure closes the mapping
// and leaves the store in StateLoadFailed, which is terminal.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateLoadFailed {
		return s.loadErr
	}
	s.state.Store(int32(StateLoading))

	m, err := mmap.Open(s.path)
	if err != nil {
		return s.failLocked(err)
	}

	var prev *section.TapeHeader
	if s.loaded {
		prev = &s.header
	}

	l, err := parseLayout(m.Bytes(), prev)
	if err != nil {
		_ = m.Close()
		return s.failLocked(err)
	}

	old := s.mapping
	s.mapping = m
	s.header = l.header
	s.dict = l.dict
	s.byName = l.byName
	s.byFID = l.byFID
	s.records = l.records
	s.registry = l.registry
	s.loaded = true
	if old != nil {
		_ = old.Close()
	}
	s.state.Store(int32(StateReady))

	s.logger.Info().
		Uint32("records", s.header.NumRec).
		Uint64("messages", s.header.NumMsg).
		Uint64("data_end", s.header.DataEnd).
		Bool("remap", prev != nil).
		Msg("tape loaded")

	return nil
}

func (s *Store) failLocked(err error) error {
	if s.mapping != nil {
		_ = s.mapping.Close()
		s.mapping = nil
	}
	s.dict, s.records, s.registry = nil, nil, nil
	s.byName, s.byFID = nil, nil
	s.loaded = false
	s.loadErr = err
	s.state.Store(int32(StateLoadFailed))
	s.logger.Error().Err(err).Msg("tape load failed")

	return err
}

// Close unmaps the tape. The store returns to StateIdle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.mapping != nil {
		err = s.mapping.Close()
		s.mapping = nil
	}
	s.dict, s.records, s.registry = nil, nil, nil
	s.byName, s.byFID = nil, nil
	s.loaded = false
	if s.State() != StateLoadFailed {
		s.state.Store(int32(StateIdle))
	}

	return err
}

type layout struct {
	header   section.TapeHeader
	dict     []section.DictEntry
	byName   map[string]int
	byFID    map[uint32]int
	records  []section.RecordHeader
	registry *collision.Registry
}

func parseLayout(data []byte, prev *section.TapeHeader) (*layout, error) {
	l := &layout{}
	if err := l.header.Parse(data); err != nil {
		return nil, err
	}
	h := &l.header

	size := uint64(len(data))
	if size < h.DataOffset || size < h.DataEnd {
		return nil, fmt.Errorf("file size %d below data end %d: %w", size, h.DataEnd, errs.ErrInvalidTapeHeader)
	}

	if prev != nil {
		if !prev.SameLayout(h) {
			return nil, errs.ErrLayoutChanged
		}
		if h.DataEnd < prev.DataEnd || h.NumRec < prev.NumRec {
			return nil, fmt.Errorf("data end %d < %d: %w", h.DataEnd, prev.DataEnd, errs.ErrTapeShrunk)
		}
	}

	l.dict = make([]section.DictEntry, h.NumDict)
	l.byName = make(map[string]int, h.NumDict)
	l.byFID = make(map[uint32]int, h.NumDict)
	off := h.DictOffset()
	for i := range l.dict {
		if err := l.dict[i].Parse(data[off:]); err != nil {
			return nil, err
		}
		l.byName[l.dict[i].Name] = i
		l.byFID[l.dict[i].FID] = i
		off += section.DictEntrySize
	}

	l.records = make([]section.RecordHeader, h.NumRec)
	l.registry = collision.NewRegistry(int(h.NumRec))
	for i := range l.records {
		rec := &l.records[i]
		if err := rec.Parse(data[h.RecordOffset(uint32(i)):]); err != nil { //nolint:gosec
			return nil, err
		}
		if rec.DBIdx != uint32(i) { //nolint:gosec
			return nil, fmt.Errorf("record %d claims dbIdx %d: %w", i, rec.DBIdx, errs.ErrDBIndexOutOfRange)
		}
		if rec.Head != 0 && (rec.Head < h.DataOffset || rec.Head >= h.DataEnd) {
			return nil, fmt.Errorf("record %d head %d outside data: %w", i, rec.Head, errs.ErrOffsetOutOfRange)
		}
		if err := l.registry.Add(rec.Service, rec.Ticker, i); err != nil {
			return nil, fmt.Errorf("record %d %s/%s: %w: %w", i, rec.Service, rec.Ticker, err, errs.ErrInvalidTapeHeader)
		}
	}

	return l, nil
}

// Header returns a copy of the tape header.
func (s *Store) Header() section.TapeHeader {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.header
}

// Day returns midnight of the day the tape was created.
func (s *Store) Day() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clock.StartOfDay(s.header.CreatedAt(), s.loc)
}

// Dictionary returns the field dictionary in tape order.
func (s *Store) Dictionary() []section.DictEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]section.DictEntry(nil), s.dict...)
}

// FieldByName looks up a dictionary entry by field name.
func (s *Store) FieldByName(name string) (section.DictEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byName[name]
	if !ok {
		return section.DictEntry{}, false
	}

	return s.dict[i], true
}

// FieldByID looks up a dictionary entry by field id.
func (s *Store) FieldByID(fid uint32) (section.DictEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byFID[fid]
	if !ok {
		return section.DictEntry{}, false
	}

	return s.dict[i], true
}

// NumRecords returns the number of tickers on the tape.
func (s *Store) NumRecords() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Records returns a copy of all record headers in dbIdx order.
func (s *Store) Records() []section.RecordHeader {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]section.RecordHeader(nil), s.records...)
}

// Record returns the record header for dbIdx.
func (s *Store) Record(dbIdx int) (section.RecordHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.recordLocked(dbIdx)
}

func (s *Store) recordLocked(dbIdx int) (section.RecordHeader, error) {
	if !s.loaded {
		return section.RecordHeader{}, errs.ErrTapeNotLoaded
	}
	if dbIdx < 0 || dbIdx >= len(s.records) {
		return section.RecordHeader{}, fmt.Errorf("dbIdx %d of %d: %w", dbIdx, len(s.records), errs.ErrDBIndexOutOfRange)
	}

	return s.records[dbIdx], nil
}

// Find returns the dbIdx of service/ticker.
func (s *Store) Find(service, ticker string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.registry == nil {
		return -1, false
	}

	return s.registry.Lookup(service, ticker)
}

// Frame reads the frame at off.
func (s *Store) Frame(off uint64) (Frame, error) {
	sp, release, err := s.pin()
	if err != nil {
		return Frame{}, err
	}
	defer release()

	return sp.frameAt(off)
}

// SeekTime returns an offset at or before the first frame stamped at or
// after t. The answer is approximate; callers filter exact times.
func (s *Store) SeekTime(t time.Time) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := &s.header
	if !s.loaded || t.IsZero() || h.NumSecIdx == 0 {
		return h.DataOffset
	}

	elapsed := t.Sub(clock.StartOfDay(h.CreatedAt(), s.loc))
	if elapsed < 0 {
		return h.DataOffset
	}
	slot := int64(elapsed/time.Second) / int64(h.SecPerIdx)
	if slot >= int64(h.NumSecIdx) {
		slot = int64(h.NumSecIdx) - 1
	}

	// Empty slots fall back to an earlier bucket, which is still at or
	// before the answer.
	data := s.mapping.Bytes()
	base := h.SecIndexOffset()
	for i := slot; i >= 0; i-- {
		pos := base + uint64(i)*section.SecIndexEntry
		off := engine.Uint64(data[pos : pos+section.SecIndexEntry])
		if off >= h.DataOffset && off <= h.DataEnd {
			return off
		}
	}

	return h.DataOffset
}

// Chain yields one ticker's frames newest first. Iteration stops after
// yielding a chain error.
func (s *Store) Chain(dbIdx int) iter.Seq2[Frame, error] {
	return s.chainSeq(dbIdx, func(sp span, rec *section.RecordHeader) iter.Seq2[Frame, error] {
		return sp.chain(rec.Head, rec.DBIdx)
	})
}

// Chronological yields one ticker's frames oldest first. It walks and
// buffers the whole backward chain before the first yield.
func (s *Store) Chronological(dbIdx int) iter.Seq2[Frame, error] {
	return s.ChronologicalSince(dbIdx, time.Time{})
}

// ChronologicalSince is Chronological restricted to frames stamped at or
// after since. Buffering stops at the first older frame.
func (s *Store) ChronologicalSince(dbIdx int, since time.Time) iter.Seq2[Frame, error] {
	return s.chronological(dbIdx, since, nil)
}

func (s *Store) chronological(dbIdx int, since time.Time, buffered func(int)) iter.Seq2[Frame, error] {
	var older func(*section.FrameHeader) bool
	if !since.IsZero() {
		older = func(h *section.FrameHeader) bool { return h.Time().Before(since) }
	}

	return s.chainSeq(dbIdx, func(sp span, rec *section.RecordHeader) iter.Seq2[Frame, error] {
		return sp.chronological(rec.Head, rec.DBIdx, int(rec.NumMsg), older, buffered) //nolint:gosec
	})
}

func (s *Store) chainSeq(dbIdx int, walk func(span, *section.RecordHeader) iter.Seq2[Frame, error]) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		s.mu.RLock()
		rec, err := s.recordLocked(dbIdx)
		var (
			sp      span
			release func()
		)
		if err == nil {
			sp, release = s.pinLocked()
		}
		s.mu.RUnlock()

		if err != nil {
			yield(Frame{}, err)
			return
		}
		defer release()

		for f, err := range walk(sp, &rec) {
			if !yield(f, err) {
				return
			}
		}
	}
}

// Frames yields all frames in file order starting at from. Zero means the
// first frame.
func (s *Store) Frames(from uint64) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		sp, release, err := s.pin()
		if err != nil {
			yield(Frame{}, err)
			return
		}
		defer release()

		if from == 0 {
			from = sp.lo
		}
		for f, err := range sp.forward(from) {
			if !yield(f, err) {
				return
			}
		}
	}
}

// pin returns the data span of the current mapping, pinned until release
// is called.
func (s *Store) pin() (span, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return span{}, nil, errs.ErrTapeNotLoaded
	}
	sp, release := s.pinLocked()

	return sp, release, nil
}

func (s *Store) pinLocked() (span, func()) {
	m := s.mapping
	if m == nil || !m.Acquire() {
		return span{}, func() {}
	}

	return newSpan(m.Bytes(), s.header.DataOffset, s.header.DataEnd), func() { _ = m.Release() }
}

// IsStale reports whether err came from a tape that changed under a load.
func IsStale(err error) bool {
	return errors.Is(err, errs.ErrTapeStale)
}
