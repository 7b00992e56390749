package tape

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
)

// Slice restricts a replay to a time window and optionally samples it.
//
// A zero Start or End leaves that side open. A positive Interval turns on
// sampling: each ticker emits one synthetic update per elapsed interval,
// stamped at the interval start and carrying the last value of each field
// in FieldIDs seen before the boundary was crossed. An empty FieldIDs
// samples every field.
type Slice struct {
	Start    time.Time
	End      time.Time
	Interval time.Duration
	FieldIDs []uint32
}

// Contains reports whether t lies inside the window, ends inclusive.
func (s *Slice) Contains(t time.Time) bool {
	if !s.Start.IsZero() && t.Before(s.Start) {
		return false
	}
	if !s.End.IsZero() && t.After(s.End) {
		return false
	}

	return true
}

// Sampled reports whether the slice emits samples rather than raw records.
func (s *Slice) Sampled() bool {
	return s.Interval > 0
}

// Validate checks the slice and swaps a reversed window.
func (s *Slice) Validate() error {
	if s.Interval < 0 {
		return fmt.Errorf("negative interval %s: %w", s.Interval, errs.ErrInvalidSlice)
	}
	if s.Sampled() && s.Interval < time.Second {
		return fmt.Errorf("interval %s below one second: %w", s.Interval, errs.ErrInvalidSlice)
	}
	if !s.Start.IsZero() && !s.End.IsZero() && s.End.Before(s.Start) {
		s.Start, s.End = s.End, s.Start
	}

	return nil
}

// ParseSlice parses "start|end|interval|fields".
//
// Times are "YYYYMMDD HH:MM:SS[.mmm]" or "HH:MM:SS[.mmm]", the latter on
// the tape day. Interval is in seconds and may be empty or 0 for a plain
// window. Fields is a comma list of dictionary names or numeric ids.
// Empty parts are open.
func ParseSlice(spec string, store *Store) (*Slice, error) {
	parts := strings.Split(spec, "|")
	if len(parts) > 4 {
		return nil, fmt.Errorf("%q has %d parts: %w", spec, len(parts), errs.ErrInvalidSlice)
	}
	for len(parts) < 4 {
		parts = append(parts, "")
	}

	day := store.Day()
	loc := store.Location()

	var (
		s   Slice
		err error
	)
	if s.Start, err = parseSliceTime(parts[0], day, loc); err != nil {
		return nil, err
	}
	if s.End, err = parseSliceTime(parts[1], day, loc); err != nil {
		return nil, err
	}

	if iv := strings.TrimSpace(parts[2]); iv != "" {
		secs, err := strconv.ParseFloat(iv, 64)
		if err != nil {
			return nil, fmt.Errorf("interval %q: %w", iv, errs.ErrInvalidSlice)
		}
		s.Interval = time.Duration(secs * float64(time.Second))
	}

	if s.FieldIDs, err = resolveFields(parts[3], store); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

func parseSliceTime(v string, day time.Time, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}

	for _, layout := range []string{"20060102 15:04:05.000", "20060102 15:04:05"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"15:04:05.000", "15:04:05"} {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(),
				t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("time %q: %w", v, errs.ErrInvalidSlice)
}

func resolveFields(v string, store *Store) ([]uint32, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}

	var ids []uint32
	for _, name := range strings.Split(v, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if e, ok := store.FieldByName(name); ok {
			ids = append(ids, e.FID)
			continue
		}
		id, err := strconv.ParseUint(name, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, errs.ErrUnknownField)
		}
		ids = append(ids, uint32(id))
	}

	return ids, nil
}

// sampler turns a record stream into per-interval snapshots.
type sampler struct {
	interval int64 // nanoseconds
	fids     *roaring.Bitmap
	order    []uint32
	tickers  map[int]*sampleCache
}

type sampleCache struct {
	tSnap  int64
	fields map[uint32]encoding.Field
	order  []uint32 // first-seen order when sampling every field
	header Record
}

func newSampler(s *Slice) *sampler {
	sm := &sampler{
		interval: int64(s.Interval),
		tickers:  make(map[int]*sampleCache),
	}
	if len(s.FieldIDs) > 0 {
		sm.fids = roaring.BitmapOf(s.FieldIDs...)
		sm.order = s.FieldIDs
	}

	return sm
}

// observe feeds one record and returns the snapshot it triggers, if any.
//
// The emission decision uses the cache as it stood before rec, then rec is
// cached. The first record of a ticker only primes the cache.
func (sm *sampler) observe(rec *Record) *Record {
	ts := rec.Time.UnixNano()

	c, ok := sm.tickers[rec.StreamID]
	if !ok {
		c = &sampleCache{
			tSnap:  ts - mod(ts, sm.interval),
			fields: make(map[uint32]encoding.Field),
		}
		sm.tickers[rec.StreamID] = c
	}

	var out *Record
	if ok && ts >= c.tSnap+sm.interval {
		out = sm.snapshot(c)
		c.tSnap += (ts - c.tSnap) / sm.interval * sm.interval
	}

	for _, f := range rec.Fields {
		if sm.fids != nil && !sm.fids.Contains(f.ID) {
			continue
		}
		if _, seen := c.fields[f.ID]; !seen && sm.fids == nil {
			c.order = append(c.order, f.ID)
		}
		c.fields[f.ID] = f
	}
	c.header = Record{
		Service:  rec.Service,
		Ticker:   rec.Ticker,
		StreamID: rec.StreamID,
		Header:   rec.Header,
		Offset:   rec.Offset,
	}

	return out
}

func (sm *sampler) snapshot(c *sampleCache) *Record {
	order := sm.order
	if order == nil {
		order = c.order
	}

	fields := make(encoding.FieldList, 0, len(order))
	for _, fid := range order {
		if f, ok := c.fields[fid]; ok {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	out := c.header
	out.Time = time.Unix(0, c.tSnap)
	out.Header.MsgType = format.MsgUpdate
	out.Fields = fields

	return &out
}

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}

	return m
}
