// Package clock tracks local midnight for wire message timestamps.
//
// Message headers carry time as 100-microsecond ticks since local midnight.
// A Midnight caches the current local day and recomputes it once the clock
// crosses the next local midnight, so hot paths only pay an atomic load.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// TicksPerSecond is the resolution of header timestamps.
const TicksPerSecond = 10000

// Midnight caches the start of the current local day.
type Midnight struct {
	loc *time.Location
	now func() time.Time
	mu  sync.Mutex
	day atomic.Pointer[dayBounds] // nil until first use
}

// dayBounds is one local day, [start, next). It is 23 or 25 hours long on
// daylight saving transitions.
type dayBounds struct {
	start time.Time
	next  time.Time
}

func (b *dayBounds) contains(t time.Time) bool {
	return b != nil && !t.Before(b.start) && t.Before(b.next)
}

var (
	defaultOnce     sync.Once
	defaultMidnight *Midnight
)

// Default returns the process-wide Midnight using time.Local and time.Now.
func Default() *Midnight {
	defaultOnce.Do(func() {
		defaultMidnight = New(time.Local, time.Now)
	})

	return defaultMidnight
}

// New creates a Midnight for loc. A nil loc means time.Local and a nil now
// means time.Now.
func New(loc *time.Location, now func() time.Time) *Midnight {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	return &Midnight{loc: loc, now: now}
}

// Location returns the time zone midnight is computed in.
func (m *Midnight) Location() *time.Location {
	return m.loc
}

// Now returns the current time from the configured source.
func (m *Midnight) Now() time.Time {
	return m.now()
}

// dayOf returns the cached day containing t, recomputing the cache when t
// falls outside it.
func (m *Midnight) dayOf(t time.Time) *dayBounds {
	if b := m.day.Load(); b.contains(t) {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if b := m.day.Load(); b.contains(t) {
		return b
	}
	start := StartOfDay(t, m.loc)
	b := &dayBounds{
		start: start,
		next:  time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, m.loc),
	}
	m.day.Store(b)

	return b
}

// Midnight returns the cached start of the current local day, recomputing
// it once the clock passes the next local midnight.
func (m *Midnight) Midnight() time.Time {
	return m.dayOf(m.now()).start
}

// Ticks returns the current time as ticks since local midnight.
func (m *Midnight) Ticks() uint32 {
	return m.TicksAt(m.now())
}

// TicksAt converts t to ticks since the start of its local day.
func (m *Midnight) TicksAt(t time.Time) uint32 {
	elapsed := t.Sub(m.dayOf(t).start)

	return uint32(elapsed / (time.Second / TicksPerSecond)) //nolint:gosec
}

// TimeOf converts header ticks to an absolute time on the cached day.
func (m *Midnight) TimeOf(ticks uint32) time.Time {
	return m.Midnight().Add(time.Duration(ticks) * (time.Second / TicksPerSecond))
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// SecondsSinceMidnight returns the whole seconds elapsed since local midnight of t.
func SecondsSinceMidnight(t time.Time, loc *time.Location) int64 {
	return int64(t.Sub(StartOfDay(t, loc)) / time.Second)
}

// FromUnixFloat converts fractional unix seconds to a time.
func FromUnixFloat(sec float64) time.Time {
	whole := int64(sec)
	frac := sec - float64(whole)

	return time.Unix(whole, int64(frac*1e9))
}
