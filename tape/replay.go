package tape

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/metrics"
	"github.com/arloliu/mdwire/internal/options"
	"github.com/arloliu/mdwire/message"
	"github.com/arloliu/mdwire/section"
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

// Direction selects the delivery order of ticker pumps.
type Direction uint8

const (
	// Chronological delivers oldest first. Ticker chains are buffered.
	Chronological Direction = iota
	// Reverse delivers newest first, following the chains natively.
	// Sampled pumps still deliver oldest first.
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}

	return "chronological"
}

const (
	// probeFrames is how many frames vet an explicit paging offset.
	probeFrames = 5
	// DefaultProgressEvery is the buffering progress status cadence.
	DefaultProgressEvery = 10000
)

// errStopped ends a pump after Stop or StopPumpFullTape.
var errStopped = errors.New("pump stopped")

// TickerInfo describes one tape record for Query.
type TickerInfo struct {
	Service    string
	Ticker     string
	DBIdx      int
	NumMsg     uint64
	LastTime   time.Time
	Subscribed bool
}

type deadSub struct {
	service string
	ticker  string
	id      int
}

type pageRequest struct {
	id    int
	off   uint64
	count int
}

// Replayer pumps tape contents to a Sink.
//
// At most one pump runs at a time. Subscriptions, slices and paging
// requests may be changed from other goroutines and take effect on the
// next pump.
type Replayer struct {
	store         *Store
	sink          Sink
	logger        zerolog.Logger
	metrics       *metrics.Replay
	direction     Direction
	progressEvery int

	mu      sync.Mutex
	watch   *roaring.Bitmap
	nSub    int
	nDead   int       // dead ids handed out so far, never decremented
	dead    []deadSub // every subscription missing from the tape
	pending []deadSub // dead subscriptions not yet reported
	slice   *Slice
	page    *pageRequest
	pageID  int

	running atomic.Bool
	busy    atomic.Bool
	state   atomic.Int32
}

// ReplayerOption configures a Replayer.
type ReplayerOption = options.Option[*Replayer]

// WithDirection sets the ticker pump order.
func WithDirection(d Direction) ReplayerOption {
	return options.New(func(r *Replayer) error {
		if d != Chronological && d != Reverse {
			return fmt.Errorf("invalid direction %d", d)
		}
		r.direction = d

		return nil
	})
}

// WithLogger sets the replay logger.
func WithLogger(logger zerolog.Logger) ReplayerOption {
	return options.NoError(func(r *Replayer) {
		r.logger = logger
	})
}

// WithMetrics sets the collectors updated by pumps.
func WithMetrics(m *metrics.Replay) ReplayerOption {
	return options.NoError(func(r *Replayer) {
		r.metrics = m
	})
}

// WithProgressEvery sets how many buffered frames separate progress
// statuses. Zero disables them.
func WithProgressEvery(n int) ReplayerOption {
	return options.New(func(r *Replayer) error {
		if n < 0 {
			return fmt.Errorf("progress cadence cannot be negative")
		}
		r.progressEvery = n

		return nil
	})
}

// NewReplayer creates a Replayer over a loaded store.
func NewReplayer(store *Store, sink Sink, opts ...ReplayerOption) (*Replayer, error) {
	if store == nil || sink == nil {
		return nil, fmt.Errorf("store and sink are required")
	}

	r := &Replayer{
		store:         store,
		sink:          sink,
		logger:        zerolog.Nop(),
		progressEvery: DefaultProgressEvery,
		watch:         roaring.New(),
	}
	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}
	r.state.Store(int32(store.State()))

	return r, nil
}

// State returns the replay lifecycle state. Before the first pump it
// mirrors the store.
func (r *Replayer) State() State {
	if st := r.store.State(); st != StateReady {
		return st
	}
	if st := State(r.state.Load()); st != StateIdle && st != StateLoading {
		return st
	}

	return StateReady
}

// Subscribe adds service/ticker to the watch list and returns its stream
// id. Tickers missing from the tape get ids past maxRec and produce one
// "non-existent item" status on the next pump.
func (r *Replayer) Subscribe(service, ticker string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.store.Find(service, ticker); ok {
		if r.watch.CheckedAdd(uint32(idx)) { //nolint:gosec
			r.nSub++
		}

		return idx
	}

	for _, d := range r.dead {
		if d.service == service && d.ticker == ticker {
			return d.id
		}
	}
	d := deadSub{service: service, ticker: ticker, id: int(r.store.Header().MaxRec) + r.nDead}
	r.dead = append(r.dead, d)
	r.pending = append(r.pending, d)
	r.nSub++
	r.nDead++

	return d.id
}

// Unsubscribe removes service/ticker from the watch list.
func (r *Replayer) Unsubscribe(service, ticker string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, ok := r.store.Find(service, ticker); ok {
		if r.watch.CheckedRemove(uint32(idx)) { //nolint:gosec
			r.nSub--
			return true
		}

		return false
	}

	for i, d := range r.dead {
		if d.service == service && d.ticker == ticker {
			r.dead = append(r.dead[:i], r.dead[i+1:]...)
			r.pending = slices.DeleteFunc(r.pending, func(p deadSub) bool { return p.id == d.id })
			r.nSub--

			return true
		}
	}

	return false
}

// SetSlice sets the time window and sampling for later pumps. Nil clears it.
func (r *Replayer) SetSlice(s *Slice) error {
	if r.busy.Load() {
		return errs.ErrPumpInProgress
	}

	var cp *Slice
	if s != nil {
		v := *s
		v.FieldIDs = append([]uint32(nil), s.FieldIDs...)
		if err := v.Validate(); err != nil {
			return err
		}
		cp = &v
	}

	r.mu.Lock()
	r.slice = cp
	r.mu.Unlock()

	return nil
}

// StartPumpFullTape queues a paged pump of up to count frames of every
// ticker starting at off. Zero off means the first frame and a count of
// zero or less means no limit. The returned id names the request for
// StopPumpFullTape.
func (r *Replayer) StartPumpFullTape(off uint64, count int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.page != nil || r.busy.Load() {
		return 0, errs.ErrPumpInProgress
	}
	r.pageID++
	r.page = &pageRequest{id: r.pageID, off: off, count: count}

	return r.pageID, nil
}

// StopPumpFullTape cancels the paged pump id, queued or running.
func (r *Replayer) StopPumpFullTape(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.page == nil || r.page.id != id {
		return false
	}
	r.page = nil
	r.running.Store(false)

	return true
}

// Stop asks the running pump to finish. The pump ends with a
// "Stream terminated" status.
func (r *Replayer) Stop() {
	r.running.Store(false)
}

// Query lists every tape record with its subscription state.
func (r *Replayer) Query() []TickerInfo {
	recs := r.store.Records()

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]TickerInfo, len(recs))
	for i := range recs {
		out[i] = TickerInfo{
			Service:    recs[i].Service,
			Ticker:     recs[i].Ticker,
			DBIdx:      i,
			NumMsg:     recs[i].NumMsg,
			LastTime:   recs[i].LastTime(),
			Subscribed: r.watch.Contains(uint32(i)), //nolint:gosec
		}
	}

	return out
}

type pumpMode uint8

const (
	modeIdle pumpMode = iota
	modeAll
	modeWatch
	modeTicker
	modePage
)

func (m pumpMode) String() string {
	switch m {
	case modeAll:
		return "all"
	case modeWatch:
		return "watch"
	case modeTicker:
		return "ticker"
	case modePage:
		return "page"
	default:
		return "idle"
	}
}

type plan struct {
	mode  pumpMode
	dbIdx int
	watch *roaring.Bitmap
	slice *Slice
	page  *pageRequest
	dead  []deadSub
}

type pumpRun struct {
	ctx     context.Context
	log     zerolog.Logger
	recs    []section.RecordHeader
	slice   *Slice
	sampler *sampler
	count   int
	corrupt bool
}

// Pump runs one pump over the current subscriptions and blocks until it
// ends. Queued paged requests take precedence. With no subscriptions every
// ticker is pumped; a single subscription pumps that ticker's chain.
//
// It returns the number of records delivered. A ctx deadline yields an
// error matching errs.ErrTimeout.
func (r *Replayer) Pump(ctx context.Context) (int, error) {
	return r.pump(ctx, func() plan {
		return r.planLocked()
	})
}

// PumpTicker pumps the chain of one ticker regardless of subscriptions.
func (r *Replayer) PumpTicker(ctx context.Context, dbIdx int) (int, error) {
	return r.pump(ctx, func() plan {
		p := plan{mode: modeTicker, dbIdx: dbIdx, slice: r.slice, dead: r.pending}
		r.pending = nil

		return p
	})
}

func (r *Replayer) planLocked() plan {
	p := plan{slice: r.slice, dead: r.pending}
	r.pending = nil

	switch {
	case r.page != nil:
		p.mode = modePage
		p.page = r.page
		p.slice = nil
	case r.nSub == 0:
		p.mode = modeAll
	case r.watch.IsEmpty():
		p.mode = modeIdle
	case r.watch.GetCardinality() == 1:
		p.mode = modeTicker
		p.dbIdx = int(r.watch.Minimum())
	default:
		p.mode = modeWatch
		p.watch = r.watch.Clone()
	}

	return p
}

func (r *Replayer) pump(ctx context.Context, build func() plan) (int, error) {
	if !r.busy.CompareAndSwap(false, true) {
		return 0, errs.ErrPumpInProgress
	}
	defer r.busy.Store(false)

	if r.store.State() != StateReady {
		return 0, errs.ErrTapeNotLoaded
	}

	r.mu.Lock()
	p := build()
	r.mu.Unlock()

	return r.run(ctx, p)
}

func (r *Replayer) run(ctx context.Context, p plan) (int, error) {
	started := time.Now()
	run := &pumpRun{
		ctx:   ctx,
		log:   r.logger.With().Str("run", ksuid.New().String()).Str("mode", p.mode.String()).Logger(),
		recs:  r.store.Records(),
		slice: p.slice,
	}
	if p.slice != nil && p.slice.Sampled() {
		run.sampler = newSampler(p.slice)
	}

	r.running.Store(true)
	r.state.Store(int32(StatePumping))
	run.log.Debug().Int("dead", len(p.dead)).Msg("pump started")

	for _, d := range p.dead {
		r.emit(&Status{Kind: StatusDead, Service: d.service, Ticker: d.ticker, StreamID: d.id, Text: TextNonExistent})
	}

	var (
		next uint64
		err  error
	)
	switch p.mode {
	case modePage:
		next, err = r.pumpPage(run, p.page)
		r.finishPage(p.page.id)
	case modeTicker:
		err = r.pumpTicker(run, p.dbIdx)
	case modeAll, modeWatch:
		if r.direction == Reverse {
			err = r.pumpEach(run, p.watch)
		} else {
			err = r.pumpForward(run, p.watch)
		}
	}

	r.state.Store(int32(StateDraining))
	completed := err == nil && !run.corrupt && r.running.Load()
	if errors.Is(err, errStopped) {
		err = nil
	}

	done := &Status{Kind: StatusStreamDone, Offset: next, Completed: completed, Err: err, Text: TextStreamTerminated}
	if completed {
		done.Text = TextStreamComplete
	}
	r.emit(done)

	r.running.Store(false)
	result := "complete"
	if completed {
		r.state.Store(int32(StateReady))
	} else {
		result = "terminated"
		r.state.Store(int32(StateStopped))
	}

	elapsed := time.Since(started)
	r.metrics.Pump(p.mode.String(), result, elapsed)
	run.log.Info().
		Int("records", run.count).
		Str("result", result).
		Dur("elapsed", elapsed).
		Msg("pump finished")

	return run.count, err
}

func (r *Replayer) finishPage(id int) {
	r.mu.Lock()
	if r.page != nil && r.page.id == id {
		r.page = nil
	}
	r.mu.Unlock()
}

func (r *Replayer) emit(st *Status) {
	r.metrics.Status(st.Kind.String())
	r.sink.OnStatus(st)
}

// recordError reports a skipped record.
func (r *Replayer) recordError(run *pumpRun, rec *section.RecordHeader, err error) {
	run.log.Warn().Err(err).Msg("record skipped")

	st := &Status{Kind: StatusError, Text: err.Error(), Err: err, StreamID: -1}
	if rec != nil {
		st.Service, st.Ticker, st.StreamID = rec.Service, rec.Ticker, int(rec.DBIdx)
	}
	r.emit(st)
}

// chainBroken reports corruption that ends a traversal.
func (r *Replayer) chainBroken(run *pumpRun, rec *section.RecordHeader, err error) {
	run.corrupt = true
	r.metrics.ChainError()
	r.recordError(run, rec, err)
}

func (r *Replayer) record(run *pumpRun, dbIdx uint32) (*section.RecordHeader, error) {
	if int(dbIdx) >= len(run.recs) {
		return nil, fmt.Errorf("dbIdx %d of %d: %w", dbIdx, len(run.recs), errs.ErrDBIndexOutOfRange)
	}

	return &run.recs[dbIdx], nil
}

func (r *Replayer) checkRunning(run *pumpRun) error {
	if !r.running.Load() {
		return errStopped
	}
	if err := run.ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", errs.ErrTimeout, err)
		}

		return err
	}

	return nil
}

// deliver decodes f and hands it, or the sample it triggers, to the sink.
func (r *Replayer) deliver(run *pumpRun, f *Frame, rec *section.RecordHeader, sample bool) error {
	if err := r.checkRunning(run); err != nil {
		return err
	}

	msg, _, err := message.Parse(f.Payload)
	if err != nil {
		r.recordError(run, rec, fmt.Errorf("frame at %d: %w", f.Offset, err))
		return nil
	}

	out := &Record{
		Service:  rec.Service,
		Ticker:   rec.Ticker,
		StreamID: int(rec.DBIdx),
		Time:     f.Time(),
		Header:   msg.Header,
		Fields:   msg.Fields,
		Offset:   f.Offset,
	}
	if sample && run.sampler != nil {
		if out = run.sampler.observe(out); out == nil {
			return nil
		}
	}

	r.sink.OnRecord(out)
	run.count++
	r.metrics.Record()

	return nil
}

// windowed classifies t against the run's slice: 0 inside, -1 before the
// start, 1 past the end.
func (run *pumpRun) windowed(t time.Time) int {
	s := run.slice
	switch {
	case s == nil:
		return 0
	case !s.Start.IsZero() && t.Before(s.Start):
		return -1
	case !s.End.IsZero() && t.After(s.End):
		return 1
	default:
		return 0
	}
}

func (r *Replayer) pumpTicker(run *pumpRun, dbIdx int) error {
	if dbIdx < 0 || dbIdx >= len(run.recs) {
		return fmt.Errorf("dbIdx %d of %d: %w", dbIdx, len(run.recs), errs.ErrDBIndexOutOfRange)
	}
	rec := &run.recs[dbIdx]

	// Sample buckets only advance forward in time, so sampled pumps always
	// walk the chain oldest first.
	if r.direction == Reverse && run.sampler == nil {
		return r.pumpReverse(run, rec)
	}

	var since time.Time
	if run.slice != nil {
		since = run.slice.Start
	}

	var buffered func(int)
	if r.progressEvery > 0 {
		buffered = func(n int) {
			if n%r.progressEvery == 0 {
				r.emit(&Status{
					Kind:     StatusProgress,
					Service:  rec.Service,
					Ticker:   rec.Ticker,
					StreamID: dbIdx,
					Text:     fmt.Sprintf("buffered %d of about %d msgs", n, rec.NumMsg),
				})
			}
		}
	}

	for f, err := range r.store.chronological(dbIdx, since, buffered) {
		if err != nil {
			r.chainBroken(run, rec, err)
			return nil
		}
		switch run.windowed(f.Time()) {
		case 1:
			return nil
		case -1:
			continue
		}
		if err := r.deliver(run, &f, rec, true); err != nil {
			return err
		}
	}

	return nil
}

func (r *Replayer) pumpReverse(run *pumpRun, rec *section.RecordHeader) error {
	for f, err := range r.store.Chain(int(rec.DBIdx)) {
		if err != nil {
			r.chainBroken(run, rec, err)
			return nil
		}
		switch run.windowed(f.Time()) {
		case -1:
			return nil
		case 1:
			continue
		}
		if err := r.deliver(run, &f, rec, true); err != nil {
			return err
		}
	}

	return nil
}

// pumpEach pumps every ticker in watch, or every ticker when watch is nil,
// one chain after another.
func (r *Replayer) pumpEach(run *pumpRun, watch *roaring.Bitmap) error {
	for i := range run.recs {
		if watch != nil && !watch.Contains(uint32(i)) { //nolint:gosec
			continue
		}
		if err := r.pumpTicker(run, i); err != nil {
			return err
		}
	}

	return nil
}

// pumpForward scans frames in file order, from the time index position of
// the slice start.
func (r *Replayer) pumpForward(run *pumpRun, watch *roaring.Bitmap) error {
	var from uint64
	if run.slice != nil && !run.slice.Start.IsZero() {
		from = r.store.SeekTime(run.slice.Start)
	}

	for f, err := range r.store.Frames(from) {
		if err != nil {
			r.chainBroken(run, nil, err)
			return nil
		}

		rec, err := r.record(run, f.Header.DBIdx)
		if err != nil {
			r.recordError(run, nil, fmt.Errorf("frame at %d: %w", f.Offset, err))
			continue
		}
		if watch != nil && !watch.Contains(f.Header.DBIdx) {
			continue
		}
		switch run.windowed(f.Time()) {
		case 1:
			return nil
		case -1:
			continue
		}
		if err := r.deliver(run, &f, rec, true); err != nil {
			return err
		}
	}

	return nil
}

// pumpPage delivers up to pg.count frames from pg.off and returns the
// offset to resume from, 0 once the tape is exhausted.
func (r *Replayer) pumpPage(run *pumpRun, pg *pageRequest) (uint64, error) {
	h := r.store.Header()

	off := pg.off
	if off == 0 {
		off = h.DataOffset
	}
	if off < h.DataOffset || off > h.DataEnd {
		return 0, fmt.Errorf("offset %d outside [%d, %d]: %w", off, h.DataOffset, h.DataEnd, errs.ErrStaleOffset)
	}
	if off == h.DataEnd {
		return 0, nil
	}
	if err := r.probe(off, &h); err != nil {
		return 0, err
	}

	next := off
	n := 0
	for f, err := range r.store.Frames(off) {
		if err != nil {
			r.chainBroken(run, nil, err)
			return next, nil
		}
		if pg.count > 0 && n >= pg.count {
			break
		}

		rec, err := r.record(run, f.Header.DBIdx)
		if err != nil {
			r.recordError(run, nil, fmt.Errorf("frame at %d: %w", f.Offset, err))
			next = f.Next()

			continue
		}
		if err := r.deliver(run, &f, rec, false); err != nil {
			return next, err
		}
		next = f.Next()
		n++
	}

	if next >= h.DataEnd {
		next = 0
	}

	return next, nil
}

// probe vets up to probeFrames frames at off before a paged pump commits
// to it.
func (r *Replayer) probe(off uint64, h *section.TapeHeader) error {
	n := 0
	for f, err := range r.store.Frames(off) {
		if err != nil {
			return fmt.Errorf("offset %d: %w: %w", off, errs.ErrStaleOffset, err)
		}
		sec := int64(f.Header.Sec)
		if f.Header.DBIdx >= h.NumRec || sec < h.StartTime || sec > h.CurTime {
			return fmt.Errorf("offset %d: frame at %d fails sanity check: %w", off, f.Offset, errs.ErrStaleOffset)
		}
		if n++; n == probeFrames {
			break
		}
	}

	return nil
}
