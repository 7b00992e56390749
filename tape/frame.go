package tape

import (
	"fmt"
	"iter"
	"time"

	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/pool"
	"github.com/arloliu/mdwire/section"
)

// Frame is one stored message. Payload aliases the mapping. Inside an
// iteration it stays valid until the iteration ends; otherwise until the
// owning Store is reloaded or closed.
type Frame struct {
	Offset  uint64
	Header  section.FrameHeader
	Payload []byte
}

// Time returns the frame's recording timestamp.
func (f *Frame) Time() time.Time {
	return f.Header.Time()
}

// Next returns the offset just past this frame.
func (f *Frame) Next() uint64 {
	return f.Offset + uint64(f.Header.MsgLen)
}

// Prev returns the offset of the previous frame for the same ticker, or 0
// when this frame starts the chain.
func (f *Frame) Prev() uint64 {
	if f.Header.Last == 0 {
		return 0
	}

	return f.Offset - f.Header.Last
}

// span is a bounds-checked window over tape bytes. Frames live in [lo, hi).
type span struct {
	data []byte
	lo   uint64
	hi   uint64
}

func newSpan(data []byte, lo, hi uint64) span {
	if hi > uint64(len(data)) {
		hi = uint64(len(data))
	}

	return span{data: data, lo: lo, hi: hi}
}

func (s span) frameAt(off uint64) (Frame, error) {
	if off < s.lo || off >= s.hi {
		return Frame{}, fmt.Errorf("frame offset %d outside [%d, %d): %w", off, s.lo, s.hi, errs.ErrOffsetOutOfRange)
	}

	var h section.FrameHeader
	n, err := h.Parse(s.data[off:s.hi])
	if err != nil {
		return Frame{}, fmt.Errorf("frame at %d: %w", off, err)
	}

	end := off + uint64(h.MsgLen)
	if end > s.hi {
		return Frame{}, fmt.Errorf("frame at %d ends at %d past %d: %w", off, end, s.hi, errs.ErrOffsetOutOfRange)
	}

	return Frame{Offset: off, Header: h, Payload: s.data[off+uint64(n) : end]}, nil
}

// chain walks one ticker's frames newest first, starting at head. A zero head
// is an empty chain. On a broken link it yields the error and stops.
func (s span) chain(head uint64, dbIdx uint32) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		off := head
		for off != 0 {
			f, err := s.frameAt(off)
			if err != nil {
				yield(Frame{Offset: off}, err)
				return
			}
			if f.Header.DBIdx != dbIdx {
				yield(f, fmt.Errorf("frame at %d belongs to dbIdx %d, chain is %d: %w",
					off, f.Header.DBIdx, dbIdx, errs.ErrInvalidFrame))

				return
			}
			if !yield(f, nil) {
				return
			}

			last := f.Header.Last
			if last == 0 {
				return
			}
			if last > off-s.lo {
				yield(f, fmt.Errorf("frame at %d links %d bytes back past %d: %w",
					off, last, s.lo, errs.ErrOffsetOutOfRange))

				return
			}
			off -= last
		}
	}
}

// chronological buffers the chain's offsets and replays them oldest first.
// The walk stops early once older returns true, since everything further
// back is older still. buffered, if set, sees the running count. Frames
// collected before a broken link are delivered before the error.
func (s span) chronological(head uint64, dbIdx uint32, sizeHint int, older func(*section.FrameHeader) bool, buffered func(int)) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		offsets, release := pool.GetOffsetSlice(sizeHint)
		defer release()

		var chainErr error
		for f, err := range s.chain(head, dbIdx) {
			if err != nil {
				chainErr = err
				break
			}
			if older != nil && older(&f.Header) {
				break
			}
			*offsets = append(*offsets, f.Offset)
			if buffered != nil {
				buffered(len(*offsets))
			}
		}

		buf := *offsets
		for i := len(buf) - 1; i >= 0; i-- {
			f, err := s.frameAt(buf[i])
			if !yield(f, err) || err != nil {
				return
			}
		}

		if chainErr != nil {
			yield(Frame{}, chainErr)
		}
	}
}

// forward scans frames in file order from off.
func (s span) forward(off uint64) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for off < s.hi {
			f, err := s.frameAt(off)
			if err != nil {
				yield(Frame{Offset: off}, err)
				return
			}
			if !yield(f, nil) {
				return
			}
			off = f.Next()
		}
	}
}
