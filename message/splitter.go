package message

import (
	"fmt"

	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/pool"
	"github.com/arloliu/mdwire/section"
)

// Splitter cuts a byte stream into complete message frames.
//
// Note: a Splitter is NOT safe for concurrent use.
type Splitter struct {
	buf *pool.ByteBuffer
}

// NewSplitter creates a Splitter with a pooled stream buffer.
func NewSplitter() *Splitter {
	return &Splitter{buf: pool.GetStreamBuffer()}
}

// Buffered returns the number of bytes held for an incomplete frame.
func (s *Splitter) Buffered() int {
	return s.buf.Len()
}

// Feed appends p and calls fn for each complete frame, in stream order.
//
// Frame slices are only valid during fn. An incomplete tail is kept for the
// next call. A frame length shorter than a header cannot be resynchronized,
// so the buffer is dropped and ErrInvalidFrameLen returned. An error from fn
// stops the scan and leaves the failing frame buffered.
//
// Returns:
//   - int: Number of frames delivered
//   - error: ErrInvalidFrameLen or the error returned by fn
func (s *Splitter) Feed(p []byte, fn func(frame []byte) error) (int, error) {
	s.buf.MustWrite(p)

	data := s.buf.Bytes()
	off, count := 0, 0
	for {
		n, ok := section.PeekLen(data[off:])
		if !ok {
			break
		}
		if n < section.MsgHeaderMinSize {
			s.buf.Reset()
			return count, fmt.Errorf("frame len %d at stream offset %d: %w", n, off, errs.ErrInvalidFrameLen)
		}
		if uint64(len(data)-off) < uint64(n) {
			break
		}

		end := off + int(n)
		if err := fn(data[off:end]); err != nil {
			s.buf.Discard(off)
			return count, err
		}
		off = end
		count++
	}
	s.buf.Discard(off)

	return count, nil
}

// Reset drops any buffered bytes.
func (s *Splitter) Reset() {
	s.buf.Reset()
}

// Close releases the stream buffer. The splitter must not be used afterwards.
func (s *Splitter) Close() {
	pool.PutStreamBuffer(s.buf)
	s.buf = nil
}
