package pool

import (
	"io"
	"sync"
)

// Default sizes of the pooled buffers.
const (
	MessageBufferDefaultSize  = 1024 * 4        // 4KiB, enough for a typical field list
	MessageBufferMaxThreshold = 1024 * 64       // 64KiB
	StreamBufferDefaultSize   = 1024 * 64       // 64KiB
	StreamBufferMaxThreshold  = 1024 * 1024 * 4 // 4MiB
)

// ByteBuffer is an append-only byte slice with in-place patching, used to
// build wire messages whose header is finalized after the payload.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified default size.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{
		B: make([]byte, 0, defaultSize),
	}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Reset resets the buffer to be empty, but retains the allocated memory for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// MustWrite writes data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Write appends the contents of data to the buffer, growing it as needed.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// WriteTo writes the contents of the buffer to w.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// Discard drops the first n bytes, moving the remainder to the front.
func (bb *ByteBuffer) Discard(n int) {
	if n >= len(bb.B) {
		bb.B = bb.B[:0]
		return
	}
	rest := copy(bb.B, bb.B[n:])
	bb.B = bb.B[:rest]
}

// Grow grows the buffer to ensure it can hold requiredBytes more bytes without reallocating.
//
// The growth strategy is as follows:
//   - For small buffers, grow by MessageBufferDefaultSize to minimize reallocations.
//   - For larger buffers, grow by 25% of current capacity to balance memory usage and reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := MessageBufferDefaultSize
	if cap(bb.B) > 4*MessageBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// ByteBufferPool is a pool of ByteBuffers to minimize allocations.
//
// Buffers whose capacity grew beyond maxThreshold are dropped on Put instead
// of being retained.
type ByteBufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewByteBufferPool creates a new ByteBufferPool with buffers of the specified default size.
func NewByteBufferPool(defaultSize int, maxThreshold int) *ByteBufferPool {
	return &ByteBufferPool{
		pool: sync.Pool{
			New: func() any {
				return NewByteBuffer(defaultSize)
			},
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool.
func (bbp *ByteBufferPool) Get() *ByteBuffer {
	bb, _ := bbp.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns a ByteBuffer to the pool for reuse.
func (bbp *ByteBufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if bbp.maxThreshold > 0 && cap(bb.B) > bbp.maxThreshold {
		return
	}

	bb.Reset()
	bbp.pool.Put(bb)
}

var (
	messagePool = NewByteBufferPool(MessageBufferDefaultSize, MessageBufferMaxThreshold)
	streamPool  = NewByteBufferPool(StreamBufferDefaultSize, StreamBufferMaxThreshold)
)

// GetMessageBuffer retrieves a ByteBuffer sized for building one message.
func GetMessageBuffer() *ByteBuffer {
	return messagePool.Get()
}

// PutMessageBuffer returns a message buffer to its pool.
func PutMessageBuffer(bb *ByteBuffer) {
	messagePool.Put(bb)
}

// GetStreamBuffer retrieves a ByteBuffer sized for accumulating a byte stream.
func GetStreamBuffer() *ByteBuffer {
	return streamPool.Get()
}

// PutStreamBuffer returns a stream buffer to its pool.
func PutStreamBuffer(bb *ByteBuffer) {
	streamPool.Put(bb)
}
