package pool

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewByteBuffer(t *testing.T) {
	bb := NewByteBuffer(128)

	require.NotNil(t, bb.B)
	require.Equal(t, 0, bb.Len())
	require.Equal(t, 128, cap(bb.B))
}

func TestByteBuffer_WriteAndReset(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("hello"))
	n, err := bb.Write([]byte(" world"))

	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, []byte("hello world"), bb.Bytes())

	capBefore := cap(bb.B)
	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.Equal(t, capBefore, cap(bb.B))
}

func TestByteBuffer_WriteTo(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("frame"))

	var out bytes.Buffer
	n, err := bb.WriteTo(&out)

	require.NoError(t, err)
	require.Equal(t, int64(5), n)
	require.Equal(t, "frame", out.String())
}

func TestByteBuffer_Discard(t *testing.T) {
	bb := NewByteBuffer(16)
	bb.MustWrite([]byte("abcdef"))

	bb.Discard(4)
	require.Equal(t, []byte("ef"), bb.Bytes())

	bb.Discard(10)
	require.Equal(t, 0, bb.Len())
}

func TestByteBuffer_Grow(t *testing.T) {
	t.Run("sufficient capacity", func(t *testing.T) {
		bb := NewByteBuffer(64)
		bb.Grow(32)
		require.Equal(t, 64, cap(bb.B))
	})

	t.Run("small buffer grows by default size", func(t *testing.T) {
		bb := NewByteBuffer(8)
		bb.MustWrite([]byte("12345678"))
		bb.Grow(1)
		require.Equal(t, 8+MessageBufferDefaultSize, cap(bb.B))
		require.Equal(t, []byte("12345678"), bb.Bytes())
	})

	t.Run("large request", func(t *testing.T) {
		bb := NewByteBuffer(0)
		bb.Grow(MessageBufferDefaultSize * 2)
		require.GreaterOrEqual(t, cap(bb.B), MessageBufferDefaultSize*2)
	})
}

func TestByteBufferPool_MaxThreshold(t *testing.T) {
	p := NewByteBufferPool(16, 32)

	bb := p.Get()
	bb.MustWrite(make([]byte, 64))
	p.Put(bb) // dropped, too large

	again := p.Get()
	require.Equal(t, 0, again.Len())
	require.LessOrEqual(t, cap(again.B), 32)

	p.Put(nil)
}

func TestDefaultPools(t *testing.T) {
	msg := GetMessageBuffer()
	require.Equal(t, 0, msg.Len())
	msg.MustWrite([]byte{1, 2, 3})
	PutMessageBuffer(msg)

	stream := GetStreamBuffer()
	require.Equal(t, 0, stream.Len())
	PutStreamBuffer(stream)
}

func TestPool_ConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range 100 {
				bb := GetMessageBuffer()
				bb.MustWrite([]byte{byte(id)})
				require.Equal(t, 1, bb.Len())
				PutMessageBuffer(bb)
			}
		}(i)
	}
	wg.Wait()
}
