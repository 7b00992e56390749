package pool

import "sync"

var offsetSlicePool = sync.Pool{
	New: func() any { return &[]uint64{} },
}

// GetOffsetSlice retrieves an empty uint64 slice with at least sizeHint capacity.
//
// Chronological tape replay buffers a whole backward chain of frame offsets
// before replaying it, so the slice is pooled across pumps.
// The caller must call the returned cleanup function to return the slice to the pool.
//
// Parameters:
//   - sizeHint: Expected number of offsets
//
// Returns:
//   - *[]uint64: Pointer to an empty slice; append through the pointer so growth is retained
//   - func(): Cleanup function that must be called (typically with defer)
//
// Example:
//
//	offsets, cleanup := pool.GetOffsetSlice(int(rec.NumMsg))
//	defer cleanup()
//	*offsets = append(*offsets, off)
func GetOffsetSlice(sizeHint int) (*[]uint64, func()) {
	ptr, _ := offsetSlicePool.Get().(*[]uint64)
	if cap(*ptr) < sizeHint {
		*ptr = make([]uint64, 0, sizeHint)
	} else {
		*ptr = (*ptr)[:0]
	}

	return ptr, func() { offsetSlicePool.Put(ptr) }
}
