// Package mmap maps files read-only into memory.
package mmap

import (
	"fmt"
	"os"
	"sync"
)

// Mapping is a read-only view of a file.
//
// Readers that keep using Bytes across calls they do not control pin the
// mapping with Acquire. Close then defers the unmap to the last Release.
type Mapping struct {
	mu     sync.Mutex
	data   []byte
	mapped bool
	refs   int
	closed bool
}

// Open maps the whole file at path. Empty files yield an empty mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := st.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if size != int64(int(size)) {
		return nil, fmt.Errorf("mmap %s: file too large", path)
	}

	data, mapped, err := mapFile(f, int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &Mapping{data: data, mapped: mapped}, nil
}

// Bytes returns the mapped bytes. The slice is invalid once the mapping is
// closed and no pin remains.
func (m *Mapping) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data
}

// Len returns the mapped size.
func (m *Mapping) Len() int {
	return len(m.Bytes())
}

// Acquire pins the mapping. It reports false once Close has been called.
func (m *Mapping) Acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.refs++

	return true
}

// Release drops a pin taken by Acquire. The last release after Close
// unmaps the file.
func (m *Mapping) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refs == 0 {
		return nil
	}
	m.refs--
	if m.closed && m.refs == 0 {
		return m.unmapLocked()
	}

	return nil
}

// Refs returns the number of outstanding pins.
func (m *Mapping) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refs
}

// Close unmaps the file, or marks it for unmapping by the last Release.
func (m *Mapping) Close() error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if m.refs > 0 {
		return nil
	}

	return m.unmapLocked()
}

func (m *Mapping) unmapLocked() error {
	data := m.data
	m.data = nil
	if data == nil || !m.mapped {
		return nil
	}

	return unmap(data)
}
