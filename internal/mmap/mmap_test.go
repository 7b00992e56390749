package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello tape"), 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 10, m.Len())
	require.Equal(t, []byte("hello tape"), m.Bytes())

	require.NoError(t, m.Close())
	require.Nil(t, m.Bytes())
	require.NoError(t, m.Close())
}

func TestOpen_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	m, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 0, m.Len())
	require.NoError(t, m.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMapping_PinnedClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("pinned"), 0o600))

	m, err := Open(path)
	require.NoError(t, err)

	require.True(t, m.Acquire())
	require.True(t, m.Acquire())
	require.Equal(t, 2, m.Refs())

	require.NoError(t, m.Close())
	require.False(t, m.Acquire())
	require.Equal(t, []byte("pinned"), m.Bytes())

	require.NoError(t, m.Release())
	require.Equal(t, []byte("pinned"), m.Bytes())

	require.NoError(t, m.Release())
	require.Equal(t, 0, m.Refs())
	require.Nil(t, m.Bytes())

	require.NoError(t, m.Release())
	require.NoError(t, m.Close())
}
