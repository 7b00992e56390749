package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireEngine(t *testing.T) {
	engine := WireEngine()
	require.Equal(t, binary.BigEndian, engine)

	buf := engine.AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf)
	require.Equal(t, uint32(0x01020304), engine.Uint32(buf))
}

func TestTapeEngine(t *testing.T) {
	engine := TapeEngine()
	require.Equal(t, binary.LittleEndian, engine)

	buf := engine.AppendUint64(nil, 0x0102030405060708)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, buf)
	require.Equal(t, uint64(0x0102030405060708), engine.Uint64(buf))
}
