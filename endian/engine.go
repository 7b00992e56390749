// Package endian provides the byte orders used by mdwire encodings.
//
// Two orders are in play and they never mix inside one structure:
//
//   - Wire messages use network order (big-endian) for every fixed-width
//     integer: the frame length, the tag, unpacked field values and vector
//     elements. Use WireEngine().
//   - Tape files are host-agnostic little-endian for every header, record
//     and frame field. Use TapeEngine(). Message payloads stored inside a
//     tape keep their own wire order.
//
// The returned EndianEngine values are the stateless binary.BigEndian and
// binary.LittleEndian instances and are safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from encoding/binary
// into a single interface for convenient byte order operations.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// WireEngine returns the byte order of wire messages.
func WireEngine() EndianEngine {
	return binary.BigEndian
}

// TapeEngine returns the byte order of tape file structures.
func TapeEngine() EndianEngine {
	return binary.LittleEndian
}
