package section

import (
	"fmt"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/endian"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
)

var wire = endian.WireEngine()

// ProtocolFlags is the protocol byte of a message header.
type ProtocolFlags uint8

// ProtocolPacked marks a message whose fields are VarInt packed by default.
const ProtocolPacked ProtocolFlags = 0x01

// IsPacked reports whether the message was built with packed fields.
// Individual fields may still carry the unpacked flag.
func (p ProtocolFlags) IsPacked() bool {
	return p&ProtocolPacked != 0
}

// MsgHeader is the frame header preceding a message payload.
type MsgHeader struct {
	// Len is the total encoded length of header and payload.
	Len uint32
	// Tag is an opaque caller value echoed back by the peer.
	Tag      uint32
	DataType format.DataType
	MsgType  format.MsgType
	Protocol ProtocolFlags
	Reserved uint8
	// Time is 100-microsecond ticks since local midnight.
	Time uint32
	// RTL is the record transaction level.
	RTL uint32
}

// Size returns the encoded header size.
func (h *MsgHeader) Size() int {
	return MsgHeaderFixedSize + encoding.VarUintSize(uint64(h.Time)) + encoding.VarUintSize(uint64(h.RTL))
}

// AppendTo appends the encoded header to dst. Len is written as-is, so a
// builder writes 0 here and calls PatchLen after the payload.
func (h *MsgHeader) AppendTo(dst []byte) []byte {
	dst = wire.AppendUint32(dst, h.Len)
	dst = wire.AppendUint32(dst, h.Tag)
	dst = append(dst, byte(h.DataType), byte(h.MsgType), byte(h.Protocol), h.Reserved)
	dst, _ = encoding.AppendVarUint(dst, uint64(h.Time))
	dst, _ = encoding.AppendVarUint(dst, uint64(h.RTL))

	return dst
}

// Bytes serializes the header into a new byte slice.
func (h *MsgHeader) Bytes() []byte {
	return h.AppendTo(make([]byte, 0, h.Size()))
}

// Parse parses the header from the start of data.
//
// Parameters:
//   - data: Byte slice positioned at a message header
//
// Returns:
//   - int: Number of header bytes consumed
//   - error: ErrInvalidHeaderSize if data is too short, ErrInvalidFrameLen if Len cannot hold the header
func (h *MsgHeader) Parse(data []byte) (int, error) {
	if len(data) < MsgHeaderMinSize {
		return 0, errs.ErrInvalidHeaderSize
	}

	h.Len = wire.Uint32(data[msgLenOffset:])
	h.Tag = wire.Uint32(data[msgTagOffset:])
	h.DataType = format.DataType(data[8])
	h.MsgType = format.MsgType(data[9])
	h.Protocol = ProtocolFlags(data[10])
	h.Reserved = data[11]

	pos := MsgHeaderFixedSize
	t, n, err := encoding.DecodeVarUint32(data[pos:])
	if err != nil {
		return 0, fmt.Errorf("header time: %w", errs.ErrInvalidHeaderSize)
	}
	h.Time = t
	pos += n

	rtl, n, err := encoding.DecodeVarUint32(data[pos:])
	if err != nil {
		return 0, fmt.Errorf("header rtl: %w", errs.ErrInvalidHeaderSize)
	}
	h.RTL = rtl
	pos += n

	if h.Len < uint32(pos) { //nolint:gosec
		return 0, fmt.Errorf("len %d < header %d: %w", h.Len, pos, errs.ErrInvalidFrameLen)
	}

	return pos, nil
}

// ParseMsgHeader parses a MsgHeader from the start of data.
func ParseMsgHeader(data []byte) (MsgHeader, int, error) {
	var h MsgHeader
	n, err := h.Parse(data)

	return h, n, err
}

// PeekLen returns the Len field of the message at the start of data.
func PeekLen(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}

	return wire.Uint32(data[msgLenOffset:]), true
}

// PatchLen overwrites the Len field of the message at the start of buf.
func PatchLen(buf []byte, n uint32) {
	wire.PutUint32(buf[msgLenOffset:], n)
}

// PatchTag overwrites the Tag field of the message at the start of buf.
func PatchTag(buf []byte, tag uint32) {
	wire.PutUint32(buf[msgTagOffset:], tag)
}
