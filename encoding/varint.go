package encoding

import (
	"github.com/arloliu/mdwire/endian"
	"github.com/arloliu/mdwire/errs"
)

// VarInt tier bounds. Each bound is the largest magnitude its tier can carry.
const (
	MaxVarUint1 = 1<<7 - 1  // 127
	MaxVarUint2 = 1<<14 - 1 // 16383
	MaxVarUint4 = 1<<29 - 1 // 536870911
	MaxVarUint6 = 1<<44 - 1 // 17592186044415
)

// Leading byte tags of the packed tiers.
const (
	tag2 = 0x80
	tag4 = 0xc0
	tag6 = 0xe0
)

var wire = endian.WireEngine()

// VarUintSize returns the number of bytes AppendVarUint writes for v.
func VarUintSize(v uint64) int {
	switch {
	case v <= MaxVarUint1:
		return 1
	case v <= MaxVarUint2:
		return 2
	case v <= MaxVarUint4:
		return 4
	case v <= MaxVarUint6:
		return 6
	default:
		return 8
	}
}

// AppendVarUint appends the tiered encoding of v to dst.
//
// Values up to MaxVarUint6 take 1, 2, 4 or 6 bytes with the tier tagged in
// the top bits of the leading byte. Larger values fall back to an 8-byte
// big-endian integer with no tag bits, reported by packed=false; the caller
// must record the fallback out of band since the decoder cannot detect it.
//
// Parameters:
//   - dst: Destination buffer
//   - v: Unsigned magnitude to encode
//
// Returns:
//   - []byte: Extended buffer
//   - bool: false when the 8-byte unpacked fallback was used
func AppendVarUint(dst []byte, v uint64) ([]byte, bool) {
	switch {
	case v <= MaxVarUint1:
		return append(dst, byte(v)), true
	case v <= MaxVarUint2:
		return append(dst, tag2|byte(v>>8), byte(v)), true
	case v <= MaxVarUint4:
		return append(dst, tag4|byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), true
	case v <= MaxVarUint6:
		return append(dst,
			tag6|byte(v>>40), byte(v>>32),
			byte(v>>24), byte(v>>16), byte(v>>8), byte(v),
		), true
	default:
		return AppendFixedUint64(dst, v), false
	}
}

// DecodeVarUint decodes one packed tier from src.
//
// The 8-byte fallback is never produced here; use DecodeFixedUint64 when the
// field carries the unpacked flag.
//
// Returns:
//   - uint64: Decoded magnitude
//   - int: Number of bytes consumed
//   - error: ErrTruncatedVarInt if src is shorter than the tier
func DecodeVarUint(src []byte) (uint64, int, error) {
	if len(src) == 0 {
		return 0, 0, errs.ErrTruncatedVarInt
	}

	b0 := src[0]
	switch {
	case b0&tag6 == tag6:
		if len(src) < 6 {
			return 0, 0, errs.ErrTruncatedVarInt
		}
		v := uint64(b0&0x1f)<<40 | uint64(src[1])<<32 |
			uint64(src[2])<<24 | uint64(src[3])<<16 | uint64(src[4])<<8 | uint64(src[5])

		return v, 6, nil
	case b0&tag4 == tag4:
		if len(src) < 4 {
			return 0, 0, errs.ErrTruncatedVarInt
		}
		v := uint64(b0&0x3f)<<24 | uint64(src[1])<<16 | uint64(src[2])<<8 | uint64(src[3])

		return v, 4, nil
	case b0&tag2 == tag2:
		if len(src) < 2 {
			return 0, 0, errs.ErrTruncatedVarInt
		}
		v := uint64(b0&0x3f)<<8 | uint64(src[1])

		return v, 2, nil
	default:
		return uint64(b0), 1, nil
	}
}

// DecodeVarUint32 decodes a packed tier that must fit in 32 bits.
func DecodeVarUint32(src []byte) (uint32, int, error) {
	v, n, err := DecodeVarUint(src)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff {
		return 0, 0, errs.ErrValueOverflow
	}

	return uint32(v), n, nil
}

// AppendFixedUint64 appends the 8-byte big-endian unpacked form of v.
func AppendFixedUint64(dst []byte, v uint64) []byte {
	return wire.AppendUint64(dst, v)
}

// DecodeFixedUint64 reads the 8-byte big-endian unpacked form.
func DecodeFixedUint64(src []byte) (uint64, int, error) {
	if len(src) < 8 {
		return 0, 0, errs.ErrTruncatedVarInt
	}

	return wire.Uint64(src), 8, nil
}
