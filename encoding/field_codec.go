package encoding

import (
	"fmt"
	"math"

	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
)

// AppendField appends the wire encoding of f to dst.
//
// Encoding format:
//   - 1 byte: type byte (FieldType | SignFlag | UnpackedFlag)
//   - varint: field id
//   - value: per-type encoding, VarInt tiered when packed, fixed-width otherwise
//
// Doubles above DoublePromoteThreshold are re-typed to Int64. An Int64 or
// UnixTime whose magnitude exceeds the 6-byte tier is written unpacked even
// in packed mode, so decoders must honor UnpackedFlag per field.
//
// Parameters:
//   - dst: Destination buffer
//   - f: Field to encode
//   - packed: Whether VarInt tiering is requested
//
// Returns:
//   - []byte: Extended buffer
//   - error: ErrValueOverflow for values the wire type cannot carry, ErrVectorHint for a bad precision
func AppendField(dst []byte, f Field, packed bool) ([]byte, error) {
	v := f.Value
	if v == nil {
		v = Undef{}
	}

	if d, ok := v.(Double); ok {
		promoted, err := promoteDouble(float64(d))
		if err != nil {
			return dst, fmt.Errorf("field %d: %w", f.ID, err)
		}
		if promoted != nil {
			v = promoted
		}
	}

	var err error
	if packed {
		dst, err = appendPacked(dst, f.ID, v)
	} else {
		dst, err = appendUnpacked(dst, f.ID, v)
	}
	if err != nil {
		return dst, fmt.Errorf("field %d: %w", f.ID, err)
	}

	return dst, nil
}

// FieldSize returns the number of bytes AppendField writes for f.
func FieldSize(f Field, packed bool) (int, error) {
	var scratch [64]byte
	out, err := AppendField(scratch[:0], f, packed)
	if err != nil {
		return 0, err
	}

	return len(out), nil
}

// promoteDouble returns the Int64 replacement for an oversized double, or nil.
func promoteDouble(d float64) (Value, error) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return nil, errs.ErrValueOverflow
	}
	if math.Abs(d) <= DoublePromoteThreshold {
		return nil, nil
	}
	if math.Abs(d) >= math.MaxInt64 {
		return nil, errs.ErrValueOverflow
	}

	return Int64(int64(d)), nil
}

func appendHead(dst []byte, typeByte byte, fid uint32) []byte {
	dst = append(dst, typeByte)
	dst, _ = AppendVarUint(dst, uint64(fid))

	return dst
}

func appendPacked(dst []byte, fid uint32, v Value) ([]byte, error) {
	ty := byte(v.Type())

	switch v := v.(type) {
	case Undef:
		return appendHead(dst, ty, fid), nil
	case String:
		return appendLengthPrefixed(appendHead(dst, ty, fid), []byte(v)), nil
	case Bytes:
		return appendLengthPrefixed(appendHead(dst, ty, fid), v), nil
	case Int8:
		dst, _ = AppendVarUint(appendHead(dst, ty, fid), uint64(uint8(v)))
		return dst, nil
	case Int16:
		dst, _ = AppendVarUint(appendHead(dst, ty, fid), uint64(uint16(v)))
		return dst, nil
	case Int32:
		u := uint32(v)
		if u&sign32 != 0 {
			ty |= SignFlag
		}
		dst, _ = AppendVarUint(appendHead(dst, ty, fid), uint64(u&mask32))

		return dst, nil
	case Int64:
		return appendPacked64(dst, ty, fid, uint64(v)), nil
	case UnixTime:
		return appendPacked64(dst, ty, fid, uint64(v)), nil
	case Double:
		mag, neg := splitSign(float64(v))
		if neg {
			ty |= SignFlag
		}
		dst, _ = AppendVarUint(appendHead(dst, ty, fid), uint64(math.Round(mag*DoubleScale)))

		return dst, nil
	case Float:
		mag, neg := splitSign(float64(v))
		scaled := math.Round(mag * FloatScale)
		if math.IsNaN(scaled) || scaled > math.MaxUint32 {
			return dst, errs.ErrValueOverflow
		}
		if neg {
			ty |= SignFlag
		}
		dst, _ = AppendVarUint(appendHead(dst, ty, fid), uint64(scaled))

		return dst, nil
	case Date:
		mag, neg := splitSign(float64(v))
		days := math.Trunc(mag / DateScale)
		if math.IsNaN(days) || days > MaxVarUint6 {
			return dst, errs.ErrValueOverflow
		}
		if neg {
			ty |= SignFlag
		}
		dst, _ = AppendVarUint(appendHead(dst, ty, fid), uint64(days))

		return dst, nil
	case Time:
		return appendTimeOfDay(appendHead(dst, ty, fid), float64(v)), nil
	case TimeSec:
		return appendTimeOfDay(appendHead(dst, ty, fid), float64(v)), nil
	case Real:
		return appendReal(appendHead(dst, ty, fid), v), nil
	case Vector:
		return appendVector(appendHead(dst, ty, fid), v)
	default:
		return dst, errs.ErrUnknownFieldType
	}
}

// appendPacked64 folds the sign of a 64-bit value into the type byte, falling
// back to the unpacked two's complement form when the magnitude needs 8 bytes.
func appendPacked64(dst []byte, ty byte, fid uint32, u uint64) []byte {
	mag := u & mask64
	if mag > MaxVarUint6 {
		dst = appendHead(dst, ty|UnpackedFlag, fid)
		return AppendFixedUint64(dst, u)
	}
	if u&sign64 != 0 {
		ty |= SignFlag
	}
	dst, _ = AppendVarUint(appendHead(dst, ty, fid), mag)

	return dst
}

func appendUnpacked(dst []byte, fid uint32, v Value) ([]byte, error) {
	ty := byte(v.Type()) | UnpackedFlag

	switch v := v.(type) {
	case Undef:
		return appendHead(dst, ty, fid), nil
	case String:
		return appendLengthPrefixed(appendHead(dst, ty, fid), []byte(v)), nil
	case Bytes:
		return appendLengthPrefixed(appendHead(dst, ty, fid), v), nil
	case Int8:
		return append(appendHead(dst, ty, fid), byte(v)), nil
	case Int16:
		return wire.AppendUint16(appendHead(dst, ty, fid), uint16(v)), nil
	case Int32:
		return wire.AppendUint32(appendHead(dst, ty, fid), uint32(v)), nil
	case Int64:
		return AppendFixedUint64(appendHead(dst, ty, fid), uint64(v)), nil
	case UnixTime:
		return AppendFixedUint64(appendHead(dst, ty, fid), uint64(v)), nil
	case Double:
		scaled := int64(math.Round(float64(v) * DoubleScale))
		return wire.AppendUint64(appendHead(dst, ty, fid), uint64(scaled)), nil
	case Float:
		scaled := math.Round(float64(v) * FloatScale)
		if math.IsNaN(scaled) || math.Abs(scaled) > math.MaxInt32 {
			return dst, errs.ErrValueOverflow
		}

		return wire.AppendUint32(appendHead(dst, ty, fid), uint32(int32(scaled))), nil
	case Date:
		days := math.Trunc(float64(v) / DateScale)
		if math.IsNaN(days) || math.Abs(days) > math.MaxInt64/2 {
			return dst, errs.ErrValueOverflow
		}

		return wire.AppendUint64(appendHead(dst, ty, fid), uint64(int64(days))), nil
	case Time:
		return appendTimeOfDay(appendHead(dst, ty, fid), float64(v)), nil
	case TimeSec:
		return appendTimeOfDay(appendHead(dst, ty, fid), float64(v)), nil
	case Real:
		return appendReal(appendHead(dst, ty, fid), v), nil
	case Vector:
		return appendVector(appendHead(dst, ty, fid), v)
	default:
		return dst, errs.ErrUnknownFieldType
	}
}

func splitSign(d float64) (float64, bool) {
	if d < 0 {
		return -d, true
	}

	return d, false
}

func appendLengthPrefixed(dst []byte, b []byte) []byte {
	dst, _ = AppendVarUint(dst, uint64(len(b)))
	return append(dst, b...)
}

// appendTimeOfDay keeps the hhmmss.mmm part of the value as a 4-byte float.
func appendTimeOfDay(dst []byte, d float64) []byte {
	tod := float32(math.Mod(d, TimeModulo))
	return wire.AppendUint32(dst, math.Float32bits(tod))
}

func appendReal(dst []byte, r Real) []byte {
	dst = wire.AppendUint64(dst, r.Value)
	blank := byte(0)
	if r.IsBlank {
		blank = 1
	}

	return append(dst, r.Hint, blank)
}

func appendVector(dst []byte, v Vector) ([]byte, error) {
	if v.Precision != 0xff && v.Precision > MaxVectorPrecision {
		return dst, errs.ErrVectorHint
	}

	dst, _ = AppendVarUint(dst, uint64(1+8*len(v.Values)))
	dst = append(dst, v.Precision)
	for _, d := range v.Values {
		dst = wire.AppendUint64(dst, math.Float64bits(d))
	}

	return dst, nil
}

// DecodeField decodes one field from the start of src.
//
// Parameters:
//   - src: Buffer positioned at a field type byte
//
// Returns:
//   - Field: Decoded field, Double promoted on encode decodes as Int64
//   - int: Number of bytes consumed
//   - error: ErrUnknownFieldType, ErrTruncatedField or ErrTruncatedVarInt
func DecodeField(src []byte) (Field, int, error) {
	if len(src) == 0 {
		return Field{}, 0, errs.ErrTruncatedField
	}

	tb := src[0]
	ft := format.FieldType(tb & TypeMask)
	if !ft.IsValid() {
		return Field{}, 0, fmt.Errorf("type byte 0x%02x: %w", tb, errs.ErrUnknownFieldType)
	}

	fid, n, err := DecodeVarUint32(src[1:])
	if err != nil {
		return Field{}, 0, err
	}
	pos := 1 + n

	var (
		v Value
		m int
	)
	if tb&UnpackedFlag != 0 {
		v, m, err = decodeUnpacked(ft, src[pos:])
	} else {
		v, m, err = decodePacked(ft, tb&SignFlag != 0, src[pos:])
	}
	if err != nil {
		return Field{}, 0, fmt.Errorf("field %d (%s): %w", fid, ft, err)
	}

	return Field{ID: fid, Value: v}, pos + m, nil
}

func decodePacked(ft format.FieldType, neg bool, src []byte) (Value, int, error) {
	switch ft {
	case format.FieldUndef:
		return Undef{}, 0, nil
	case format.FieldString:
		b, n, err := decodeLengthPrefixed(src)
		return String(b), n, err
	case format.FieldBytestream:
		b, n, err := decodeLengthPrefixed(src)
		if err != nil {
			return nil, 0, err
		}

		return Bytes(append([]byte(nil), b...)), n, nil
	case format.FieldTime, format.FieldTimeSec:
		return decodeTimeOfDay(ft, src)
	case format.FieldReal:
		return decodeReal(src)
	case format.FieldVector:
		return decodeVector(src)
	}

	u, n, err := DecodeVarUint(src)
	if err != nil {
		return nil, 0, err
	}

	switch ft {
	case format.FieldInt8:
		if u > math.MaxUint8 {
			return nil, 0, errs.ErrValueOverflow
		}

		return Int8(int8(uint8(u))), n, nil
	case format.FieldInt16:
		if u > math.MaxUint16 {
			return nil, 0, errs.ErrValueOverflow
		}

		return Int16(int16(uint16(u))), n, nil
	case format.FieldInt32:
		if u > uint64(mask32) {
			return nil, 0, errs.ErrValueOverflow
		}
		v := uint32(u)
		if neg {
			v |= sign32
		}

		return Int32(int32(v)), n, nil
	case format.FieldInt64, format.FieldUnixTime:
		if neg {
			u |= sign64
		}
		if ft == format.FieldUnixTime {
			return UnixTime(int64(u)), n, nil
		}

		return Int64(int64(u)), n, nil
	case format.FieldDouble:
		d := float64(u) / DoubleScale
		if neg {
			d = -d
		}

		return Double(d), n, nil
	case format.FieldFloat:
		d := float64(u) / FloatScale
		if neg {
			d = -d
		}

		return Float(float32(d)), n, nil
	case format.FieldDate:
		d := float64(u) * DateScale
		if neg {
			d = -d
		}

		return Date(d), n, nil
	default:
		return nil, 0, errs.ErrUnknownFieldType
	}
}

func decodeUnpacked(ft format.FieldType, src []byte) (Value, int, error) {
	need := fixedWidth(ft)
	if len(src) < need {
		return nil, 0, errs.ErrTruncatedField
	}

	switch ft {
	case format.FieldUndef:
		return Undef{}, 0, nil
	case format.FieldString, format.FieldBytestream, format.FieldTime, format.FieldTimeSec,
		format.FieldReal, format.FieldVector:
		return decodePacked(ft, false, src)
	case format.FieldInt8:
		return Int8(int8(src[0])), 1, nil
	case format.FieldInt16:
		return Int16(int16(wire.Uint16(src))), 2, nil
	case format.FieldInt32:
		return Int32(int32(wire.Uint32(src))), 4, nil
	case format.FieldInt64:
		return Int64(int64(wire.Uint64(src))), 8, nil
	case format.FieldUnixTime:
		return UnixTime(int64(wire.Uint64(src))), 8, nil
	case format.FieldDouble:
		return Double(float64(int64(wire.Uint64(src))) / DoubleScale), 8, nil
	case format.FieldFloat:
		return Float(float32(float64(int32(wire.Uint32(src))) / FloatScale)), 4, nil
	case format.FieldDate:
		return Date(float64(int64(wire.Uint64(src))) * DateScale), 8, nil
	default:
		return nil, 0, errs.ErrUnknownFieldType
	}
}

// fixedWidth returns the unpacked value width of the fixed-size numeric types.
func fixedWidth(ft format.FieldType) int {
	switch ft {
	case format.FieldInt8:
		return 1
	case format.FieldInt16:
		return 2
	case format.FieldInt32, format.FieldFloat:
		return 4
	case format.FieldInt64, format.FieldUnixTime, format.FieldDouble, format.FieldDate:
		return 8
	default:
		return 0
	}
}

func decodeLengthPrefixed(src []byte) ([]byte, int, error) {
	l, n, err := DecodeVarUint(src)
	if err != nil {
		return nil, 0, err
	}
	if l > uint64(len(src)-n) {
		return nil, 0, errs.ErrTruncatedField
	}
	end := n + int(l)

	return src[n:end], end, nil
}

func decodeTimeOfDay(ft format.FieldType, src []byte) (Value, int, error) {
	if len(src) < 4 {
		return nil, 0, errs.ErrTruncatedField
	}
	d := float64(math.Float32frombits(wire.Uint32(src)))
	if ft == format.FieldTimeSec {
		return TimeSec(d), 4, nil
	}

	return Time(d), 4, nil
}

func decodeReal(src []byte) (Value, int, error) {
	if len(src) < 10 {
		return nil, 0, errs.ErrTruncatedField
	}

	return Real{Value: wire.Uint64(src), Hint: src[8], IsBlank: src[9] != 0}, 10, nil
}

func decodeVector(src []byte) (Value, int, error) {
	b, n, err := decodeLengthPrefixed(src)
	if err != nil {
		return nil, 0, err
	}
	if len(b) == 0 {
		return nil, 0, errs.ErrTruncatedField
	}

	count := (len(b) - 1) / 8
	vec := Vector{Precision: b[0], Values: make([]float64, count)}
	for i := range count {
		vec.Values[i] = math.Float64frombits(wire.Uint64(b[1+8*i:]))
	}

	return vec, n, nil
}
