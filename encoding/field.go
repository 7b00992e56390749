package encoding

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/mdwire/format"
)

// Type byte layout of an encoded field.
const (
	// SignFlag marks a numeric field whose magnitude had its sign stripped.
	SignFlag = 0x80
	// UnpackedFlag marks a field whose value is fixed-width instead of VarInt tiered.
	UnpackedFlag = 0x40
	// TypeMask extracts the FieldType from the type byte.
	TypeMask = 0x3f
)

// Fixed-point scales.
const (
	DoubleScale = 1e10
	FloatScale  = 1e4
	DateScale   = 1e6
	TimeModulo  = 1e6

	// DoublePromoteThreshold is the largest magnitude encoded as a scaled double.
	// Larger doubles are re-typed to Int64 on the wire. 1750e10 stays inside the
	// 6-byte tier (MaxVarUint6 / 1e10 ~= 1759.2).
	DoublePromoteThreshold = 1750.0
)

const (
	sign32 = uint32(1) << 31
	mask32 = sign32 - 1
	sign64 = uint64(1) << 63
	mask64 = sign64 - 1
)

// Field is one (id, type, value) element of a field list.
type Field struct {
	ID    uint32
	Value Value
}

// NewField returns a field with the given id and value.
func NewField(id uint32, v Value) Field {
	return Field{ID: id, Value: v}
}

// Type returns the wire type of the field value.
func (f Field) Type() format.FieldType {
	if f.Value == nil {
		return format.FieldUndef
	}

	return f.Value.Type()
}

// Float64 converts numeric values to a double. Strings are parsed; other
// values yield 0.
func (f Field) Float64() float64 {
	switch v := f.Value.(type) {
	case Int8:
		return float64(v)
	case Int16:
		return float64(v)
	case Int32:
		return float64(v)
	case Int64:
		return float64(v)
	case UnixTime:
		return float64(v)
	case Float:
		return float64(v)
	case Double:
		return float64(v)
	case Date:
		return float64(v)
	case Time:
		return float64(v)
	case TimeSec:
		return float64(v)
	case Real:
		return v.Float64()
	case String:
		d, _ := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return d
	default:
		return 0
	}
}

// Int64 converts numeric values to an int64, truncating fractions.
func (f Field) Int64() int64 {
	switch v := f.Value.(type) {
	case Int8:
		return int64(v)
	case Int16:
		return int64(v)
	case Int32:
		return int64(v)
	case Int64:
		return int64(v)
	case UnixTime:
		return int64(v)
	case String:
		i, _ := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return i
	default:
		return int64(f.Float64())
	}
}

// String renders the value the way a field list dump shows it.
func (f Field) String() string {
	switch v := f.Value.(type) {
	case nil, Undef:
		return ""
	case String:
		return string(v)
	case Bytes:
		return hex.EncodeToString(v)
	case Int8, Int16, Int32, Int64, UnixTime:
		return strconv.FormatInt(f.Int64(), 10)
	case Float:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case Double:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case Date:
		return strconv.FormatInt(int64(float64(v)/DateScale), 10)
	case Time:
		return FormatTime(float64(v), false)
	case TimeSec:
		return FormatTime(float64(v), true)
	case Real:
		if v.IsBlank {
			return ""
		}

		return strconv.FormatFloat(v.Float64(), 'f', int(min(v.Hint, MaxRealHint)), 64)
	case Vector:
		parts := make([]string, len(v.Values))
		for i, d := range v.Values {
			parts[i] = strconv.FormatFloat(d, 'f', v.EffectivePrecision(), 64)
		}

		return strings.Join(parts, " ")
	default:
		return ""
	}
}

// Equal reports whether two fields carry the same id and value.
func (f Field) Equal(o Field) bool {
	if f.ID != o.ID || f.Type() != o.Type() {
		return false
	}
	if f.Type() == format.FieldUndef {
		return true
	}

	switch v := f.Value.(type) {
	case Bytes:
		return string(v) == string(o.Value.(Bytes))
	case Vector:
		w := o.Value.(Vector)
		if v.Precision != w.Precision || len(v.Values) != len(w.Values) {
			return false
		}
		for i := range v.Values {
			if math.Float64bits(v.Values[i]) != math.Float64bits(w.Values[i]) {
				return false
			}
		}

		return true
	default:
		return f.Value == o.Value
	}
}
