package encoding

import (
	"math"
	"strconv"

	"github.com/arloliu/mdwire/format"
)

// Value is the payload of a Field. The concrete type selects the wire encoding,
// and the set of implementations is closed to this package.
type Value interface {
	// Type returns the wire type of the value.
	Type() format.FieldType
	sealed()
}

type (
	// Undef is the empty value of an undefined field.
	Undef struct{}
	// String is a length-prefixed string value.
	String string
	// Bytes is an opaque length-prefixed byte sequence.
	Bytes []byte
	// Int8 is carried as the unsigned byte on the wire.
	Int8 int8
	// Int16 is carried as the unsigned short on the wire.
	Int16 int16
	// Int32 is sign folded into the type byte.
	Int32 int32
	// Int64 is sign folded into the type byte.
	Int64 int64
	// UnixTime is a unix timestamp, sign folded like Int64.
	UnixTime int64
	// Float carries 4 implied decimal places.
	Float float32
	// Double carries 10 implied decimal places up to DoublePromoteThreshold.
	Double float64
	// Date is a YYYYMMDD date scaled by 10^6 (YYYYMMDDhhmmss).
	Date float64
	// Time is an hhmmss.mmm time of day.
	Time float64
	// TimeSec is an hhmmss.mmm time of day rendered with seconds.
	TimeSec float64
)

// Real is a fixed-point value: Value scaled by 10^-Hint.
type Real struct {
	Value   uint64
	Hint    uint8
	IsBlank bool
}

// Vector is an array of doubles with a display precision.
type Vector struct {
	// Precision is the number of decimal places to render, VectorDefaultPrecision when unset.
	Precision uint8
	Values    []float64
}

// MaxRealHint is the largest decimal hint Real.Float64 honors.
const MaxRealHint = 14

// VectorDefaultPrecision is used for vectors whose precision marker is unset (0xff).
const VectorDefaultPrecision = 10

// MaxVectorPrecision is the largest precision a vector may carry.
const MaxVectorPrecision = 20

func (Undef) Type() format.FieldType    { return format.FieldUndef }
func (String) Type() format.FieldType   { return format.FieldString }
func (Bytes) Type() format.FieldType    { return format.FieldBytestream }
func (Int8) Type() format.FieldType     { return format.FieldInt8 }
func (Int16) Type() format.FieldType    { return format.FieldInt16 }
func (Int32) Type() format.FieldType    { return format.FieldInt32 }
func (Int64) Type() format.FieldType    { return format.FieldInt64 }
func (UnixTime) Type() format.FieldType { return format.FieldUnixTime }
func (Float) Type() format.FieldType    { return format.FieldFloat }
func (Double) Type() format.FieldType   { return format.FieldDouble }
func (Date) Type() format.FieldType     { return format.FieldDate }
func (Time) Type() format.FieldType     { return format.FieldTime }
func (TimeSec) Type() format.FieldType  { return format.FieldTimeSec }
func (Real) Type() format.FieldType     { return format.FieldReal }
func (Vector) Type() format.FieldType   { return format.FieldVector }

func (Undef) sealed()    {}
func (String) sealed()   {}
func (Bytes) sealed()    {}
func (Int8) sealed()     {}
func (Int16) sealed()    {}
func (Int32) sealed()    {}
func (Int64) sealed()    {}
func (UnixTime) sealed() {}
func (Float) sealed()    {}
func (Double) sealed()   {}
func (Date) sealed()     {}
func (Time) sealed()     {}
func (TimeSec) sealed()  {}
func (Real) sealed()     {}
func (Vector) sealed()   {}

// Float64 converts the real to a double. Blank reals are zero and hints
// above MaxRealHint are clamped.
func (r Real) Float64() float64 {
	if r.IsBlank {
		return 0
	}
	hint := min(int(r.Hint), MaxRealHint)

	return float64(int64(r.Value)) / math.Pow10(hint) //nolint:gosec
}

// RealFromFloat64 builds a Real holding v with hint decimal places.
func RealFromFloat64(v float64, hint uint8) Real {
	hint = min(hint, MaxRealHint)
	mantissa := int64(math.Round(v * math.Pow10(int(hint))))

	return Real{Value: uint64(mantissa), Hint: hint} //nolint:gosec
}

// EffectivePrecision returns the precision used when rendering the vector.
func (v Vector) EffectivePrecision() int {
	if v.Precision == 0xff {
		return VectorDefaultPrecision
	}

	return min(int(v.Precision), MaxVectorPrecision)
}

// FormatTime renders an hhmmss.mmm value as "hh:mm:ss", appending ".mmm"
// when withMillis is set and the milliseconds are non-zero.
func FormatTime(v float64, withMillis bool) string {
	whole := int64(v)
	ms := int64(math.Round((v - float64(whole)) * 1000))
	if ms >= 1000 {
		whole++
		ms -= 1000
	}
	h, m, s := whole/10000, (whole/100)%100, whole%100

	b := make([]byte, 0, 12)
	b = appendPad2(b, h)
	b = append(b, ':')
	b = appendPad2(b, m)
	b = append(b, ':')
	b = appendPad2(b, s)
	if withMillis && ms != 0 {
		b = append(b, '.')
		if ms < 100 {
			b = append(b, '0')
		}
		if ms < 10 {
			b = append(b, '0')
		}
		b = strconv.AppendInt(b, ms, 10)
	}

	return string(b)
}

func appendPad2(b []byte, v int64) []byte {
	if v < 10 {
		b = append(b, '0')
	}

	return strconv.AppendInt(b, v, 10)
}
