// Package encoding implements the binary field codec of the mdwire protocol.
//
// # VarInt tiers
//
// Unsigned magnitudes are packed into 1, 2, 4 or 6 bytes selected by range,
// with the tier tagged in the top bits of the leading byte:
//
//	0 .. 127              0xxxxxxx
//	128 .. 16383          10xxxxxx xxxxxxxx
//	16384 .. 2^29-1       110xxxxx + 3 bytes
//	2^29 .. 2^44-1        1110xxxx + 5 bytes
//	2^44 ..               8-byte big-endian fallback, no tag bits
//
// The fallback cannot be recognized from its bytes, so AppendVarUint reports
// it and field encoders record it with UnpackedFlag.
//
// # Fields
//
// Each field is a type byte, a VarInt field id and a value. The type byte
// carries the FieldType in its low bits, SignFlag for numeric values whose
// magnitude had its sign stripped, and UnpackedFlag when the value is
// fixed-width. Field values are the closed set of Value implementations
// (String, Int32, Double, Real, Vector, ...), decoded back into the same
// concrete types:
//
//	buf, err := encoding.AppendField(nil, encoding.NewField(22, encoding.Double(101.25)), true)
//	f, n, err := encoding.DecodeField(buf)
//
// Doubles carry 10 implied decimals; above DoublePromoteThreshold they are
// re-typed to Int64 on the wire and decode as Int64.
//
// # Field lists
//
// A field list is the concatenation of encoded fields. FieldListEncoder
// builds one in a pooled buffer and FieldListDecoder iterates one lazily.
package encoding
