package encoding

import (
	"fmt"
	"iter"

	"github.com/arloliu/mdwire/internal/pool"
)

// FieldList is an ordered sequence of fields. Wire order equals slice order
// and duplicate ids are allowed.
type FieldList []Field

// Get returns the first field with the given id.
func (l FieldList) Get(fid uint32) (Field, bool) {
	for _, f := range l {
		if f.ID == fid {
			return f, true
		}
	}

	return Field{}, false
}

// AppendFieldList appends every field of fields to dst in order.
func AppendFieldList(dst []byte, fields []Field, packed bool) ([]byte, error) {
	var err error
	for _, f := range fields {
		if dst, err = AppendField(dst, f, packed); err != nil {
			return dst, err
		}
	}

	return dst, nil
}

// DecodeFieldList decodes all fields in src, appending them to dst.
//
// The whole payload is rejected on the first malformed field.
func DecodeFieldList(src []byte, dst FieldList) (FieldList, error) {
	for off := 0; off < len(src); {
		f, n, err := DecodeField(src[off:])
		if err != nil {
			return dst, fmt.Errorf("offset %d: %w", off, err)
		}
		dst = append(dst, f)
		off += n
	}

	return dst, nil
}

// FieldListEncoder accumulates encoded fields in a pooled buffer.
//
// Note: the encoder is NOT safe for concurrent use.
type FieldListEncoder struct {
	buf    *pool.ByteBuffer
	packed bool
	count  int
}

// NewFieldListEncoder creates an encoder writing packed or unpacked fields.
func NewFieldListEncoder(packed bool) *FieldListEncoder {
	return &FieldListEncoder{
		buf:    pool.GetMessageBuffer(),
		packed: packed,
	}
}

// Write encodes one field.
func (e *FieldListEncoder) Write(f Field) error {
	out, err := AppendField(e.buf.B, f, e.packed)
	if err != nil {
		return err
	}
	e.buf.B = out
	e.count++

	return nil
}

// WriteSlice encodes fields in order, stopping at the first error.
func (e *FieldListEncoder) WriteSlice(fields []Field) error {
	for _, f := range fields {
		if err := e.Write(f); err != nil {
			return err
		}
	}

	return nil
}

// Bytes returns the encoded payload. The slice is valid until Reset or Finish.
func (e *FieldListEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of encoded fields.
func (e *FieldListEncoder) Len() int {
	return e.count
}

// Size returns the encoded payload size in bytes.
func (e *FieldListEncoder) Size() int {
	return e.buf.Len()
}

// Reset clears the encoder for reuse.
func (e *FieldListEncoder) Reset() {
	e.buf.Reset()
	e.count = 0
}

// Finish releases the pooled buffer. The encoder must not be used afterwards.
func (e *FieldListEncoder) Finish() {
	pool.PutMessageBuffer(e.buf)
	e.buf = nil
}

// FieldListDecoder iterates the fields of an encoded payload without
// materializing the whole list.
type FieldListDecoder struct {
	data []byte
	err  error
}

// NewFieldListDecoder creates a decoder over data.
func NewFieldListDecoder(data []byte) *FieldListDecoder {
	return &FieldListDecoder{data: data}
}

// All returns an iterator over (offset, field) pairs.
// Iteration stops at the first malformed field; check Err afterwards.
func (d *FieldListDecoder) All() iter.Seq2[int, Field] {
	return func(yield func(int, Field) bool) {
		d.err = nil
		for off := 0; off < len(d.data); {
			f, n, err := DecodeField(d.data[off:])
			if err != nil {
				d.err = fmt.Errorf("offset %d: %w", off, err)
				return
			}
			if !yield(off, f) {
				return
			}
			off += n
		}
	}
}

// Err returns the error that stopped the last iteration, if any.
func (d *FieldListDecoder) Err() error {
	return d.err
}
