package message

import (
	"fmt"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/clock"
	"github.com/arloliu/mdwire/internal/options"
	"github.com/arloliu/mdwire/internal/pool"
	"github.com/arloliu/mdwire/section"
)

// Builder assembles one message at a time in a pooled buffer.
//
// Note: a Builder is NOT safe for concurrent use.
type Builder struct {
	buf     *pool.ByteBuffer
	clock   *clock.Midnight
	packed  bool
	started bool
	count   int
}

// BuilderOption configures a Builder.
type BuilderOption = options.Option[*Builder]

// WithPackedFields selects VarInt packed (true, the default) or fixed-width fields.
func WithPackedFields(packed bool) BuilderOption {
	return options.NoError(func(b *Builder) {
		b.packed = packed
	})
}

// WithClock sets the midnight source used when a header has no time.
func WithClock(c *clock.Midnight) BuilderOption {
	return options.New(func(b *Builder) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		b.clock = c

		return nil
	})
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		clock:  clock.Default(),
		packed: true,
	}
	if err := options.Apply(b, opts...); err != nil {
		return nil, err
	}
	b.buf = pool.GetMessageBuffer()

	return b, nil
}

// Packed reports whether the builder writes packed fields.
func (b *Builder) Packed() bool {
	return b.packed
}

// Init starts a new message, discarding any unfinished one.
//
// The header is written with a zero length. A zero Time is replaced with
// the current ticks since local midnight, and the packed protocol bit is set
// from the builder mode.
func (b *Builder) Init(hdr section.MsgHeader) {
	if hdr.Time == 0 {
		hdr.Time = b.clock.Ticks()
	}
	if b.packed {
		hdr.Protocol |= section.ProtocolPacked
	} else {
		hdr.Protocol &^= section.ProtocolPacked
	}
	hdr.Len = 0

	b.buf.Reset()
	b.buf.B = hdr.AppendTo(b.buf.B)
	b.started = true
	b.count = 0
}

// Add appends one field to the payload.
func (b *Builder) Add(f encoding.Field) error {
	if !b.started {
		return fmt.Errorf("builder: Add before Init")
	}

	out, err := encoding.AppendField(b.buf.B, f, b.packed)
	if err != nil {
		return err
	}
	b.buf.B = out
	b.count++

	return nil
}

// AddFields appends fields in order, stopping at the first error.
func (b *Builder) AddFields(fields ...encoding.Field) error {
	for _, f := range fields {
		if err := b.Add(f); err != nil {
			return err
		}
	}

	return nil
}

// NumFields returns the number of fields added since Init.
func (b *Builder) NumFields() int {
	return b.count
}

// Finish patches the header length and returns the complete frame.
//
// The returned slice aliases the builder buffer and is valid until the next
// Init or Release.
func (b *Builder) Finish() ([]byte, error) {
	if !b.started {
		return nil, fmt.Errorf("builder: Finish before Init")
	}
	if uint64(b.buf.Len()) > 0xffffffff {
		return nil, errs.ErrValueOverflow
	}

	section.PatchLen(b.buf.B, uint32(b.buf.Len())) //nolint:gosec
	b.started = false

	return b.buf.Bytes(), nil
}

// Release returns the buffer to its pool. The builder must not be used afterwards.
func (b *Builder) Release() {
	pool.PutMessageBuffer(b.buf)
	b.buf = nil
}

// Build encodes one message and returns an owned copy of it.
func Build(hdr section.MsgHeader, fields []encoding.Field, opts ...BuilderOption) ([]byte, error) {
	b, err := NewBuilder(opts...)
	if err != nil {
		return nil, err
	}
	defer b.Release()

	b.Init(hdr)
	if err := b.AddFields(fields...); err != nil {
		return nil, err
	}
	frame, err := b.Finish()
	if err != nil {
		return nil, err
	}

	return append([]byte(nil), frame...), nil
}
