package section

import (
	"bytes"

	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/format"
)

// DictEntry maps a field name to its id and wire type.
type DictEntry struct {
	Name string
	FID  uint32
	Type format.FieldType
}

// Bytes serializes the entry. Names longer than DictNameSize-1 are truncated.
func (e *DictEntry) Bytes() []byte {
	b := make([]byte, DictEntrySize)
	putName(b[:DictNameSize], e.Name)
	tape.PutUint32(b[64:68], e.FID)
	b[68] = byte(e.Type)

	return b
}

// Parse parses the entry from a byte slice.
func (e *DictEntry) Parse(data []byte) error {
	if len(data) < DictEntrySize {
		return errs.ErrInvalidTapeHeader
	}

	e.Name = getName(data[:DictNameSize])
	e.FID = tape.Uint32(data[64:68])
	e.Type = format.FieldType(data[68])

	return nil
}

// putName writes a NUL-terminated name into a fixed-size slot.
func putName(dst []byte, name string) {
	n := copy(dst[:len(dst)-1], name)
	clear(dst[n:])
}

func getName(src []byte) string {
	if i := bytes.IndexByte(src, 0); i >= 0 {
		return string(src[:i])
	}

	return string(src)
}
