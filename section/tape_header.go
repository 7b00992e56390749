package section

import (
	"fmt"
	"time"

	"github.com/arloliu/mdwire/endian"
	"github.com/arloliu/mdwire/errs"
)

var tape = endian.TapeEngine()

// TapeHeader is the fixed-size header at the start of a tape file.
type TapeHeader struct {
	Version uint16
	// DataOffset is the file offset of the first frame.
	DataOffset uint64 // byte offset 8-15
	// DataEnd is the file offset one past the last complete frame.
	DataEnd uint64 // byte offset 16-23
	// CreateTime is the unix time the tape was created; it anchors the tape day.
	CreateTime int64 // byte offset 24-31
	// StartTime is the unix second of the first frame, 0 while empty.
	StartTime int64 // byte offset 32-39
	// CurTime and CurTimeUsec are the timestamp of the newest frame.
	CurTime     int64  // byte offset 40-47
	CurTimeUsec uint32 // byte offset 48-51
	NumDict     uint32 // byte offset 52-55
	// SecPerIdx is the width of one time index bucket in seconds.
	SecPerIdx uint32 // byte offset 56-59
	NumSecIdx uint32 // byte offset 60-63
	MaxRec    uint32 // byte offset 64-67
	NumRec    uint32 // byte offset 68-71
	NumMsg    uint64 // byte offset 72-79
}

// DictOffset returns the file offset of the dictionary.
func (h *TapeHeader) DictOffset() uint64 {
	return TapeHeaderSize
}

// SecIndexOffset returns the file offset of the time index.
func (h *TapeHeader) SecIndexOffset() uint64 {
	return h.DictOffset() + uint64(h.NumDict)*DictEntrySize
}

// RecordOffset returns the file offset of the record header with the given index.
func (h *TapeHeader) RecordOffset(dbIdx uint32) uint64 {
	return h.SecIndexOffset() + uint64(h.NumSecIdx)*SecIndexEntry + uint64(dbIdx)*RecordSize
}

// LayoutSize returns the size of all fixed sections, the minimum DataOffset.
func (h *TapeHeader) LayoutSize() uint64 {
	return h.RecordOffset(h.MaxRec)
}

// CreatedAt returns CreateTime as a time.Time.
func (h *TapeHeader) CreatedAt() time.Time {
	return time.Unix(h.CreateTime, 0)
}

// CurrentTime returns the timestamp of the newest frame.
func (h *TapeHeader) CurrentTime() time.Time {
	return time.Unix(h.CurTime, int64(h.CurTimeUsec)*1000)
}

// SameLayout reports whether o describes the same fixed sections as h.
func (h *TapeHeader) SameLayout(o *TapeHeader) bool {
	return h.DataOffset == o.DataOffset && h.NumDict == o.NumDict &&
		h.SecPerIdx == o.SecPerIdx && h.NumSecIdx == o.NumSecIdx &&
		h.MaxRec == o.MaxRec && h.CreateTime == o.CreateTime
}

// Bytes serializes the TapeHeader into a byte slice.
func (h *TapeHeader) Bytes() []byte {
	b := make([]byte, TapeHeaderSize)

	copy(b[0:4], TapeMagic)
	tape.PutUint16(b[4:6], h.Version)
	tape.PutUint64(b[8:16], h.DataOffset)
	tape.PutUint64(b[16:24], h.DataEnd)
	tape.PutUint64(b[24:32], uint64(h.CreateTime)) //nolint:gosec
	tape.PutUint64(b[32:40], uint64(h.StartTime))  //nolint:gosec
	tape.PutUint64(b[40:48], uint64(h.CurTime))    //nolint:gosec
	tape.PutUint32(b[48:52], h.CurTimeUsec)
	tape.PutUint32(b[52:56], h.NumDict)
	tape.PutUint32(b[56:60], h.SecPerIdx)
	tape.PutUint32(b[60:64], h.NumSecIdx)
	tape.PutUint32(b[64:68], h.MaxRec)
	tape.PutUint32(b[68:72], h.NumRec)
	tape.PutUint64(b[72:80], h.NumMsg)

	return b
}

// Parse parses the header from a byte slice and validates its layout.
//
// Parameters:
//   - data: Byte slice containing at least TapeHeaderSize bytes
//
// Returns:
//   - error: ErrInvalidMagicNumber, ErrUnsupportedVersion or ErrInvalidTapeHeader
func (h *TapeHeader) Parse(data []byte) error {
	if len(data) < TapeHeaderSize {
		return errs.ErrInvalidTapeHeader
	}
	if string(data[0:4]) != TapeMagic {
		return errs.ErrInvalidMagicNumber
	}

	h.Version = tape.Uint16(data[4:6])
	if h.Version != TapeVersion {
		return fmt.Errorf("version %d: %w", h.Version, errs.ErrUnsupportedVersion)
	}

	h.DataOffset = tape.Uint64(data[8:16])
	h.DataEnd = tape.Uint64(data[16:24])
	h.CreateTime = int64(tape.Uint64(data[24:32])) //nolint:gosec
	h.StartTime = int64(tape.Uint64(data[32:40]))  //nolint:gosec
	h.CurTime = int64(tape.Uint64(data[40:48]))    //nolint:gosec
	h.CurTimeUsec = tape.Uint32(data[48:52])
	h.NumDict = tape.Uint32(data[52:56])
	h.SecPerIdx = tape.Uint32(data[56:60])
	h.NumSecIdx = tape.Uint32(data[60:64])
	h.MaxRec = tape.Uint32(data[64:68])
	h.NumRec = tape.Uint32(data[68:72])
	h.NumMsg = tape.Uint64(data[72:80])

	return h.Validate()
}

// Validate checks the internal consistency of the header fields.
func (h *TapeHeader) Validate() error {
	switch {
	case h.NumRec > h.MaxRec:
		return fmt.Errorf("numRec %d > maxRec %d: %w", h.NumRec, h.MaxRec, errs.ErrInvalidTapeHeader)
	case h.NumSecIdx > 0 && h.SecPerIdx == 0:
		return fmt.Errorf("zero index bucket width: %w", errs.ErrInvalidTapeHeader)
	case h.DataOffset < h.LayoutSize():
		return fmt.Errorf("data offset %d inside fixed sections: %w", h.DataOffset, errs.ErrInvalidTapeHeader)
	case h.DataEnd < h.DataOffset:
		return fmt.Errorf("data end %d before data offset %d: %w", h.DataEnd, h.DataOffset, errs.ErrInvalidTapeHeader)
	}

	return nil
}
