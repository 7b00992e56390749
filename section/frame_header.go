package section

import (
	"fmt"
	"time"

	"github.com/arloliu/mdwire/errs"
)

// FrameHeader precedes each message stored in a tape.
type FrameHeader struct {
	// MsgLen is the total frame length including this header.
	MsgLen uint32
	DBIdx  uint32
	Sec    uint32
	Usec   uint32
	// Last is the distance back to the previous frame of the same ticker, 0 for the first.
	Last uint64
}

// Last4 reports whether Last fits the 4-byte form.
func (f *FrameHeader) Last4() bool {
	return f.Last <= 0xffffffff
}

// Size returns the encoded header size.
func (f *FrameHeader) Size() int {
	if f.Last4() {
		return FrameHeaderMin
	}

	return FrameHeaderMax
}

// Time returns the frame timestamp.
func (f *FrameHeader) Time() time.Time {
	return time.Unix(int64(f.Sec), int64(f.Usec)*1000)
}

// Seconds returns the frame timestamp as fractional unix seconds.
func (f *FrameHeader) Seconds() float64 {
	return float64(f.Sec) + float64(f.Usec)/1e6
}

// PayloadLen returns the length of the message following the header.
func (f *FrameHeader) PayloadLen() int {
	return int(f.MsgLen) - f.Size()
}

// AppendTo appends the encoded header to dst.
func (f *FrameHeader) AppendTo(dst []byte) []byte {
	dst = tape.AppendUint32(dst, f.MsgLen)
	dst = tape.AppendUint32(dst, f.DBIdx)
	dst = tape.AppendUint32(dst, f.Sec)
	dst = tape.AppendUint32(dst, f.Usec)
	if f.Last4() {
		dst = append(dst, FrameFlagLast4)
		return tape.AppendUint32(dst, uint32(f.Last))
	}
	dst = append(dst, 0)

	return tape.AppendUint64(dst, f.Last)
}

// Parse parses a frame header from the start of data.
//
// Returns:
//   - int: Header size
//   - error: ErrInvalidFrame when data is short or MsgLen cannot hold the header
func (f *FrameHeader) Parse(data []byte) (int, error) {
	if len(data) < FrameHeaderMin {
		return 0, errs.ErrInvalidFrame
	}

	f.MsgLen = tape.Uint32(data[0:4])
	f.DBIdx = tape.Uint32(data[4:8])
	f.Sec = tape.Uint32(data[8:12])
	f.Usec = tape.Uint32(data[12:16])

	size := FrameHeaderMin
	if data[16]&FrameFlagLast4 != 0 {
		f.Last = uint64(tape.Uint32(data[17:21]))
	} else {
		if len(data) < FrameHeaderMax {
			return 0, errs.ErrInvalidFrame
		}
		f.Last = tape.Uint64(data[17:25])
		size = FrameHeaderMax
	}

	if int(f.MsgLen) < size {
		return 0, fmt.Errorf("msgLen %d < header %d: %w", f.MsgLen, size, errs.ErrInvalidFrame)
	}

	return size, nil
}
