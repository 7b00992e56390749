package section

import (
	"time"

	"github.com/arloliu/mdwire/errs"
)

// RecordHeader is the per-ticker metadata of a tape.
type RecordHeader struct {
	Service  string // byte offset 0-63
	Ticker   string // byte offset 64-127
	DBIdx    uint32 // byte offset 128-131
	StreamID uint32 // byte offset 132-135
	// Head is the file offset of the newest frame of this ticker, 0 when none.
	Head uint64 // byte offset 136-143
	// Image is the file offset of the newest image frame, 0 when none.
	Image    uint64 // byte offset 144-151
	NumMsg   uint64 // byte offset 152-159
	NumBytes uint64 // byte offset 160-167
	// MsgSec and MsgUsec are the timestamp of the newest frame.
	MsgSec  uint32 // byte offset 168-171
	MsgUsec uint32 // byte offset 172-175
	// IdxTime and IdxSlot form the time index cursor: the bucket start
	// (seconds since midnight) and slot of the newest frame.
	IdxTime   uint32 // byte offset 176-179
	IdxSlot   uint32 // byte offset 180-183
	ChannelID uint32 // byte offset 184-187
}

// LastTime returns the timestamp of the newest frame.
func (r *RecordHeader) LastTime() time.Time {
	return time.Unix(int64(r.MsgSec), int64(r.MsgUsec)*1000)
}

// Bytes serializes the record header.
func (r *RecordHeader) Bytes() []byte {
	b := make([]byte, RecordSize)
	putName(b[0:64], r.Service)
	putName(b[64:128], r.Ticker)
	tape.PutUint32(b[128:132], r.DBIdx)
	tape.PutUint32(b[132:136], r.StreamID)
	tape.PutUint64(b[136:144], r.Head)
	tape.PutUint64(b[144:152], r.Image)
	tape.PutUint64(b[152:160], r.NumMsg)
	tape.PutUint64(b[160:168], r.NumBytes)
	tape.PutUint32(b[168:172], r.MsgSec)
	tape.PutUint32(b[172:176], r.MsgUsec)
	tape.PutUint32(b[176:180], r.IdxTime)
	tape.PutUint32(b[180:184], r.IdxSlot)
	tape.PutUint32(b[184:188], r.ChannelID)

	return b
}

// Parse parses the record header from a byte slice.
func (r *RecordHeader) Parse(data []byte) error {
	if len(data) < RecordSize {
		return errs.ErrInvalidTapeHeader
	}

	r.Service = getName(data[0:64])
	r.Ticker = getName(data[64:128])
	r.DBIdx = tape.Uint32(data[128:132])
	r.StreamID = tape.Uint32(data[132:136])
	r.Head = tape.Uint64(data[136:144])
	r.Image = tape.Uint64(data[144:152])
	r.NumMsg = tape.Uint64(data[152:160])
	r.NumBytes = tape.Uint64(data[160:168])
	r.MsgSec = tape.Uint32(data[168:172])
	r.MsgUsec = tape.Uint32(data[172:176])
	r.IdxTime = tape.Uint32(data[176:180])
	r.IdxSlot = tape.Uint32(data[180:184])
	r.ChannelID = tape.Uint32(data[184:188])

	return nil
}
