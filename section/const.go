package section

// Message header layout.
const (
	MsgHeaderFixedSize = 12                    // len, tag, dataType, msgType, protocol, reserved
	MsgHeaderMinSize   = MsgHeaderFixedSize + 2 // two 1-byte varints
	MsgHeaderMaxSize   = MsgHeaderFixedSize + 2*6

	msgLenOffset = 0
	msgTagOffset = 4
)

// Tape file layout.
const (
	TapeMagic       = "MDTP"
	TapeVersion     = 1
	TapeHeaderSize  = 128
	DictEntrySize   = 72
	DictNameSize    = 64
	RecordSize      = 192
	RecordNameSize  = 64
	SecIndexEntry   = 8
	FrameHeaderBase = 17 // msgLen, dbIdx, sec, usec, flags
	FrameHeaderMin  = FrameHeaderBase + 4
	FrameHeaderMax  = FrameHeaderBase + 8
)

// Frame flag bits.
const (
	FrameFlagLast4 = 0x01 // backward delta stored as u32
)
