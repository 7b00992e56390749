// Package section defines the fixed binary layouts of mdwire messages and tape files.
//
// # Message header
//
// Every wire message starts with a MsgHeader:
//
//	┌───────────────────────────────────────────────┐
//	│ Len       u32 big-endian (header + payload)   │
//	│ Tag       u32 big-endian                      │
//	│ DataType  u8                                  │
//	│ MsgType   u8                                  │
//	│ Protocol  u8 (bit 0 = packed fields)          │
//	│ Reserved  u8                                  │
//	│ Time      varint, 100µs ticks since midnight  │
//	│ RTL       varint                              │
//	└───────────────────────────────────────────────┘
//
// Len is written as a placeholder and patched with PatchLen once the
// payload is complete.
//
// # Tape file
//
// Tape structures are little-endian and fixed-size, so every structure can be
// located from the TapeHeader alone:
//
//	┌───────────────────────────────────────────────┐
//	│ TapeHeader (128 bytes)                        │
//	├───────────────────────────────────────────────┤
//	│ DictEntry × NumDict (72 bytes each)           │
//	├───────────────────────────────────────────────┤
//	│ u64 × NumSecIdx time index slots              │
//	├───────────────────────────────────────────────┤
//	│ RecordHeader × MaxRec (192 bytes each)        │
//	├───────────────────────────────────────────────┤
//	│ Frames from DataOffset to DataEnd             │
//	│  FrameHeader (21 or 25 bytes) + wire message  │
//	└───────────────────────────────────────────────┘
//
// Each frame stores the distance back to the previous frame of the same
// ticker. A zero distance ends that ticker's chain.
package section
