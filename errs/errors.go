// Package errs defines the sentinel errors returned by mdwire packages.
//
// Errors are grouped under five roots. Specific errors wrap their root, so
// callers can match either level with errors.Is:
//
//	if errors.Is(err, errs.ErrMalformedField) { ... }
//	if errors.Is(err, errs.ErrTruncatedField) { ... }
package errs

import (
	"errors"
	"fmt"
)

// Taxonomy roots.
var (
	// ErrMalformedField indicates a field or message that cannot be decoded.
	ErrMalformedField = errors.New("malformed field")
	// ErrRangeOverflow indicates a value outside the range its encoding can carry.
	ErrRangeOverflow = errors.New("range overflow")
	// ErrTapeCorrupt indicates tape content that fails structural validation.
	ErrTapeCorrupt = errors.New("tape corrupt")
	// ErrTapeStale indicates a tape whose on-disk state no longer matches what was loaded.
	ErrTapeStale = errors.New("tape stale")
	// ErrTimeout indicates a pump that exceeded the caller's deadline.
	ErrTimeout = errors.New("timeout")
)

// Wire codec errors.
var (
	ErrTruncatedVarInt   = wrap(ErrMalformedField, "truncated varint")
	ErrTruncatedField    = wrap(ErrMalformedField, "truncated field")
	ErrUnknownFieldType  = wrap(ErrMalformedField, "unknown field type")
	ErrInvalidHeaderSize = wrap(ErrMalformedField, "invalid message header size")
	ErrInvalidFrameLen   = wrap(ErrMalformedField, "invalid message frame length")
	ErrVectorHint        = wrap(ErrRangeOverflow, "vector precision out of range")
	ErrValueOverflow     = wrap(ErrRangeOverflow, "value exceeds encodable range")
)

// Tape errors.
var (
	ErrInvalidMagicNumber = wrap(ErrTapeCorrupt, "invalid tape magic number")
	ErrUnsupportedVersion = wrap(ErrTapeCorrupt, "unsupported tape version")
	ErrInvalidTapeHeader  = wrap(ErrTapeCorrupt, "invalid tape header")
	ErrOffsetOutOfRange   = wrap(ErrTapeCorrupt, "offset outside mapped region")
	ErrDBIndexOutOfRange  = wrap(ErrTapeCorrupt, "dbIdx out of range")
	ErrInvalidFrame       = wrap(ErrTapeCorrupt, "invalid tape frame")
	ErrTapeShrunk         = wrap(ErrTapeStale, "tape file shrank")
	ErrLayoutChanged      = wrap(ErrTapeStale, "tape layout changed since load")
	ErrStaleOffset        = wrap(ErrTapeStale, "offset failed sanity probe")
)

// Channel errors.
var (
	// ErrTransportWrite is returned when the transport refuses a frame.
	ErrTransportWrite = errors.New("transport write failed")
)

// Usage errors.
var (
	ErrTapeNotLoaded    = errors.New("tape not loaded")
	ErrTapeFull         = errors.New("tape record table full")
	ErrPumpInProgress   = errors.New("pump already in progress")
	ErrInvalidSlice     = errors.New("invalid slice specification")
	ErrUnknownField     = errors.New("unknown field name")
	ErrWriterClosed     = errors.New("tape writer closed")
	ErrInvalidTickerKey = errors.New("service and ticker must be non-empty")
	ErrDuplicateTicker  = errors.New("ticker already registered")
	ErrInvalidOption    = errors.New("invalid option")
)

func wrap(root error, msg string) error {
	return fmt.Errorf("%s: %w", msg, root)
}
