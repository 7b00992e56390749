package tape

import (
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/section"
)

// Status texts carried by replay status events.
const (
	TextStreamComplete   = "Stream Complete"
	TextStreamTerminated = "Stream terminated"
	TextNonExistent      = "non-existent item"
)

// Record is one message delivered by a replay.
type Record struct {
	Service string
	Ticker  string
	// StreamID is the tape dbIdx of the ticker.
	StreamID int
	// Time is the recording timestamp, or the bucket start for samples.
	Time   time.Time
	Header section.MsgHeader
	Fields encoding.FieldList
	// Offset is the frame offset in the tape file.
	Offset uint64
}

// StatusKind classifies status events.
type StatusKind uint8

const (
	// StatusDead reports a subscription whose ticker is not on the tape.
	StatusDead StatusKind = iota + 1
	// StatusProgress reports buffering progress of a chronological pump.
	StatusProgress
	// StatusStreamDone ends every pump.
	StatusStreamDone
	// StatusError reports a record-level failure that was skipped.
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusDead:
		return "dead"
	case StatusProgress:
		return "progress"
	case StatusStreamDone:
		return "stream_done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is a non-data replay event.
type Status struct {
	Kind     StatusKind
	Service  string
	Ticker   string
	StreamID int
	Text     string
	// Offset is the resume offset of a paged pump, 0 once the tape is exhausted.
	Offset uint64
	// Completed is false when the pump was stopped, timed out or hit corruption.
	Completed bool
	Err       error
}

// Sink receives replay output. Calls arrive on the pumping goroutine.
// Records and their Fields must not be retained past the call unless copied.
type Sink interface {
	OnRecord(rec *Record)
	OnStatus(st *Status)
}

// SinkFuncs adapts plain functions to Sink. Nil members are skipped.
type SinkFuncs struct {
	Record     func(rec *Record)
	StreamDone func(offset uint64)
	Error      func(msg string)
	// Status receives every status event, including those routed to
	// StreamDone and Error.
	Status func(st *Status)
}

var _ Sink = SinkFuncs{}

// OnRecord implements Sink.
func (s SinkFuncs) OnRecord(rec *Record) {
	if s.Record != nil {
		s.Record(rec)
	}
}

// OnStatus implements Sink.
func (s SinkFuncs) OnStatus(st *Status) {
	if s.Status != nil {
		s.Status(st)
	}

	switch st.Kind {
	case StatusStreamDone:
		if s.StreamDone != nil {
			s.StreamDone(st.Offset)
		}
	case StatusError, StatusDead:
		if s.Error != nil {
			s.Error(st.Text)
		}
	}
}
