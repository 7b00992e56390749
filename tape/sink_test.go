package tape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkFuncs(t *testing.T) {
	var (
		records  int
		doneAt   []uint64
		messages []string
		all      int
	)
	sink := SinkFuncs{
		Record:     func(*Record) { records++ },
		StreamDone: func(off uint64) { doneAt = append(doneAt, off) },
		Error:      func(msg string) { messages = append(messages, msg) },
		Status:     func(*Status) { all++ },
	}

	sink.OnRecord(&Record{})
	sink.OnStatus(&Status{Kind: StatusDead, Text: TextNonExistent})
	sink.OnStatus(&Status{Kind: StatusError, Text: "bad frame"})
	sink.OnStatus(&Status{Kind: StatusProgress, Text: "buffered"})
	sink.OnStatus(&Status{Kind: StatusStreamDone, Offset: 512})

	require.Equal(t, 1, records)
	require.Equal(t, []uint64{512}, doneAt)
	require.Equal(t, []string{TextNonExistent, "bad frame"}, messages)
	require.Equal(t, 4, all)
}

func TestSinkFuncs_NilMembers(t *testing.T) {
	require.NotPanics(t, func() {
		var sink SinkFuncs
		sink.OnRecord(&Record{})
		sink.OnStatus(&Status{Kind: StatusStreamDone})
		sink.OnStatus(&Status{Kind: StatusError})
	})
}

func TestStatusKind_String(t *testing.T) {
	require.Equal(t, "dead", StatusDead.String())
	require.Equal(t, "stream_done", StatusStreamDone.String())
	require.Equal(t, "unknown", StatusKind(0).String())
	require.Equal(t, "LoadFailed", StateLoadFailed.String())
	require.Equal(t, "reverse", Reverse.String())
}
