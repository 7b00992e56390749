package message

import (
	"fmt"
	"time"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/clock"
	"github.com/arloliu/mdwire/section"
)

// Message is a decoded wire message.
type Message struct {
	Header section.MsgHeader
	Fields encoding.FieldList
}

// Time converts the header ticks to an absolute time on the day held by c.
func (m *Message) Time(c *clock.Midnight) time.Time {
	return c.TimeOf(m.Header.Time)
}

// Parse decodes the message at the start of data.
//
// Parameters:
//   - data: Buffer holding at least one complete message
//
// Returns:
//   - Message: Decoded header and fields
//   - int: Header Len, the number of bytes the message occupies
//   - error: ErrInvalidHeaderSize, ErrInvalidFrameLen or a field decoding error
func Parse(data []byte) (Message, int, error) {
	var m Message
	n, err := m.Header.Parse(data)
	if err != nil {
		return Message{}, 0, err
	}

	end := int(m.Header.Len)
	if end > len(data) {
		return Message{}, 0, fmt.Errorf("len %d exceeds %d buffered bytes: %w", end, len(data), errs.ErrInvalidFrameLen)
	}

	m.Fields, err = encoding.DecodeFieldList(data[n:end], nil)
	if err != nil {
		return Message{}, 0, err
	}

	return m, end, nil
}
