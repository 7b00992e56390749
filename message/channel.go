package message

import (
	"fmt"

	"github.com/arloliu/mdwire/encoding"
	"github.com/arloliu/mdwire/errs"
	"github.com/arloliu/mdwire/internal/clock"
	"github.com/arloliu/mdwire/internal/options"
	"github.com/arloliu/mdwire/section"
	"github.com/rs/zerolog"
)

// Transport is the outbound side of a channel.
type Transport interface {
	// Write sends one complete frame and reports whether it was accepted.
	Write(frame []byte) bool
	// Now returns the transport clock as fractional unix seconds.
	Now() float64
}

// FrameHandler receives raw inbound bytes from a channel.
type FrameHandler interface {
	OnFrame(data []byte)
}

// Publisher builds messages and writes them to a Transport.
//
// Note: a Publisher is NOT safe for concurrent use.
type Publisher struct {
	tr      Transport
	builder *Builder
	clock   *clock.Midnight
	rtl     uint32
}

// NewPublisher creates a Publisher writing to tr.
func NewPublisher(tr Transport, opts ...BuilderOption) (*Publisher, error) {
	if tr == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	b, err := NewBuilder(opts...)
	if err != nil {
		return nil, err
	}

	return &Publisher{tr: tr, builder: b, clock: b.clock}, nil
}

// Publish builds one message and writes it.
//
// A zero header Time is stamped from the transport clock and a zero RTL is
// replaced with the publisher's running transaction level.
//
// Returns:
//   - int: Frame size in bytes
//   - error: Encoding error or errs.ErrTransportWrite
func (p *Publisher) Publish(hdr section.MsgHeader, fields []encoding.Field) (int, error) {
	if hdr.Time == 0 {
		hdr.Time = p.clock.TicksAt(clock.FromUnixFloat(p.tr.Now()))
	}
	if hdr.RTL == 0 {
		p.rtl++
		hdr.RTL = p.rtl
	}

	p.builder.Init(hdr)
	if err := p.builder.AddFields(fields...); err != nil {
		return 0, err
	}
	frame, err := p.builder.Finish()
	if err != nil {
		return 0, err
	}
	if !p.tr.Write(frame) {
		return 0, errs.ErrTransportWrite
	}

	return len(frame), nil
}

// Close releases the publisher buffers.
func (p *Publisher) Close() {
	p.builder.Release()
}

// MessageHandler receives decoded messages from a Subscriber.
type MessageHandler func(msg *Message)

// Subscriber decodes inbound frames and dispatches them to a MessageHandler.
// It implements FrameHandler.
type Subscriber struct {
	splitter *Splitter
	handler  MessageHandler
	onError  func(err error)
	logger   zerolog.Logger
	parsed   uint64
	dropped  uint64
}

// SubscriberOption configures a Subscriber.
type SubscriberOption = options.Option[*Subscriber]

// WithLogger sets the logger used for malformed frames.
func WithLogger(logger zerolog.Logger) SubscriberOption {
	return options.NoError(func(s *Subscriber) {
		s.logger = logger
	})
}

// WithErrorHandler sets a callback for frames that cannot be decoded.
func WithErrorHandler(fn func(err error)) SubscriberOption {
	return options.NoError(func(s *Subscriber) {
		s.onError = fn
	})
}

// NewSubscriber creates a Subscriber delivering to handler.
func NewSubscriber(handler MessageHandler, opts ...SubscriberOption) (*Subscriber, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}

	s := &Subscriber{
		splitter: NewSplitter(),
		handler:  handler,
		logger:   zerolog.Nop(),
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// OnFrame consumes a chunk of the inbound stream.
//
// Malformed messages are skipped and reported; a corrupt frame length
// drops the buffered stream.
func (s *Subscriber) OnFrame(data []byte) {
	_, err := s.splitter.Feed(data, func(frame []byte) error {
		msg, _, err := Parse(frame)
		if err != nil {
			s.dropped++
			s.report(err)

			return nil
		}
		s.parsed++
		s.handler(&msg)

		return nil
	})
	if err != nil {
		s.dropped++
		s.report(err)
	}
}

// Stats returns the number of delivered and dropped messages.
func (s *Subscriber) Stats() (parsed, dropped uint64) {
	return s.parsed, s.dropped
}

// Close releases the subscriber buffers.
func (s *Subscriber) Close() {
	s.splitter.Close()
}

func (s *Subscriber) report(err error) {
	s.logger.Warn().Err(err).Msg("dropping malformed message")
	if s.onError != nil {
		s.onError(err)
	}
}
