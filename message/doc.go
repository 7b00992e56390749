// Package message builds and parses complete mdwire messages.
//
// A message is a section.MsgHeader followed by an encoded field list. The
// Builder writes the header with a zero length, appends fields, then patches
// the length in place:
//
//	b, _ := message.NewBuilder(message.WithPackedFields(true))
//	b.Init(section.MsgHeader{DataType: format.DataFieldList, MsgType: format.MsgUpdate})
//	_ = b.Add(encoding.NewField(22, encoding.Double(101.25)))
//	frame, _ := b.Finish()
//
// Parse decodes one frame, and Splitter cuts a byte stream into frames for
// transports that deliver arbitrary chunks. Publisher and Subscriber adapt
// these to the Transport and FrameHandler collaborator interfaces.
package message
