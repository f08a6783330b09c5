package ncodec

import "encoding/binary"

// encodeMessage/decodeMessage are a minimal hand-rolled binary layout for
// Message — there is no wire-format requirement on the codec's internal
// framing (§4.7 specifies the typed-message fields, not a byte layout),
// so this mirrors internal/wire's plain length-prefixed style rather than
// inventing a third encoding scheme.

func appendU32(b []byte, v uint32) []byte { return binary.LittleEndian.AppendUint32(b, v) }
func appendBytes(b []byte, v []byte) []byte {
	b = appendU32(b, uint32(len(v)))
	return append(b, v...)
}
func appendStr(b []byte, s string) []byte { return appendBytes(b, []byte(s)) }

type cursor struct {
	b   []byte
	off int
}

func (c *cursor) u32() uint32 {
	v := binary.LittleEndian.Uint32(c.b[c.off:])
	c.off += 4
	return v
}
func (c *cursor) bytes() []byte {
	n := int(c.u32())
	v := append([]byte(nil), c.b[c.off:c.off+n]...)
	c.off += n
	return v
}
func (c *cursor) str() string { return string(c.bytes()) }
func (c *cursor) byte() byte {
	v := c.b[c.off]
	c.off++
	return v
}

func encodeMessage(msg Message) []byte {
	var b []byte
	b = append(b, byte(msg.Kind))
	switch msg.Kind {
	case KindCANFrame:
		b = appendU32(b, msg.CAN.FrameID)
		b = append(b, msg.CAN.FrameType)
		b = appendBytes(b, msg.CAN.Buffer)
		b = appendU32(b, msg.CAN.Sender.BusID)
		b = appendU32(b, msg.CAN.Sender.NodeID)
		b = appendU32(b, msg.CAN.Sender.InterfaceID)
	case KindPDU:
		b = appendU32(b, msg.PDU.ID)
		b = appendBytes(b, msg.PDU.Payload)
		b = appendU32(b, msg.PDU.SwcID)
		b = appendU32(b, msg.PDU.EcuID)
		b = append(b, byte(msg.PDU.Transport))
		b = appendStr(b, msg.PDU.Meta.Variant)
		b = appendBytes(b, msg.PDU.Meta.Data)
	}
	return b
}

func decodeMessage(body []byte) (Message, error) {
	c := &cursor{b: body}
	kind := MessageKind(c.byte())
	var msg Message
	msg.Kind = kind
	switch kind {
	case KindCANFrame:
		msg.CAN.FrameID = c.u32()
		msg.CAN.FrameType = c.byte()
		msg.CAN.Buffer = c.bytes()
		msg.CAN.Sender.BusID = c.u32()
		msg.CAN.Sender.NodeID = c.u32()
		msg.CAN.Sender.InterfaceID = c.u32()
	case KindPDU:
		msg.PDU.ID = c.u32()
		msg.PDU.Payload = c.bytes()
		msg.PDU.SwcID = c.u32()
		msg.PDU.EcuID = c.u32()
		msg.PDU.Transport = TransportType(c.byte())
		msg.PDU.Meta.Variant = c.str()
		msg.PDU.Meta.Data = c.bytes()
	}
	return msg, nil
}
