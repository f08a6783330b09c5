package wire

import "fmt"

// ChannelMsgType discriminates the inner payload of a ChannelMessage
// (§4.2/§4.3): the adapter/SimBus exchange is a closed set of message
// kinds, one per state-machine transition.
type ChannelMsgType byte

const (
	MsgModelRegister ChannelMsgType = iota
	MsgSignalIndex
	MsgSignalRead
	MsgSignalValue
	MsgSignalWrite
	MsgModelReady
	MsgModelStart
	MsgModelExit
)

func (t ChannelMsgType) String() string {
	switch t {
	case MsgModelRegister:
		return "ModelRegister"
	case MsgSignalIndex:
		return "SignalIndex"
	case MsgSignalRead:
		return "SignalRead"
	case MsgSignalValue:
		return "SignalValue"
	case MsgSignalWrite:
		return "SignalWrite"
	case MsgModelReady:
		return "ModelReady"
	case MsgModelStart:
		return "ModelStart"
	case MsgModelExit:
		return "ModelExit"
	default:
		return fmt.Sprintf("ChannelMsgType(%d)", byte(t))
	}
}

// SignalLookup pairs a signal's name with its resolved UID (§4.1): Name is
// always set, UID is 0 in a SignalIndex request and filled in on the
// SimBus's reply.
type SignalLookup struct {
	Name string
	UID  uint32
}

// ChannelMessage is the SBCH envelope (§4.2, §4.3): one channel's worth of
// adapter<->bus traffic, tagged by Type, carrying a token the receiver
// echoes back to acknowledge (the adapter state machine's ACK discipline,
// §4.3).
type ChannelMessage struct {
	ModelUID    uint32
	ChannelName string
	Token       uint32
	Type        ChannelMsgType

	// ModelRegister
	StepSize float64

	// SignalIndex (request: Lookups[i].UID == 0; reply: resolved)
	Lookups []SignalLookup

	// SignalRead / SignalValue / SignalWrite: embedded (uid, value) delta
	Delta Delta

	// ModelReady
	ModelTime  float64
	HasWrite   bool
	WriteDelta Delta

	// ModelStart
	StopTime   float64
	HasValue   bool
	ValueDelta Delta
}

// Marshal encodes m as an SBCH frame body (identifier excluded — that is
// added by the StreamWriter).
func (m ChannelMessage) Marshal() ([]byte, error) {
	w := &bw{}
	w.u32(m.ModelUID)
	w.str(m.ChannelName)
	w.u32(m.Token)
	w.byte(byte(m.Type))

	switch m.Type {
	case MsgModelRegister:
		w.f64(m.StepSize)
	case MsgSignalIndex:
		w.u32(uint32(len(m.Lookups)))
		for _, l := range m.Lookups {
			w.str(l.Name)
			w.u32(l.UID)
		}
	case MsgSignalRead, MsgSignalValue, MsgSignalWrite:
		enc, err := EncodeDelta(m.Delta)
		if err != nil {
			return nil, fmt.Errorf("wire: %s: %w", m.Type, err)
		}
		w.bytes(enc)
	case MsgModelReady:
		w.f64(m.ModelTime)
		w.bool(m.HasWrite)
		if m.HasWrite {
			enc, err := EncodeDelta(m.WriteDelta)
			if err != nil {
				return nil, fmt.Errorf("wire: %s: %w", m.Type, err)
			}
			w.bytes(enc)
		}
	case MsgModelStart:
		w.f64(m.ModelTime)
		w.f64(m.StopTime)
		w.bool(m.HasValue)
		if m.HasValue {
			enc, err := EncodeDelta(m.ValueDelta)
			if err != nil {
				return nil, fmt.Errorf("wire: %s: %w", m.Type, err)
			}
			w.bytes(enc)
		}
	case MsgModelExit:
		// no payload
	default:
		return nil, fmt.Errorf("wire: unknown ChannelMsgType %d", m.Type)
	}
	return w.buf, nil
}

// UnmarshalChannelMessage decodes an SBCH frame body (identifier already
// stripped by the StreamReader).
func UnmarshalChannelMessage(body []byte) (ChannelMessage, error) {
	r := &br{buf: body}
	var m ChannelMessage
	m.ModelUID = r.u32()
	m.ChannelName = r.str()
	m.Token = r.u32()
	m.Type = ChannelMsgType(r.byte())

	switch m.Type {
	case MsgModelRegister:
		m.StepSize = r.f64()
	case MsgSignalIndex:
		n := int(r.u32())
		m.Lookups = make([]SignalLookup, n)
		for i := range m.Lookups {
			m.Lookups[i].Name = r.str()
			m.Lookups[i].UID = r.u32()
		}
	case MsgSignalRead, MsgSignalValue, MsgSignalWrite:
		enc := r.bytes()
		if r.err == nil {
			d, err := DecodeDelta(enc)
			if err != nil {
				return ChannelMessage{}, fmt.Errorf("wire: %s: %w", m.Type, err)
			}
			m.Delta = d
		}
	case MsgModelReady:
		m.ModelTime = r.f64()
		m.HasWrite = r.bool()
		if m.HasWrite {
			enc := r.bytes()
			if r.err == nil {
				d, err := DecodeDelta(enc)
				if err != nil {
					return ChannelMessage{}, fmt.Errorf("wire: %s: %w", m.Type, err)
				}
				m.WriteDelta = d
			}
		}
	case MsgModelStart:
		m.ModelTime = r.f64()
		m.StopTime = r.f64()
		m.HasValue = r.bool()
		if m.HasValue {
			enc := r.bytes()
			if r.err == nil {
				d, err := DecodeDelta(enc)
				if err != nil {
					return ChannelMessage{}, fmt.Errorf("wire: %s: %w", m.Type, err)
				}
				m.ValueDelta = d
			}
		}
	case MsgModelExit:
		// no payload
	default:
		return ChannelMessage{}, fmt.Errorf("wire: unknown ChannelMsgType %d", m.Type)
	}
	if r.err != nil {
		return ChannelMessage{}, fmt.Errorf("wire: ChannelMessage: %w", r.err)
	}
	return m, nil
}

// WriteChannelMessage encodes and writes m as a full SBCH frame.
func (sw *StreamWriter) WriteChannelMessage(m ChannelMessage) error {
	body, err := m.Marshal()
	if err != nil {
		return err
	}
	return sw.writeFrame(IdentSBCH, body)
}
