package wire

import "fmt"

// SignalVector is one channel's resolved delta within a Notify message
// (§4.2): the SimBus fans out every channel's committed values to every
// registered model in a single SBNO frame per step.
type SignalVector struct {
	ChannelName string
	Delta       Delta
}

// Ack pairs a model with the token it is being released to proceed past
// (the notify carries the aggregate of what would otherwise be per-model
// ACKs, §4.3's "ACK token discipline").
type Ack struct {
	ModelUID uint32
	Token    uint32
}

// BenchmarkCounters carries the optional per-step timing counters recorded
// by the coordinator's running averages (C9); present only when the
// SimBus was started with benchmarking enabled.
type BenchmarkCounters struct {
	ExecuteTime    float64
	ProcessingTime float64
	NetworkTime    float64
	BusWaitTime    float64
}

// NotifyMessage is the SBNO envelope (§4.2): the resolved state of every
// channel after a bus_time advance, broadcast to all registered models.
type NotifyMessage struct {
	ModelTime    float64
	ScheduleTime float64
	ModelUIDs    []uint32
	Vectors      []SignalVector

	HasAcks bool
	Acks    []Ack

	HasBenchmark bool
	Benchmark    BenchmarkCounters
}

func (n NotifyMessage) Marshal() ([]byte, error) {
	w := &bw{}
	w.f64(n.ModelTime)
	w.f64(n.ScheduleTime)

	w.u32(uint32(len(n.ModelUIDs)))
	for _, uid := range n.ModelUIDs {
		w.u32(uid)
	}

	w.u32(uint32(len(n.Vectors)))
	for _, v := range n.Vectors {
		w.str(v.ChannelName)
		enc, err := EncodeDelta(v.Delta)
		if err != nil {
			return nil, fmt.Errorf("wire: notify channel %q: %w", v.ChannelName, err)
		}
		w.bytes(enc)
	}

	w.bool(n.HasAcks)
	if n.HasAcks {
		w.u32(uint32(len(n.Acks)))
		for _, a := range n.Acks {
			w.u32(a.ModelUID)
			w.u32(a.Token)
		}
	}

	w.bool(n.HasBenchmark)
	if n.HasBenchmark {
		w.f64(n.Benchmark.ExecuteTime)
		w.f64(n.Benchmark.ProcessingTime)
		w.f64(n.Benchmark.NetworkTime)
		w.f64(n.Benchmark.BusWaitTime)
	}
	return w.buf, nil
}

func UnmarshalNotifyMessage(body []byte) (NotifyMessage, error) {
	r := &br{buf: body}
	var n NotifyMessage
	n.ModelTime = r.f64()
	n.ScheduleTime = r.f64()

	nUID := int(r.u32())
	n.ModelUIDs = make([]uint32, nUID)
	for i := range n.ModelUIDs {
		n.ModelUIDs[i] = r.u32()
	}

	nVec := int(r.u32())
	n.Vectors = make([]SignalVector, nVec)
	for i := range n.Vectors {
		n.Vectors[i].ChannelName = r.str()
		enc := r.bytes()
		if r.err == nil {
			d, err := DecodeDelta(enc)
			if err != nil {
				return NotifyMessage{}, fmt.Errorf("wire: notify channel %q: %w", n.Vectors[i].ChannelName, err)
			}
			n.Vectors[i].Delta = d
		}
	}

	n.HasAcks = r.bool()
	if n.HasAcks {
		nAck := int(r.u32())
		n.Acks = make([]Ack, nAck)
		for i := range n.Acks {
			n.Acks[i].ModelUID = r.u32()
			n.Acks[i].Token = r.u32()
		}
	}

	n.HasBenchmark = r.bool()
	if n.HasBenchmark {
		n.Benchmark.ExecuteTime = r.f64()
		n.Benchmark.ProcessingTime = r.f64()
		n.Benchmark.NetworkTime = r.f64()
		n.Benchmark.BusWaitTime = r.f64()
	}

	if r.err != nil {
		return NotifyMessage{}, fmt.Errorf("wire: NotifyMessage: %w", r.err)
	}
	return n, nil
}

// WriteNotifyMessage encodes and writes n as a full SBNO frame.
func (sw *StreamWriter) WriteNotifyMessage(n NotifyMessage) error {
	body, err := n.Marshal()
	if err != nil {
		return err
	}
	return sw.writeFrame(IdentSBNO, body)
}

// ReadMessage reads the next frame and decodes it into either a
// ChannelMessage or a NotifyMessage based on its identifier.
func (sr *StreamReader) ReadMessage() (ident string, channel *ChannelMessage, notify *NotifyMessage, err error) {
	ident, body, err := sr.ReadFrame()
	if err != nil {
		return "", nil, nil, err
	}
	switch ident {
	case IdentSBCH:
		m, err := UnmarshalChannelMessage(body)
		if err != nil {
			return "", nil, nil, err
		}
		return ident, &m, nil, nil
	case IdentSBNO:
		n, err := UnmarshalNotifyMessage(body)
		if err != nil {
			return "", nil, nil, err
		}
		return ident, nil, &n, nil
	default:
		return "", nil, nil, fmt.Errorf("wire: unreachable identifier %q", ident)
	}
}
