package pdu

import (
	"github.com/boschglobal/dse.modelc-sub000/internal/marshal"
	"github.com/boschglobal/dse.modelc-sub000/internal/ncodec"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
)

// FrameSignal is the binary signal name a Driver uses to carry encoded
// PDU frames across the bus (§4.8): the wire bytes ride a model's binary
// signal exactly like any other binary delta, via the same
// marshal.Marshaller reset/append discipline (§4.6, I3) ReadyLoopOnce
// already drives every step.
const FrameSignal = "frame"

// Driver binds a parsed Network's transform matrix and scheduler to one
// channel's scalar signal vector (via a SignalMap) and its "frame" binary
// signal (via an ncodec.Codec over a Stream, and a shared Marshaller).
// One Step call per simulation step runs the full §4.8 pipeline:
// schedule -> encode -> frame bytes out, frame bytes in -> decode ->
// signal vector.
type Driver struct {
	Net     *Network
	Scripts *ScriptRegistry

	signalMap  *SignalMap
	codec      *ncodec.Codec
	stream     *ncodec.Stream
	marshaller *marshal.Marshaller
}

// NewDriver builds a Driver for net, exposing its scalar signals on
// channel and carrying its encoded frames over channel's "frame" binary
// signal through m (the same Marshaller the owning Adapter's
// ReadyLoopOnce uses for channel).
func NewDriver(net *Network, scripts *ScriptRegistry, channel *signal.Channel, m *marshal.Marshaller) *Driver {
	if scripts == nil {
		scripts = NewScriptRegistry()
	}
	channel.GetOrCreate(FrameSignal) // ensure the binary carrier signal exists so Marshal{In,Out} sees it
	stream := ncodec.NewStream()
	codec := ncodec.New(stream)
	codec.Config("type", "pdu")
	return &Driver{
		Net:        net,
		Scripts:    scripts,
		signalMap:  BuildSignalMap(net, channel),
		codec:      codec,
		stream:     stream,
		marshaller: m,
	}
}

// Codec exposes the Driver's NCodec instance so a caller (cmd/dse-core)
// can install trace hooks on it (internal/trace, C10).
func (d *Driver) Codec() *ncodec.Codec { return d.codec }

// Step runs one Tx/Rx pass for the bound network against modelBin, the
// same model-facing binary vector MarshalOut/MarshalIn round-trip every
// step (internal/adapter.Adapter.ModelBin).
func (d *Driver) Step(step int, modelBin map[string][]byte) error {
	d.Net.Tick(step)

	// Rx: inbound frame bytes -> decoded matrix -> scalar signal vector.
	// Runs before Tx so the buffer is drained and cleared before Tx
	// appends this step's outbound frame onto it.
	if inbound := modelBin[FrameSignal]; len(inbound) > 0 {
		d.stream.Bind(inbound)
		for {
			msg, err := d.codec.Read()
			if err != nil {
				break // xerr.ErrNoMsg: stream exhausted (or a malformed trailing frame)
			}
			if msg.Kind != ncodec.KindPDU {
				continue
			}
			p := d.findRx(msg.PDU.ID)
			if p == nil {
				continue
			}
			copy(p.Payload, msg.PDU.Payload)
			if err := d.Net.Decode(p, d.Scripts); err != nil {
				return err
			}
		}
		d.signalMap.ToSignalVector(d.Net)
		modelBin[FrameSignal] = modelBin[FrameSignal][:0]
	}

	// Tx: scalar signal vector -> matrix -> encoded frame bytes.
	d.signalMap.FromSignalVector(d.Net)
	if _, err := d.stream.Seek(0, ncodec.SeekReset); err != nil {
		return err
	}
	for _, p := range d.Net.Pdus {
		if p.Direction != DirectionTx {
			continue
		}
		if err := d.Net.Encode(p, d.Scripts); err != nil {
			return err
		}
		if !p.NeedsTx {
			continue
		}
		if err := d.codec.Write(ncodec.Message{Kind: ncodec.KindPDU, PDU: ncodec.PDUMessage{
			ID: p.ID, Payload: p.Payload, Transport: p.Transport,
		}}); err != nil {
			return err
		}
	}
	if frame := d.stream.Bytes(); len(frame) > 0 {
		d.marshaller.Reset(FrameSignal)
		if err := d.marshaller.Append(FrameSignal, modelBin, frame); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) findRx(id uint32) *PDU {
	for _, p := range d.Net.Pdus {
		if p.Direction == DirectionRx && p.ID == id {
			return p
		}
	}
	return nil
}
