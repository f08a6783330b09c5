package pdu

import "github.com/boschglobal/dse.modelc-sub000/internal/ncodec"

// FlexRayConfig is the static slot/bit-rate/channel configuration and
// frame table emitted once, on the first Tx, to prime the bus (§4.8).
type FlexRayConfig struct {
	StaticSlotLength uint32
	StaticSlotCount  uint32
	BitRate          string
	ChannelEnable    string
	FrameTable       []FlexRayFrameEntry
}

// FlexRayFrameEntry is one frame table row: the slot assignment for a
// single PDU.
type FlexRayFrameEntry struct {
	SlotID    uint32
	Direction Direction
	PduID     uint32
}

// FlexRayStatus is the realignment signal read from the bus (§4.8): when
// Cycle changes, the network recomputes EpochOffsetSteps.
type FlexRayStatus struct {
	Cycle     uint32
	Macrotick uint32
}

// Transport drives a Network over FlexRay: config-frame-once, then
// per-tick Tx LPDUs (with "not received" markers armed for Rx PDUs), and
// realigns the schedule's epoch on incoming Status frames.
type Transport struct {
	net  *Network
	cfg  FlexRayConfig
	sent bool

	cycleTimeSteps int // whole steps per FlexRay cycle, for realignment
	lastCycle      int32
}

func NewTransport(net *Network, cfg FlexRayConfig, cycleTimeSteps int) *Transport {
	return &Transport{net: net, cfg: cfg, cycleTimeSteps: cycleTimeSteps, lastCycle: -1}
}

// ConfigFrame returns the one-time Config PDU payload (frame table plus
// static parameters) and true on the first call, and the zero value and
// false on every later call.
func (t *Transport) ConfigFrame() (FlexRayConfig, bool) {
	if t.sent {
		return FlexRayConfig{}, false
	}
	t.sent = true
	return t.cfg, true
}

// TxLPDUs returns the id/payload pairs the transport should emit this
// tick: the Tx PDUs that Encode marked NeedsTx, and an empty
// "NotReceived" marker for every Rx PDU to arm the peer.
func (t *Transport) TxLPDUs() []ncodec.PDUMessage {
	var out []ncodec.PDUMessage
	for _, p := range t.net.Pdus {
		switch p.Direction {
		case DirectionTx:
			if !p.NeedsTx {
				continue
			}
			out = append(out, ncodec.PDUMessage{
				ID: p.ID, Payload: p.Payload, Transport: ncodec.TransportFlexRay,
				Meta: ncodec.PDUMeta{Variant: "lpdu"},
			})
		case DirectionRx:
			out = append(out, ncodec.PDUMessage{
				ID: p.ID, Payload: nil, Transport: ncodec.TransportFlexRay,
				Meta: ncodec.PDUMeta{Variant: "lpdu"}, // zero-length == NotReceived marker
			})
		}
	}
	return out
}

// OnStatus applies a Status PDU: if Cycle advanced, epoch_offset is
// realigned to (simulation_time mod cycle_time) so local scheduling
// tracks the bus cycle (§4.8). simTimeSteps is the current simulation
// time expressed in whole steps.
func (t *Transport) OnStatus(status FlexRayStatus, simTimeSteps int) {
	if int32(status.Cycle) == t.lastCycle {
		return
	}
	t.lastCycle = int32(status.Cycle)
	if t.cycleTimeSteps <= 0 {
		return
	}
	t.net.EpochOffsetSteps = simTimeSteps % t.cycleTimeSteps
}
