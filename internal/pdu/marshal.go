package pdu

import "github.com/boschglobal/dse.modelc-sub000/internal/signal"

// SignalMap pairs transform-matrix row indices with a model channel's
// signals by name (§4.8 MarshalSignalMap). Built once after Parse by
// BuildSignalMap, which maps every matrix row.
type SignalMap struct {
	rowToValue []*signal.Value // indexed by matrix row; nil if unmapped
}

// BuildSignalMap resolves every matrix row's SignalName against channel,
// creating the signal if the channel doesn't have it yet (so a PDU
// network can originate signals a model never explicitly declared).
func BuildSignalMap(net *Network, channel *signal.Channel) *SignalMap {
	sm := &SignalMap{rowToValue: make([]*signal.Value, len(net.Matrix.SignalName))}
	for i, name := range net.Matrix.SignalName {
		sm.rowToValue[i] = channel.GetOrCreate(name)
	}
	return sm
}

// ToSignalVector copies the matrix's phys column into the model's signal
// vector (post Rx-decode marshal, §4.8): sets FinalVal so the adapter's
// next outgoing delta carries it, then clears every PDU's UpdateSignals.
func (sm *SignalMap) ToSignalVector(net *Network) {
	for i, v := range sm.rowToValue {
		if v == nil {
			continue
		}
		v.FinalVal = net.Matrix.Phys[i]
	}
	for _, p := range net.Pdus {
		p.UpdateSignals = false
	}
}

// FromSignalVector copies the model's committed signal values back into
// the matrix's phys column (pre Tx-encode marshal, §4.8).
func (sm *SignalMap) FromSignalVector(net *Network) {
	for i, v := range sm.rowToValue {
		if v == nil {
			continue
		}
		net.Matrix.Phys[i] = v.Val
	}
}
