package adapter

import "github.com/boschglobal/dse.modelc-sub000/internal/marshal"

// channelMarshal binds one channel's bus-facing SignalValue store to the
// flat model-facing working vectors a step function would read and write
// (§4.6), via a marshal.Marshaller. ReadyLoopOnce round-trips through it
// every step instead of touching the channel's Val/FinalVal directly.
type channelMarshal struct {
	m        *marshal.Marshaller
	model    map[string]float64
	modelBin map[string][]byte
}

// ensureMarshal returns channelName's channelMarshal, creating it (and
// its backing Marshaller over the channel's current signal store) on
// first use.
func (a *Adapter) ensureMarshal(channelName string) *channelMarshal {
	if a.marshallers == nil {
		a.marshallers = make(map[string]*channelMarshal)
	}
	cm, ok := a.marshallers[channelName]
	if !ok {
		cm = &channelMarshal{
			m:        marshal.New(a.Model.Channel(channelName)),
			model:    make(map[string]float64),
			modelBin: make(map[string][]byte),
		}
		a.marshallers[channelName] = cm
	}
	return cm
}

// SetTransform registers signalName's per-signal linear transform
// (§4.6) on channelName's marshaller.
func (a *Adapter) SetTransform(channelName, signalName string, t marshal.Transform) {
	a.ensureMarshal(channelName).m.SetTransform(signalName, t)
}

// Marshaller returns channelName's Marshaller, creating it on first use;
// callers outside this package (e.g. a pdu.Driver binding a binary
// "frame" signal) use it to share the same reset/append discipline (I3)
// ReadyLoopOnce already drives every step.
func (a *Adapter) Marshaller(channelName string) *marshal.Marshaller {
	return a.ensureMarshal(channelName).m
}

// ModelBin returns channelName's live model-facing binary vector, the
// same map MarshalOut/MarshalIn read and write every step.
func (a *Adapter) ModelBin(channelName string) map[string][]byte {
	return a.ensureMarshal(channelName).modelBin
}

// pullModelVector runs MarshalIn for channelName: refreshes its
// model-facing vector from the channel's resolved bus values, applying
// the forward transform.
func (a *Adapter) pullModelVector(channelName string) {
	cm := a.ensureMarshal(channelName)
	cm.m.MarshalIn(cm.model, cm.modelBin)
}

// pushModelVector runs MarshalOut for channelName: commits its
// model-facing vector back into the channel's FinalVal, applying the
// inverse transform, ahead of the next outgoing delta. A passthrough
// model (no compiled step function, see cmd/dse-core) never explicitly
// Reset/Appends a binary signal, so any binary bytes MarshalOut didn't
// consume are dropped here rather than re-echoed next step.
func (a *Adapter) pushModelVector(channelName string) {
	cm := a.ensureMarshal(channelName)
	cm.m.MarshalOut(cm.model, cm.modelBin)
	for k := range cm.modelBin {
		cm.modelBin[k] = cm.modelBin[k][:0]
	}
}
