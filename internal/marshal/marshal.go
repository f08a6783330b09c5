// Package marshal implements the signal marshaller (§4.6): bidirectional
// copy between a model's local working vector and the adapter's
// SignalValue store, applying per-signal linear transforms and the
// binary append/reset-echo-protection discipline.
package marshal

import (
	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// Transform is a per-signal linear transform {factor, offset} (§4.6). A
// zero factor is invalid and treated as identity.
type Transform struct {
	Factor float64
	Offset float64
}

func (t Transform) toModel(val float64) float64 {
	if t.Factor == 0 {
		return val
	}
	return val*t.Factor + t.Offset
}

func (t Transform) toAdapter(modelVal float64) float64 {
	if t.Factor == 0 {
		return modelVal
	}
	return (modelVal - t.Offset) / t.Factor
}

// Marshaller binds a channel's SignalValue store to a model function's
// flat working vectors, per signal index (§4.6).
type Marshaller struct {
	channel    *signal.Channel
	transforms map[string]Transform // by signal name; absent == identity

	// resetCalled tracks, per step, which signal indices have had
	// reset(i) invoked before append(i, ...) (§4.6 binary reset discipline,
	// I3). Cleared on every inbound marshal.
	resetCalled map[string]bool
}

func New(channel *signal.Channel) *Marshaller {
	return &Marshaller{channel: channel, transforms: make(map[string]Transform), resetCalled: make(map[string]bool)}
}

func (m *Marshaller) SetTransform(signalName string, t Transform) { m.transforms[signalName] = t }

func (m *Marshaller) transformFor(name string) Transform {
	if t, ok := m.transforms[name]; ok {
		return t
	}
	return Transform{}
}

// MarshalIn copies ADAPTER -> MODEL: SignalValue.Val into dst, keyed by
// signal name, applying the forward transform; for binary signals it
// appends the adapter's buffer onto dst's growable buffer and consumes
// the adapter side (adapter.bin_size = 0).
func (m *Marshaller) MarshalIn(dst map[string]float64, dstBin map[string][]byte) {
	m.channel.RefreshIndex()
	for i := 0; i < m.channel.Len(); i++ {
		v := m.channel.IterateByIndex(i)
		if v.HasBinaryDelta() {
			dstBin[v.Name] = append(dstBin[v.Name], v.BinBytes()...)
			v.BinSize = 0
			continue
		}
		dst[v.Name] = m.transformFor(v.Name).toModel(v.Val)
	}
	m.resetCalled = make(map[string]bool)
}

// MarshalOut copies MODEL -> ADAPTER: src into SignalValue.FinalVal,
// applying the inverse transform; for binary, src's model-side buffer is
// appended onto the adapter's and the model-side length is zeroed to
// mark consumed.
func (m *Marshaller) MarshalOut(src map[string]float64, srcBin map[string][]byte) {
	m.channel.RefreshIndex()
	for i := 0; i < m.channel.Len(); i++ {
		v := m.channel.IterateByIndex(i)
		if bin, ok := srcBin[v.Name]; ok && len(bin) > 0 {
			v.AppendBinary(bin)
			srcBin[v.Name] = srcBin[v.Name][:0]
			continue
		}
		if val, ok := src[v.Name]; ok {
			v.FinalVal = m.transformFor(v.Name).toAdapter(val)
		}
	}
}

// Reset marks signalName's binary buffer as reset for this step,
// satisfying the "reset before append" discipline (§4.6, I3). Call before
// any Append for the same signal within a step.
func (m *Marshaller) Reset(signalName string) {
	m.resetCalled[signalName] = true
}

// Append grows signalName's model-side binary buffer; calling it without
// a preceding Reset in the same step is a protocol violation (I3): it is
// logged at ERROR and reported as xerr.ErrProto, but the step proceeds.
func (m *Marshaller) Append(signalName string, dstBin map[string][]byte, p []byte) error {
	if !m.resetCalled[signalName] {
		err := xerr.Protof("marshal: append(%q) without a preceding reset", signalName)
		nlog.Errorf("%v", err)
		return err
	}
	dstBin[signalName] = append(dstBin[signalName], p...)
	return nil
}
