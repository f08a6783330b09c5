package adapter

import (
	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
)

// collectDelta builds a wire.Delta from channel c's currently dirty
// signals, in index order (§4.5: "index order of the channel's signal
// map"). A signal with a binary delta takes priority over its scalar
// delta in the same pass (binary and scalar deltas on one signal in one
// step are not expected together in practice).
func collectDelta(c *signal.Channel) wire.Delta {
	c.RefreshIndex()
	var d wire.Delta
	for i := 0; i < c.Len(); i++ {
		v := c.IterateByIndex(i)
		switch {
		case v.HasBinaryDelta():
			d.UIDs = append(d.UIDs, v.UID)
			d.Values = append(d.Values, wire.BinValue(v.BinBytes()))
		case v.HasScalarDelta():
			d.UIDs = append(d.UIDs, v.UID)
			d.Values = append(d.Values, wire.F64Value(v.FinalVal))
		}
	}
	return d
}

// applyDeltaToChannel commits a decoded delta into channel c's local
// values, matched by UID. When resetFinal is set, FinalVal is set equal
// to the new Val so the next outgoing delta starts from a clean baseline
// (§4.4's ModelStart/SignalValue dispatch: "updates val and resets
// final_val := val so no phantom delta on next send").
func applyDeltaToChannel(c *signal.Channel, d wire.Delta, resetFinal bool) {
	for i, uid := range d.UIDs {
		v, ok := c.FindByUID(uid)
		if !ok {
			// stray delta for an unknown UID: logged and discarded (§4.5)
			nlog.Warningf("adapter: stray delta for unknown uid %d on channel %q", uid, c.Name)
			continue
		}
		val := d.Values[i]
		switch val.Kind {
		case wire.KindF64:
			v.Val = val.F64
		case wire.KindF32:
			v.Val = float64(val.F32)
		case wire.KindUint:
			v.Val = float64(val.U)
		case wire.KindInt:
			v.Val = float64(val.I)
		case wire.KindBin:
			v.Bin = append(v.Bin[:0], val.Bin...)
			v.BinSize = len(val.Bin)
		}
		if resetFinal {
			v.FinalVal = v.Val
		}
	}
}
