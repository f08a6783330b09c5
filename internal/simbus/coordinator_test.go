package simbus

import (
	"testing"

	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
)

// Scenario 1: single model loopback. One model registers data_channel
// with one scalar counter; after 5 resolved steps bus_time == 0.0025.
func TestSingleModelLoopbackBusTimeAdvances(t *testing.T) {
	c := NewCoordinator(0)
	const modelUID = uint32(1)

	reg := c.HandleModelRegister(wire.ChannelMessage{
		ModelUID: modelUID, ChannelName: "data_channel", Token: 1,
		Type: wire.MsgModelRegister, StepSize: 0.0005,
	})
	if reg.Type != wire.MsgModelRegister || reg.Token != 1 {
		t.Fatalf("unexpected register ack: %+v", reg)
	}

	idx := c.HandleSignalIndex(wire.ChannelMessage{
		ModelUID: modelUID, ChannelName: "data_channel", Token: 2,
		Type: wire.MsgSignalIndex, Lookups: []wire.SignalLookup{{Name: "counter"}},
	})
	if len(idx.Lookups) != 1 || idx.Lookups[0].UID == 0 {
		t.Fatalf("unexpected index reply: %+v", idx)
	}
	uid := idx.Lookups[0].UID

	for step := 0; step < 5; step++ {
		notify := wire.NotifyMessage{
			ModelUIDs: []uint32{modelUID},
			Vectors: []wire.SignalVector{
				{ChannelName: "data_channel", Delta: wire.Delta{UIDs: []uint32{uid}, Values: []wire.Value{wire.F64Value(float64(step))}}},
			},
		}
		resolved, ok := c.HandleReadyNotify(modelUID, notify)
		if !ok {
			t.Fatalf("step %d: expected resolution with one registered model", step)
		}
		if len(resolved.Vectors) != 1 || len(resolved.Vectors[0].Delta.Values) != 1 {
			t.Fatalf("step %d: unexpected resolved vectors: %+v", step, resolved.Vectors)
		}
		got := resolved.Vectors[0].Delta.Values[0].F64
		if got != float64(step) {
			t.Fatalf("step %d: resolved counter = %v, want %v", step, got, step)
		}
	}
	if got := c.BusTime(); got < 0.0025-1e-12 || got > 0.0025+1e-12 {
		t.Fatalf("bus_time = %v, want 0.0025", got)
	}
}

// Scenario 2: two-model scalar rendezvous sharing channel link/x.
func TestTwoModelRendezvous(t *testing.T) {
	c := NewCoordinator(0)
	const modelA, modelB = uint32(1), uint32(2)

	for _, uid := range []uint32{modelA, modelB} {
		c.HandleModelRegister(wire.ChannelMessage{
			ModelUID: uid, ChannelName: "link", Token: 1, Type: wire.MsgModelRegister, StepSize: 0.001,
		})
	}
	idx := c.HandleSignalIndex(wire.ChannelMessage{
		ModelUID: modelA, ChannelName: "link", Token: 2,
		Type: wire.MsgSignalIndex, Lookups: []wire.SignalLookup{{Name: "x"}},
	})
	uid := idx.Lookups[0].UID

	// step 0: A writes x=42, B writes nothing.
	resolved, ok := c.HandleReadyNotify(modelA, wire.NotifyMessage{
		ModelUIDs: []uint32{modelA},
		Vectors:   []wire.SignalVector{{ChannelName: "link", Delta: wire.Delta{UIDs: []uint32{uid}, Values: []wire.Value{wire.F64Value(42)}}}},
	})
	if ok {
		t.Fatalf("should not resolve until B is also ready")
	}
	resolved, ok = c.HandleReadyNotify(modelB, wire.NotifyMessage{
		ModelUIDs: []uint32{modelB},
		Vectors:   []wire.SignalVector{{ChannelName: "link"}},
	})
	if !ok {
		t.Fatalf("expected resolution once both models are ready")
	}
	if resolved.Vectors[0].Delta.Values[0].F64 != 42 {
		t.Fatalf("resolved x = %v, want 42", resolved.Vectors[0].Delta.Values[0].F64)
	}
}

// I7: resolution idempotence — bus_time still advances by exactly one
// step_size even when no model writes a delta.
func TestResolutionAdvancesWithNoWrites(t *testing.T) {
	c := NewCoordinator(10.0)
	const modelUID = uint32(1)
	c.HandleModelRegister(wire.ChannelMessage{
		ModelUID: modelUID, ChannelName: "ch", Type: wire.MsgModelRegister, StepSize: 0.25,
	})
	resolved, ok := c.HandleReadyNotify(modelUID, wire.NotifyMessage{
		ModelUIDs: []uint32{modelUID},
		Vectors:   []wire.SignalVector{{ChannelName: "ch"}},
	})
	if !ok {
		t.Fatalf("expected resolution")
	}
	if resolved.ModelTime != 10.25 {
		t.Fatalf("ModelTime = %v, want 10.25", resolved.ModelTime)
	}
}

// I3-adjacent: a stray delta for an unknown UID is discarded, not fatal.
func TestStrayDeltaForUnknownUIDIsDiscarded(t *testing.T) {
	c := NewCoordinator(0)
	const modelUID = uint32(1)
	c.HandleModelRegister(wire.ChannelMessage{ModelUID: modelUID, ChannelName: "ch", Type: wire.MsgModelRegister, StepSize: 0.1})
	_, ok := c.HandleReadyNotify(modelUID, wire.NotifyMessage{
		ModelUIDs: []uint32{modelUID},
		Vectors:   []wire.SignalVector{{ChannelName: "ch", Delta: wire.Delta{UIDs: []uint32{999}, Values: []wire.Value{wire.F64Value(1)}}}},
	})
	if !ok {
		t.Fatalf("expected resolution despite stray uid")
	}
}
