// Package simbus implements the SimBus coordinator state machine (§4.5):
// the bus-side aggregation of every model's channels, the register/ready
// set bookkeeping, and the Kahan-compensated resolution algorithm that
// advances bus_time and broadcasts the resolved Notify.
package simbus

import (
	"sort"
	"sync"

	"github.com/boschglobal/dse.modelc-sub000/internal/idgen"
	"github.com/boschglobal/dse.modelc-sub000/internal/ksum"
	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
)

// busChannel is one channel's bus-side state: the register/ready sets
// keyed by model_uid, and the committed signal store (§4.5).
type busChannel struct {
	name        string
	registerSet map[uint32]struct{}
	readySet    map[uint32]struct{}
	store       *signal.Channel
}

// Coordinator is the bus_adapter_model of §4.5: aggregates all channels
// across all models.
type Coordinator struct {
	mu           sync.Mutex
	channels     map[string]*busChannel
	channelOrder []string
	busTime      ksum.Accumulator
	stepSize     float64
}

func NewCoordinator(initialTime float64) *Coordinator {
	return &Coordinator{
		channels: make(map[string]*busChannel),
		busTime:  ksum.NewAccumulator(initialTime),
	}
}

func (c *Coordinator) BusTime() float64 { return c.busTime.Value() }

func (c *Coordinator) ensureChannel(name string) *busChannel {
	if bc, ok := c.channels[name]; ok {
		return bc
	}
	bc := &busChannel{
		name:        name,
		registerSet: make(map[uint32]struct{}),
		readySet:    make(map[uint32]struct{}),
		store:       signal.NewChannel(name),
	}
	c.channels[name] = bc
	c.channelOrder = append(c.channelOrder, name)
	return bc
}

// HandleModelRegister processes a ModelRegister and returns the ACK to
// send back on the same channel (§4.5).
func (c *Coordinator) HandleModelRegister(msg wire.ChannelMessage) wire.ChannelMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	bc := c.ensureChannel(msg.ChannelName)
	if _, already := bc.registerSet[msg.ModelUID]; !already {
		bc.registerSet[msg.ModelUID] = struct{}{}
	}
	if c.stepSize == 0 {
		c.stepSize = msg.StepSize
	} else if msg.StepSize != 0 && msg.StepSize != c.stepSize {
		nlog.Warningf("simbus: model %d registered channel %q with step_size %v, bus step_size is %v",
			msg.ModelUID, msg.ChannelName, msg.StepSize, c.stepSize)
	}
	if c.networkComplete() {
		nlog.Infof("simbus: network complete (%d channels)", len(c.channels))
	}
	return wire.ChannelMessage{
		ModelUID: msg.ModelUID, ChannelName: msg.ChannelName, Token: msg.Token,
		Type: wire.MsgModelRegister,
	}
}

// networkComplete reports whether every channel has at least one
// registered model; used only for
// the informational "network complete" log line (§4.5), not for gating
// resolution (resolution's own gate is tryResolveLocked).
func (c *Coordinator) networkComplete() bool {
	if len(c.channels) == 0 {
		return false
	}
	for _, bc := range c.channels {
		if len(bc.registerSet) == 0 {
			return false
		}
	}
	return true
}

// HandleSignalIndex resolves every requested name to a UID (assigning a
// deterministic hash-based UID on first sight) and returns the reply.
func (c *Coordinator) HandleSignalIndex(msg wire.ChannelMessage) wire.ChannelMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	bc := c.ensureChannel(msg.ChannelName)
	lookups := make([]wire.SignalLookup, len(msg.Lookups))
	for i, l := range msg.Lookups {
		v := bc.store.GetOrCreate(l.Name)
		if v.UID == 0 {
			v.UID = idgen.SignalUID(l.Name)
		}
		lookups[i] = wire.SignalLookup{Name: l.Name, UID: v.UID}
	}
	return wire.ChannelMessage{
		ModelUID: msg.ModelUID, ChannelName: msg.ChannelName, Token: msg.Token,
		Type: wire.MsgSignalIndex, Lookups: lookups,
	}
}

// HandleSignalRead replies with the current (uid, val|bin) for every
// requested UID; binary signals reply with an empty blob (§4.5: bulk
// binary content is reserved for resolved ModelStart/Notify broadcasts).
func (c *Coordinator) HandleSignalRead(msg wire.ChannelMessage) wire.ChannelMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	bc := c.ensureChannel(msg.ChannelName)
	var uids []uint32
	var values []wire.Value
	for _, uid := range msg.Delta.UIDs {
		v, ok := bc.store.FindByUID(uid)
		if !ok {
			continue
		}
		uids = append(uids, uid)
		if v.Bin != nil {
			values = append(values, wire.BinValue(nil))
		} else {
			values = append(values, wire.F64Value(v.Val))
		}
	}
	return wire.ChannelMessage{
		ModelUID: msg.ModelUID, ChannelName: msg.ChannelName, Token: msg.Token,
		Type: wire.MsgSignalValue, Delta: wire.Delta{UIDs: uids, Values: values},
	}
}

// HandleSignalWrite applies a legacy SignalWrite's deltas into
// final_val/bin (§4.5); it does not by itself mark anything ready.
func (c *Coordinator) HandleSignalWrite(msg wire.ChannelMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bc := c.ensureChannel(msg.ChannelName)
	applyWriteDelta(bc.store, msg.Delta)
}

// HandleModelExit removes modelUID from every set.
func (c *Coordinator) HandleModelExit(modelUID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, bc := range c.channels {
		delete(bc.registerSet, modelUID)
		delete(bc.readySet, modelUID)
	}
}

// HandleReadyNotify processes a model's aggregated Notify (§4.4
// READY_LOOP step a / §4.5 "ModelReady / Notify"): applies every
// channel's embedded delta and marks the model ready on each addressed
// channel. If this completes resolution across every channel, the
// resolved broadcast Notify is returned.
func (c *Coordinator) HandleReadyNotify(modelUID uint32, msg wire.NotifyMessage) (*wire.NotifyMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range msg.Vectors {
		bc := c.ensureChannel(v.ChannelName)
		applyWriteDelta(bc.store, v.Delta)
		bc.readySet[modelUID] = struct{}{}
	}
	return c.tryResolveLocked()
}

// tryResolveLocked implements §4.5's Resolution algorithm. Caller must
// hold c.mu.
func (c *Coordinator) tryResolveLocked() (*wire.NotifyMessage, bool) {
	if len(c.channels) == 0 {
		return nil, false
	}
	for _, name := range c.channelOrder {
		bc := c.channels[name]
		if !setsEqual(bc.readySet, bc.registerSet) || len(bc.registerSet) == 0 {
			return nil, false
		}
	}

	modelSet := make(map[uint32]struct{})
	var vectors []wire.SignalVector
	for _, name := range c.channelOrder {
		bc := c.channels[name]
		for uid := range bc.registerSet {
			modelSet[uid] = struct{}{}
		}

		bc.store.RefreshIndex()
		n := bc.store.Len()
		uids := make([]uint32, 0, n)
		values := make([]wire.Value, 0, n)
		for i := 0; i < n; i++ {
			v := bc.store.IterateByIndex(i)
			v.Val = v.FinalVal // 1. commit val := final_val
			uids = append(uids, v.UID)
			if v.Bin != nil {
				values = append(values, wire.BinValue(append([]byte(nil), v.BinBytes()...)))
			} else {
				values = append(values, wire.F64Value(v.Val))
			}
			v.BinSize = 0 // 1. bin_size := 0 (published)
		}
		vectors = append(vectors, wire.SignalVector{ChannelName: name, Delta: wire.Delta{UIDs: uids, Values: values}})
	}

	// 2. Advance bus time via Kahan summation — the sole progression rule.
	c.busTime.Add(c.stepSize)
	modelTime := c.busTime.Value()
	scheduleTime := modelTime + c.stepSize

	models := make([]uint32, 0, len(modelSet))
	for uid := range modelSet {
		models = append(models, uid)
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })

	// 5. Empty the ready sets for the next step's fresh baseline.
	for _, name := range c.channelOrder {
		c.channels[name].readySet = make(map[uint32]struct{})
	}

	notify := &wire.NotifyMessage{ModelTime: modelTime, ScheduleTime: scheduleTime, ModelUIDs: models, Vectors: vectors}
	return notify, true
}

func setsEqual(a, b map[uint32]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// applyWriteDelta commits a decoded delta into a bus channel's
// final_val/bin state, matched by UID. Unmatched UIDs are logged and
// discarded (§4.5 failure model).
func applyWriteDelta(store *signal.Channel, d wire.Delta) {
	for i, uid := range d.UIDs {
		v, ok := store.FindByUID(uid)
		if !ok {
			nlog.Warningf("simbus: stray delta for unknown uid %d on channel %q", uid, store.Name)
			continue
		}
		val := d.Values[i]
		switch val.Kind {
		case wire.KindF64:
			v.FinalVal = val.F64
		case wire.KindF32:
			v.FinalVal = float64(val.F32)
		case wire.KindUint:
			v.FinalVal = float64(val.U)
		case wire.KindInt:
			v.FinalVal = float64(val.I)
		case wire.KindBin:
			v.AppendBinary(val.Bin)
		}
	}
}
