// Package signal holds the Channel/SignalValue store (§3, §4.1): the
// per-model channel -> signal-name -> value map, its delta-encoded wire
// form, and the direct-index shared-memory layout used by the SimBus side.
// Naming is case-sensitive and exact, as required by §4.1.
/*
 * Copyright (c) 2021-2023, NVIDIA CORPORATION. All rights reserved.
 */
package signal

import "github.com/boschglobal/dse.modelc-sub000/internal/debug"

// Value is a single signal's record in the bus-facing store (§3).
//
// Invariants (enforced by callers, asserted in debug builds):
//   - BinSize <= cap(Bin)
//   - BinSize == 0 means "no binary delta this step"
//   - Bin == nil implies BinSize == 0
type Value struct {
	Name     string
	UID      uint32 // 0 until resolved by the bus on first SignalIndex
	Val      float64
	FinalVal float64 // tentative value written this step; delta iff FinalVal != Val
	Bin      []byte  // growable binary buffer; len(Bin) is the buffer's capacity-in-use
	BinSize  int     // used bytes this step
}

// HasScalarDelta reports whether this signal should be included in the
// next outgoing delta's scalar column (§3: final_val != val).
func (v *Value) HasScalarDelta() bool { return v.FinalVal != v.Val }

// HasBinaryDelta reports whether this signal should be included in the
// next outgoing delta's binary column (§3).
func (v *Value) HasBinaryDelta() bool { return v.Bin != nil && v.BinSize > 0 }

// Reset commits the step's tentative value and clears the binary delta
// bookkeeping (coordinator resolution step 1: val := final_val,
// bin_size := 0).
func (v *Value) Reset() {
	v.Val = v.FinalVal
	v.BinSize = 0
}

// AppendBinary grows v.Bin as needed and appends p, advancing BinSize. It
// never shrinks capacity across steps (spec §9: capacity may be retained).
func (v *Value) AppendBinary(p []byte) {
	need := v.BinSize + len(p)
	if cap(v.Bin) < need {
		grown := make([]byte, need*2+16)
		copy(grown, v.Bin[:v.BinSize])
		v.Bin = grown
	} else if len(v.Bin) < need {
		v.Bin = v.Bin[:cap(v.Bin)]
	}
	copy(v.Bin[v.BinSize:need], p)
	v.BinSize = need
	debug.Assertf(v.BinSize <= cap(v.Bin), "signal: %s: bin_size %d exceeds bin buffer capacity %d", v.Name, v.BinSize, cap(v.Bin))
}

// BinBytes returns the currently used portion of the binary buffer.
func (v *Value) BinBytes() []byte {
	debug.Assertf(v.Bin == nil || v.BinSize <= cap(v.Bin), "signal: %s: bin_size %d exceeds bin buffer capacity %d", v.Name, v.BinSize, cap(v.Bin))
	if v.Bin == nil {
		return nil
	}
	return v.Bin[:v.BinSize]
}

// Channel is a named group of signals (§3). The derived index is an
// insertion-ordered slice that GetOrCreate extends as names are added,
// giving O(1) iteration and matching the wire's index-order requirement
// (§4.5: "index order of the channel's signal map").
type Channel struct {
	Name    string
	mapping map[string]*Value
	index   []*Value
	dirty   bool

	// Direct-index placement, valid only after BindDirect attached this
	// channel to a Region (YAML direct_index, §4.1).
	direct       *Region
	directOffset int // byte offset of this channel's first stripe
	directCount  int // stripes owned (ceil(len(index)/signalsPerStripe))
}

func NewChannel(name string) *Channel {
	return &Channel{Name: name, mapping: make(map[string]*Value)}
}

// GetOrCreate returns the named signal, creating it (with UID 0) if absent.
func (c *Channel) GetOrCreate(name string) *Value {
	if v, ok := c.mapping[name]; ok {
		return v
	}
	v := &Value{Name: name}
	c.mapping[name] = v
	c.index = append(c.index, v)
	c.dirty = true
	return v
}

// Find looks up a signal by name without creating it.
func (c *Channel) Find(name string) (*Value, bool) {
	v, ok := c.mapping[name]
	return v, ok
}

// FindByUID performs a linear scan of the index; there is no separate
// uid index.
func (c *Channel) FindByUID(uid uint32) (*Value, bool) {
	c.RefreshIndex()
	for _, v := range c.index {
		if v.UID == uid {
			return v, true
		}
	}
	return nil, false
}

// RefreshIndex rebuilds the derived index in insertion order if the
// mapping has grown since the last refresh. Callers MUST call this before
// relying on IterateByIndex/Len after any GetOrCreate that might have
// added a new name.
func (c *Channel) RefreshIndex() {
	if !c.dirty && len(c.index) == len(c.mapping) {
		return
	}
	if cap(c.index) < len(c.mapping) {
		grown := make([]*Value, 0, len(c.mapping))
		grown = append(grown, c.index...)
		c.index = grown
	}
	seen := make(map[string]bool, len(c.index))
	for _, v := range c.index {
		seen[v.Name] = true
	}
	for name, v := range c.mapping {
		if !seen[name] {
			c.index = append(c.index, v)
		}
	}
	c.dirty = false
}

func (c *Channel) Len() int { return len(c.index) }

// IterateByIndex returns the i-th signal in index order; call RefreshIndex
// first if the mapping may have grown.
func (c *Channel) IterateByIndex(i int) *Value { return c.index[i] }

// Index returns the live index slice (index order, read-only use expected).
func (c *Channel) Index() []*Value {
	c.RefreshIndex()
	return c.index
}

func (c *Channel) Destroy() {
	c.mapping = nil
	c.index = nil
}
