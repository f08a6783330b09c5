// Package wire implements the SimBus wire protocol (§4.2): the SBCH/SBNO
// message framing and the compact (UIDs, values) embedded payload carried
// inside SignalRead/SignalValue/SignalWrite and Notify's per-channel
// SignalVector entries. The embedded payload is MessagePack, encoded and
// decoded with tinylib/msgp's low-level Append*/Read*Bytes API the same
// way the teacher hand-rolls msgpack in xact/xs/lso.go — no codegen.
/*
 * Copyright (c) 2021-2023, NVIDIA CORPORATION. All rights reserved.
 */
package wire

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// ValueKind tags the dynamic type of one entry in an embedded delta's
// value array (§4.2): unsigned int, signed int, 32-bit float, 64-bit
// float, or a length-prefixed byte blob.
type ValueKind byte

const (
	KindUint ValueKind = iota
	KindInt
	KindF32
	KindF64
	KindBin
)

// Value is one (uid-paired) entry of an embedded delta payload.
type Value struct {
	Kind ValueKind
	U    uint64
	I    int64
	F32  float32
	F64  float64
	Bin  []byte
}

func UintValue(u uint64) Value { return Value{Kind: KindUint, U: u} }
func IntValue(i int64) Value   { return Value{Kind: KindInt, I: i} }
func F32Value(f float32) Value { return Value{Kind: KindF32, F32: f} }
func F64Value(f float64) Value { return Value{Kind: KindF64, F64: f} }
func BinValue(b []byte) Value  { return Value{Kind: KindBin, Bin: b} }

// Delta is a decoded embedded payload: parallel UID/Value slices where the
// Nth UID corresponds to the Nth value (§4.2). Mixing scalar and binary
// values in one delta is permitted.
type Delta struct {
	UIDs   []uint32
	Values []Value
}

// EncodeDelta serializes d as the two-element msgpack array the spec
// describes: [ [uid...], [value...] ].
func EncodeDelta(d Delta) ([]byte, error) {
	if len(d.UIDs) != len(d.Values) {
		return nil, fmt.Errorf("wire: %d uids but %d values", len(d.UIDs), len(d.Values))
	}
	b := msgp.AppendArrayHeader(nil, 2)
	b = msgp.AppendArrayHeader(b, uint32(len(d.UIDs)))
	for _, uid := range d.UIDs {
		b = msgp.AppendUint32(b, uid)
	}
	b = msgp.AppendArrayHeader(b, uint32(len(d.Values)))
	for _, v := range d.Values {
		switch v.Kind {
		case KindUint:
			b = msgp.AppendUint64(b, v.U)
		case KindInt:
			b = msgp.AppendInt64(b, v.I)
		case KindF32:
			b = msgp.AppendFloat32(b, v.F32)
		case KindF64:
			b = msgp.AppendFloat64(b, v.F64)
		case KindBin:
			b = msgp.AppendBytes(b, v.Bin)
		default:
			return nil, fmt.Errorf("wire: unknown value kind %d", v.Kind)
		}
	}
	return b, nil
}

// DecodeDelta parses an embedded payload produced by EncodeDelta. A value
// whose msgpack type is not one of {UInt, Int, F32, F64, Bin} is a
// protocol error per §7 and is reported without partial results.
func DecodeDelta(data []byte) (Delta, error) {
	n, rest, err := msgp.ReadArrayHeaderBytes(data)
	if err != nil {
		return Delta{}, fmt.Errorf("wire: root array: %w", err)
	}
	if n != 2 {
		return Delta{}, fmt.Errorf("wire: embedded payload root must have 2 elements, got %d", n)
	}

	nUID, rest, err := msgp.ReadArrayHeaderBytes(rest)
	if err != nil {
		return Delta{}, fmt.Errorf("wire: uid array: %w", err)
	}
	uids := make([]uint32, nUID)
	for i := range uids {
		uids[i], rest, err = msgp.ReadUint32Bytes(rest)
		if err != nil {
			return Delta{}, fmt.Errorf("wire: uid[%d]: %w", i, err)
		}
	}

	nVal, rest, err := msgp.ReadArrayHeaderBytes(rest)
	if err != nil {
		return Delta{}, fmt.Errorf("wire: value array: %w", err)
	}
	if nVal != nUID {
		return Delta{}, fmt.Errorf("wire: %d uids but %d values", nUID, nVal)
	}

	values := make([]Value, nVal)
	for i := range values {
		switch msgp.NextType(rest) {
		case msgp.UintType:
			values[i].Kind = KindUint
			values[i].U, rest, err = msgp.ReadUint64Bytes(rest)
		case msgp.IntType:
			values[i].Kind = KindInt
			values[i].I, rest, err = msgp.ReadInt64Bytes(rest)
		case msgp.Float32Type:
			values[i].Kind = KindF32
			values[i].F32, rest, err = msgp.ReadFloat32Bytes(rest)
		case msgp.Float64Type:
			values[i].Kind = KindF64
			values[i].F64, rest, err = msgp.ReadFloat64Bytes(rest)
		case msgp.BinType:
			var bts []byte
			bts, rest, err = msgp.ReadBytesBytes(rest, nil)
			values[i].Kind = KindBin
			values[i].Bin = bts
		default:
			return Delta{}, fmt.Errorf("wire: value[%d]: %w", i, errUnsupportedValueType)
		}
		if err != nil {
			return Delta{}, fmt.Errorf("wire: value[%d]: %w", i, err)
		}
	}
	return Delta{UIDs: uids, Values: values}, nil
}

var errUnsupportedValueType = fmt.Errorf("value type not in {UInt, Int, F32, F64, Bin}")
