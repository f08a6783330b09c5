package wire

import (
	"bytes"
	"testing"
)

func TestDeltaRoundTrip(t *testing.T) {
	d := Delta{
		UIDs: []uint32{1, 2, 3, 4, 5},
		Values: []Value{
			UintValue(7),
			IntValue(-3),
			F32Value(1.5),
			F64Value(2.718281828),
			BinValue([]byte{0xDE, 0xAD, 0xBE, 0xEF}),
		},
	}
	enc, err := EncodeDelta(d)
	if err != nil {
		t.Fatalf("EncodeDelta: %v", err)
	}
	got, err := DecodeDelta(enc)
	if err != nil {
		t.Fatalf("DecodeDelta: %v", err)
	}
	if len(got.UIDs) != len(d.UIDs) {
		t.Fatalf("uid count = %d, want %d", len(got.UIDs), len(d.UIDs))
	}
	if got.Values[2].F32 != 1.5 || got.Values[3].F64 != 2.718281828 {
		t.Fatalf("scalar values not preserved: %+v", got.Values)
	}
	if !bytes.Equal(got.Values[4].Bin, d.Values[4].Bin) {
		t.Fatalf("bin value not preserved: %v", got.Values[4].Bin)
	}
}

func TestChannelMessageRoundTrip(t *testing.T) {
	want := ChannelMessage{
		ModelUID:    42,
		ChannelName: "data_channel",
		Token:       9,
		Type:        MsgSignalWrite,
		Delta: Delta{
			UIDs:   []uint32{100, 200},
			Values: []Value{F64Value(1.0), F64Value(-1.0)},
		},
	}
	body, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalChannelMessage(body)
	if err != nil {
		t.Fatalf("UnmarshalChannelMessage: %v", err)
	}
	if got.ModelUID != want.ModelUID || got.ChannelName != want.ChannelName || got.Token != want.Token {
		t.Fatalf("envelope mismatch: %+v", got)
	}
	if len(got.Delta.UIDs) != 2 || got.Delta.Values[1].F64 != -1.0 {
		t.Fatalf("delta mismatch: %+v", got.Delta)
	}
}

func TestModelReadyOptionalWrite(t *testing.T) {
	want := ChannelMessage{
		ModelUID:    1,
		ChannelName: "ch",
		Type:        MsgModelReady,
		ModelTime:   1.5,
		HasWrite:    false,
	}
	body, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalChannelMessage(body)
	if err != nil {
		t.Fatalf("UnmarshalChannelMessage: %v", err)
	}
	if got.HasWrite {
		t.Fatalf("expected HasWrite=false round trip")
	}
	if got.ModelTime != 1.5 {
		t.Fatalf("ModelTime = %v, want 1.5", got.ModelTime)
	}
}

func TestNotifyMessageRoundTrip(t *testing.T) {
	want := NotifyMessage{
		ModelTime:    10.0,
		ScheduleTime: 10.5,
		ModelUIDs:    []uint32{1, 2, 3},
		Vectors: []SignalVector{
			{ChannelName: "ch1", Delta: Delta{UIDs: []uint32{1}, Values: []Value{F64Value(3.14)}}},
			{ChannelName: "ch2", Delta: Delta{UIDs: []uint32{2}, Values: []Value{F64Value(2.71)}}},
		},
		HasBenchmark: true,
		Benchmark:    BenchmarkCounters{ExecuteTime: 0.1, ProcessingTime: 0.2, NetworkTime: 0.3, BusWaitTime: 0.4},
	}
	body, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalNotifyMessage(body)
	if err != nil {
		t.Fatalf("UnmarshalNotifyMessage: %v", err)
	}
	if len(got.Vectors) != 2 || got.Vectors[1].ChannelName != "ch2" {
		t.Fatalf("vectors mismatch: %+v", got.Vectors)
	}
	if !got.HasBenchmark || got.Benchmark.NetworkTime != 0.3 {
		t.Fatalf("benchmark mismatch: %+v", got.Benchmark)
	}
}

func TestStreamFramesMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStreamWriter(&buf)

	if err := sw.WriteChannelMessage(ChannelMessage{ModelUID: 1, ChannelName: "a", Type: MsgModelExit}); err != nil {
		t.Fatalf("WriteChannelMessage: %v", err)
	}
	if err := sw.WriteNotifyMessage(NotifyMessage{ModelTime: 1}); err != nil {
		t.Fatalf("WriteNotifyMessage: %v", err)
	}

	sr := NewStreamReader(&buf)
	ident1, ch, _, err := sr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage 1: %v", err)
	}
	if ident1 != IdentSBCH || ch.Type != MsgModelExit {
		t.Fatalf("frame 1 mismatch: %q %+v", ident1, ch)
	}

	ident2, _, no, err := sr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage 2: %v", err)
	}
	if ident2 != IdentSBNO || no.ModelTime != 1 {
		t.Fatalf("frame 2 mismatch: %q %+v", ident2, no)
	}

	if _, _, _, err := sr.ReadMessage(); err == nil {
		t.Fatalf("expected error/EOF at stream end")
	}
}

func TestZeroSizePrefixAbortsStream(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	sr := NewStreamReader(buf)
	if _, _, err := sr.ReadFrame(); err == nil {
		t.Fatalf("expected zero-size prefix to abort the stream")
	}
}
