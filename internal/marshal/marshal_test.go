package marshal

import (
	"errors"
	"testing"

	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

func TestTransformForwardAndInverseRoundTrip(t *testing.T) {
	tr := Transform{Factor: 2, Offset: 10}
	got := tr.toAdapter(tr.toModel(5))
	if got != 5 {
		t.Fatalf("round trip = %v, want 5", got)
	}
}

func TestTransformZeroFactorIsIdentity(t *testing.T) {
	tr := Transform{}
	if got := tr.toModel(3.5); got != 3.5 {
		t.Fatalf("toModel = %v, want 3.5", got)
	}
	if got := tr.toAdapter(3.5); got != 3.5 {
		t.Fatalf("toAdapter = %v, want 3.5", got)
	}
}

func TestMarshalInAppliesForwardTransform(t *testing.T) {
	ch := signal.NewChannel("vehicle")
	ch.GetOrCreate("speed").Val = 10

	m := New(ch)
	m.SetTransform("speed", Transform{Factor: 2, Offset: 1})

	dst := make(map[string]float64)
	dstBin := make(map[string][]byte)
	m.MarshalIn(dst, dstBin)

	if dst["speed"] != 21 { // 10*2 + 1
		t.Fatalf("dst[speed] = %v, want 21", dst["speed"])
	}
}

func TestMarshalOutAppliesInverseTransform(t *testing.T) {
	ch := signal.NewChannel("vehicle")
	ch.GetOrCreate("speed")

	m := New(ch)
	m.SetTransform("speed", Transform{Factor: 2, Offset: 1})

	src := map[string]float64{"speed": 21}
	m.MarshalOut(src, make(map[string][]byte))

	v, _ := ch.Find("speed")
	if v.FinalVal != 10 { // (21-1)/2
		t.Fatalf("FinalVal = %v, want 10", v.FinalVal)
	}
}

func TestMarshalInConsumesBinaryDeltaAndZeroesAdapterSide(t *testing.T) {
	ch := signal.NewChannel("net")
	v := ch.GetOrCreate("frame")
	v.AppendBinary([]byte{0xde, 0xad})

	m := New(ch)
	dst := make(map[string]float64)
	dstBin := make(map[string][]byte)
	m.MarshalIn(dst, dstBin)

	if string(dstBin["frame"]) != "\xde\xad" {
		t.Fatalf("dstBin[frame] = %x, want dead", dstBin["frame"])
	}
	if v.BinSize != 0 {
		t.Fatalf("adapter-side BinSize = %d, want 0 after consume", v.BinSize)
	}
}

func TestMarshalOutAppendsBinaryAndZeroesModelSide(t *testing.T) {
	ch := signal.NewChannel("net")
	ch.GetOrCreate("frame")

	m := New(ch)
	srcBin := map[string][]byte{"frame": {0xbe, 0xef}}
	m.MarshalOut(make(map[string]float64), srcBin)

	v, _ := ch.Find("frame")
	if string(v.BinBytes()) != "\xbe\xef" {
		t.Fatalf("adapter-side bytes = %x, want beef", v.BinBytes())
	}
	if len(srcBin["frame"]) != 0 {
		t.Fatalf("model-side buffer not truncated after consume: %x", srcBin["frame"])
	}
}

func TestAppendWithoutResetIsProtocolError(t *testing.T) {
	ch := signal.NewChannel("net")
	m := New(ch)

	err := m.Append("frame", make(map[string][]byte), []byte{1})
	if err == nil {
		t.Fatal("expected a protocol error for append without reset")
	}
	if !errors.Is(err, xerr.ErrProto) {
		t.Fatalf("err = %v, want xerr.ErrProto", err)
	}
}

func TestAppendAfterResetSucceeds(t *testing.T) {
	ch := signal.NewChannel("net")
	m := New(ch)

	m.Reset("frame")
	dstBin := make(map[string][]byte)
	if err := m.Append("frame", dstBin, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Append after Reset: %v", err)
	}
	if string(dstBin["frame"]) != "\x01\x02\x03" {
		t.Fatalf("dstBin[frame] = %x, want 010203", dstBin["frame"])
	}
}

func TestMarshalInClearsResetBookkeeping(t *testing.T) {
	ch := signal.NewChannel("net")
	m := New(ch)
	m.Reset("frame")

	dst := make(map[string]float64)
	m.MarshalIn(dst, make(map[string][]byte))

	if err := m.Append("frame", make(map[string][]byte), []byte{1}); err == nil {
		t.Fatal("expected reset bookkeeping to be cleared by MarshalIn")
	}
}
