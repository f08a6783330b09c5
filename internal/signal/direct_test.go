package signal

import "testing"

// Reproduces spec §8 scenario 6: three channels, each with 3 doubles,
// sharing one backing region; writing channel "two" signal index 1 must
// land at byte offset 72+8, observable through any channel sharing the
// region.
func TestDirectIndexSharedRegion(t *testing.T) {
	region := NewRegion(0)

	chOne := NewChannel("one")
	for _, n := range []string{"a", "b", "c"} {
		chOne.GetOrCreate(n)
	}
	chOne.BindDirect(region)

	chTwo := NewChannel("two")
	for _, n := range []string{"d", "e", "f"} {
		chTwo.GetOrCreate(n)
	}
	chTwo.BindDirect(region)

	chThree := NewChannel("three")
	for _, n := range []string{"g", "h", "i"} {
		chThree.GetOrCreate(n)
	}
	chThree.BindDirect(region)

	if got := chTwo.DirectByteOffset(1); got != 80 {
		t.Fatalf("channel two signal index 1 byte offset = %d, want 80 (72+8)", got)
	}

	chTwo.WriteDirect(1, 3.14)

	if got := region.ReadAt(80); got != 3.14 {
		t.Fatalf("region.ReadAt(80) = %v, want 3.14", got)
	}
	// any channel bound to the same region observes the write
	if got := chOne.direct.ReadAt(80); got != 3.14 {
		t.Fatalf("chOne.direct.ReadAt(80) = %v, want 3.14", got)
	}
}

func TestChannelIndexOrderAndDelta(t *testing.T) {
	ch := NewChannel("data_channel")
	a := ch.GetOrCreate("counter")
	b := ch.GetOrCreate("flag")
	ch.RefreshIndex()

	if ch.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ch.Len())
	}
	if ch.IterateByIndex(0) != a || ch.IterateByIndex(1) != b {
		t.Fatalf("index order not insertion order")
	}

	a.FinalVal = 42
	if !a.HasScalarDelta() {
		t.Fatalf("expected scalar delta after FinalVal write")
	}
	a.Reset()
	if a.HasScalarDelta() || a.Val != 42 {
		t.Fatalf("Reset() should publish FinalVal into Val and clear delta")
	}
}

func TestAppendBinaryGrowsAndConsumes(t *testing.T) {
	v := &Value{Name: "can_bus"}
	v.AppendBinary([]byte("Hello"))
	v.AppendBinary([]byte(" World"))
	if string(v.BinBytes()) != "Hello World" {
		t.Fatalf("BinBytes() = %q", v.BinBytes())
	}
	if !v.HasBinaryDelta() {
		t.Fatalf("expected binary delta")
	}
	v.BinSize = 0 // producer marks "consumed" per §3
	if v.HasBinaryDelta() {
		t.Fatalf("expected no binary delta after consume")
	}
	// capacity retained across the consume (§9 performance note)
	if cap(v.Bin) == 0 {
		t.Fatalf("expected retained capacity")
	}
}
