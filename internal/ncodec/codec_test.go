package ncodec

import (
	"errors"
	"testing"

	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// I6: reset -> write -> flush -> (seek 0 SET) -> read -> read returns the
// written message on first read and -ENOMSG thereafter; tell() after
// write+flush equals the flushed byte count.
func TestCodecWriteReadRoundTripAndExhaustion(t *testing.T) {
	stream := NewStream()
	stream.Seek(0, SeekReset)
	c := New(stream)

	msg := Message{Kind: KindCANFrame, CAN: CANFrame{
		FrameID: 0x10, FrameType: 0, Buffer: []byte("Hello World"),
		Sender: Sender{BusID: 1, NodeID: 2},
	}}
	if err := c.Write(msg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	wantTell := c.Tell()
	if wantTell != len(stream.Bytes()) {
		t.Fatalf("Tell() = %d, want %d (flushed byte count)", wantTell, len(stream.Bytes()))
	}

	if _, err := c.Seek(0, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	got, err := c.Read()
	if err != nil {
		t.Fatalf("first Read: %v", err)
	}
	if got.CAN.FrameID != 0x10 || string(got.CAN.Buffer) != "Hello World" {
		t.Fatalf("decoded message mismatch: %+v", got.CAN)
	}

	_, err = c.Read()
	if !errors.Is(err, xerr.ErrNoMsg) {
		t.Fatalf("second Read err = %v, want ErrNoMsg", err)
	}
}

// Scenario 3: model B (different node_id) reads A's frame; A's own echo
// reads are suppressed.
func TestEchoSuppression(t *testing.T) {
	stream := NewStream()
	writer := New(stream)
	writer.Config("bus_id", "1")
	writer.Config("node_id", "5")

	msg := Message{Kind: KindCANFrame, CAN: CANFrame{
		FrameID: 0x10, Buffer: []byte("Hello World"),
		Sender: Sender{BusID: 1, NodeID: 5},
	}}
	if err := writer.Write(msg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// the writer's own codec, same identity, must not see its own frame
	writer.Seek(0, SeekSet)
	if _, err := writer.Read(); !errors.Is(err, xerr.ErrNoMsg) {
		t.Fatalf("writer echo not suppressed: err=%v", err)
	}

	reader := New(stream)
	reader.Config("bus_id", "1")
	reader.Config("node_id", "9")
	reader.Seek(0, SeekSet)
	got, err := reader.Read()
	if err != nil {
		t.Fatalf("reader Read: %v", err)
	}
	if string(got.CAN.Buffer) != "Hello World" || got.CAN.Sender.NodeID == 9 {
		t.Fatalf("reader got wrong frame: %+v", got.CAN)
	}
}

func TestStatReturnsConfiguredPairsInOrder(t *testing.T) {
	stream := NewStream()
	c := New(stream)
	c.Config("node_id", "5")
	c.Config("swc_id", "7")

	s0, err := c.Stat(0)
	if err != nil || s0.Name != "node_id" || s0.Value != "5" {
		t.Fatalf("Stat(0) = %+v, err=%v", s0, err)
	}
	s1, err := c.Stat(1)
	if err != nil || s1.Name != "swc_id" || s1.Value != "7" {
		t.Fatalf("Stat(1) = %+v, err=%v", s1, err)
	}
	if _, err := c.Stat(2); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}
