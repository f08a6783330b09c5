package pdu

import (
	"testing"

	"github.com/boschglobal/dse.modelc-sub000/internal/config"
)

func f64p(f float64) *float64 { return &f }

func sampleNetworkDoc() *config.Network {
	return &config.Network{
		Kind:     "Network",
		Metadata: config.Metadata{Name: "net1"},
		Spec: config.NetworkSpec{
			Schedule: config.NetworkSchedule{StepSize: 0.001},
			Pdus: []config.PduYAML{
				{
					Name: "tx_pdu", ID: 0x100, Length: 8, Direction: "tx",
					Schedule: config.ScheduleYAML{Interval: 0.01, Phase: 0},
					Signals: []config.PduSignalYAML{
						{Name: "speed", StartBit: 0, LengthBits: 16, Factor: f64p(0.1), Offset: f64p(0), Min: f64p(0), Max: f64p(6500)},
					},
				},
				{
					Name: "rx_pdu", ID: 0x200, Length: 8, Direction: "rx",
					Schedule: config.ScheduleYAML{Interval: 0, Phase: 0},
					Signals: []config.PduSignalYAML{
						{Name: "temp", StartBit: 16, LengthBits: 8, Factor: f64p(1), Offset: f64p(-40), Min: f64p(-40), Max: f64p(200)},
					},
				},
			},
		},
	}
}

func TestParseOrdersRxBeforeTx(t *testing.T) {
	net, err := Parse(sampleNetworkDoc())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(net.Pdus) != 2 {
		t.Fatalf("want 2 pdus, got %d", len(net.Pdus))
	}
	if net.Pdus[0].Direction != DirectionRx || net.Pdus[1].Direction != DirectionTx {
		t.Fatalf("expected rx before tx, got %v then %v", net.Pdus[0].Direction, net.Pdus[1].Direction)
	}
}

func TestPackUnpackBitsRoundTrip(t *testing.T) {
	payload := make([]byte, 8)
	packBits(payload, 4, 12, 0xABC)
	got := unpackBits(payload, 4, 12)
	if got != 0xABC {
		t.Fatalf("unpackBits = %#x, want 0xabc", got)
	}
}

func TestEncodeScalesAndPacksWithinRange(t *testing.T) {
	net, err := Parse(sampleNetworkDoc())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	net.Tick(0) // interval=0.01 step_size=0.001 -> interval 10 steps, phase 0: aligned at step 0
	txPdu := net.Pdus[1]
	net.Matrix.Phys[txPdu.rowStart] = 1000 // speed
	if err := net.Encode(txPdu, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !txPdu.NeedsTx {
		t.Fatalf("expected NeedsTx after scheduled emission")
	}
	raw := unpackBits(txPdu.Payload, 0, 16)
	if raw != 10000 { // 1000 / 0.1
		t.Fatalf("packed raw = %d, want 10000", raw)
	}
}

func TestEncodeSkipsOutOfRangeSignal(t *testing.T) {
	net, _ := Parse(sampleNetworkDoc())
	net.Tick(0)
	txPdu := net.Pdus[1]
	net.Matrix.Phys[txPdu.rowStart] = 99999 // way above max=6500
	if err := net.Encode(txPdu, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw := unpackBits(txPdu.Payload, 0, 16)
	if raw != 0 {
		t.Fatalf("out-of-range signal should not be packed, got raw=%d", raw)
	}
}

func TestDecodeAppliesClampAndLinearTransform(t *testing.T) {
	net, _ := Parse(sampleNetworkDoc())
	rxPdu := net.Pdus[0]
	packBits(rxPdu.Payload, 16, 8, 255) // temp raw=255 -> phys = 255 - 40 = 215, clamp to 200
	if err := net.Decode(rxPdu, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !rxPdu.UpdateSignals {
		t.Fatalf("expected UpdateSignals after a changed row")
	}
	got := net.Matrix.Phys[rxPdu.rowStart]
	if got != 200 {
		t.Fatalf("phys = %v, want clamp to 200", got)
	}
}

func TestSchedulerGatesNonAlignedSteps(t *testing.T) {
	net, _ := Parse(sampleNetworkDoc())
	txPdu := net.Pdus[1] // interval steps = 10
	net.Tick(3)          // not a multiple of 10
	if !net.Matrix.Skip[txPdu.rowStart] {
		t.Fatalf("expected row skipped on a non-aligned step")
	}
	net.Tick(10)
	if net.Matrix.Skip[txPdu.rowStart] {
		t.Fatalf("expected row eligible on an aligned step")
	}
}

func TestScriptRegistryRerunsTransformOnMutation(t *testing.T) {
	net, _ := Parse(sampleNetworkDoc())
	net.Tick(0)
	txPdu := net.Pdus[1]
	net.Matrix.Phys[txPdu.rowStart] = 1000

	scripts := NewScriptRegistry()
	scripts.RegisterSignal("double_it", func(phys, raw float64, payload []byte) (float64, float64, error) {
		return phys * 2, raw, nil
	})
	net.Matrix.Encode[txPdu.rowStart] = "double_it"

	if err := net.Encode(txPdu, scripts); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	raw := unpackBits(txPdu.Payload, 0, 16)
	if raw != 20000 { // (1000*2)/0.1
		t.Fatalf("packed raw = %d, want 20000 after script-mutated phys", raw)
	}
}
