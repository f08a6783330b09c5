package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/endpoint"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/simbus"
)

// Scenario 1 (spec §8): one model registers data_channel with one scalar
// counter; step_size=0.0005; after 5 steps counter self-increments
// 0..4 and bus_time reaches 0.0025 — driven end-to-end through the
// Adapter state machine and the SimBus Coordinator over a Loopback
// transport.
func TestSingleModelLoopbackEndToEnd(t *testing.T) {
	a, b := endpoint.NewLoopbackPair()
	epModel, epBus := endpoint.New(a), endpoint.New(b)

	coord := simbus.NewCoordinator(0)
	router := endpoint.NewPushRouter(func(uint32) (*endpoint.Endpoint, error) { return epBus, nil })
	server := simbus.NewServer(coord, router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.ServeModel(ctx, epBus, 1) }()

	model := signal.NewModel("m1")
	model.UID = 1
	ad := New(model, epModel)

	channels := []string{"data_channel"}
	if err := ad.Register(ctx, channels, 0.0005); err != nil {
		t.Fatalf("Register: %v", err)
	}

	model.Channel("data_channel").GetOrCreate("counter")
	if err := ad.Index(ctx, channels); err != nil {
		t.Fatalf("Index: %v", err)
	}
	if err := ad.Read(ctx, channels); err != nil {
		t.Fatalf("Read: %v", err)
	}

	counter, _ := model.Channel("data_channel").Find("counter")
	for step := 0; step < 5; step++ {
		counter.FinalVal = float64(step)
		_, _, err := ad.ReadyLoopOnce(ctx, channels)
		if err != nil {
			t.Fatalf("step %d: ReadyLoopOnce: %v", step, err)
		}
		if counter.Val != float64(step) {
			t.Fatalf("step %d: counter.Val = %v, want %v", step, counter.Val, step)
		}
	}

	if err := ad.Exit(channels); err != nil {
		t.Fatalf("Exit: %v", err)
	}
	cancel()
	select {
	case <-serverErr:
	case <-time.After(2 * time.Second):
		t.Fatalf("server goroutine did not exit after cancel")
	}

	if got := coord.BusTime(); got < 0.0025-1e-9 || got > 0.0025+1e-9 {
		t.Fatalf("bus_time = %v, want 0.0025", got)
	}
}
