package simbus

import (
	"context"
	"testing"
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/endpoint"
)

// ServeAll runs one receive loop per connected model concurrently;
// canceling the parent context should unwind every loop without error.
func TestServeAllRunsConcurrentlyAndUnwindsOnCancel(t *testing.T) {
	coord := NewCoordinator(0)
	router := endpoint.NewPushRouter(func(uint32) (*endpoint.Endpoint, error) {
		a, _ := endpoint.NewLoopbackPair()
		return endpoint.New(a), nil
	})
	server := NewServer(coord, router)

	var assignments []Assignment
	for _, uid := range []uint32{1, 2, 3} {
		a, b := endpoint.NewLoopbackPair()
		_ = b
		assignments = append(assignments, Assignment{ModelUID: uid, Ep: endpoint.New(a)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.ServeAll(ctx, assignments) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ServeAll returned %v, want nil after clean cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ServeAll did not unwind after cancel")
	}
}
