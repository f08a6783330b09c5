package endpoint

import (
	"context"
	"testing"
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

func TestLoopbackSendRecv(t *testing.T) {
	a, b := NewLoopbackPair()
	ea, eb := New(a), New(b)
	if err := ea.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch, err := ea.CreateChannel("data_channel")
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if err := ea.Send(ch, []byte("hello"), 0); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	name, buf, err := eb.Recv(ctx)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if name != "data_channel" || string(buf) != "hello" {
		t.Fatalf("Recv = %q %q", name, buf)
	}
}

func TestRecvTimesOutOnContextDeadline(t *testing.T) {
	a, b := NewLoopbackPair()
	_ = a
	eb := New(b)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, _, err := eb.Recv(ctx); !xerr.IsTimeout(err) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestInterruptCancelsRecv(t *testing.T) {
	a, b := NewLoopbackPair()
	_ = a
	eb := New(b)
	eb.Interrupt()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, _, err := eb.Recv(ctx); !xerr.IsCanceled(err) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
}

func TestPushRouterBroadcastsInAscendingOrder(t *testing.T) {
	var order []uint32
	router := NewPushRouter(func(modelUID uint32) (*Endpoint, error) {
		a, _ := NewLoopbackPair()
		return New(a), nil
	})
	for _, uid := range []uint32{5, 1, 3} {
		if _, err := router.Get(uid); err != nil {
			t.Fatalf("Get(%d): %v", uid, err)
		}
	}
	err := router.Broadcast(func(uid uint32, ep *Endpoint) error {
		order = append(order, uid)
		return nil
	})
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 3 || order[2] != 5 {
		t.Fatalf("broadcast order = %v, want [1 3 5]", order)
	}
}
