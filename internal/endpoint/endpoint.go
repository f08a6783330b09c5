// Package endpoint implements the transport abstraction (§4.3): a
// backend-agnostic send/recv surface with a timed poll-loop receive and
// per-model push routing for bus mode. Grounded on the teacher's
// transport package (stream/Msg shape, SID-style routing) generalized
// from aistore's intra-cluster object stream to SimBus's
// channel/model_uid addressing.
package endpoint

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// ChannelHandle is the opaque value returned by CreateChannel and passed
// back unchanged on Send, letting a backend route without re-parsing a
// name on every call (§4.3).
type ChannelHandle any

// Backend is what a transport implementation provides; Endpoint wraps it
// with the poll-loop recv semantics common to every backend.
type Backend interface {
	CreateChannel(name string) (ChannelHandle, error)
	Start() error
	Send(ch ChannelHandle, buf []byte, targetModelUID uint32) error
	// TryRecv is non-blocking: ok is false and err is nil when nothing is
	// pending. Endpoint.Recv turns this into the timed poll loop.
	TryRecv() (channelName string, buf []byte, ok bool, err error)
	Disconnect() error
}

// PollTick is the internal retry interval of the timed poll loop (§4.3:
// "on each internal 1-second tick it checks the interrupt flag, then
// retries").
const PollTick = 1 * time.Second

// Endpoint is the transport-agnostic front the adapter/coordinator talk
// to; Backend supplies the actual wire.
type Endpoint struct {
	backend     Backend
	interrupted atomic.Bool
	pollTick    time.Duration
}

func New(backend Backend) *Endpoint {
	return &Endpoint{backend: backend, pollTick: PollTick}
}

func (e *Endpoint) CreateChannel(name string) (ChannelHandle, error) {
	return e.backend.CreateChannel(name)
}

func (e *Endpoint) Start() error {
	e.interrupted.Store(false)
	return e.backend.Start()
}

func (e *Endpoint) Send(ch ChannelHandle, buf []byte, targetModelUID uint32) error {
	return e.backend.Send(ch, buf, targetModelUID)
}

// Recv polls the backend until a message arrives, the caller's context is
// done (surfaced as xerr.ErrTimeout per §4.3/§7), or Interrupt is called
// (surfaced as xerr.ErrCanceled). The outer caller's context carries its
// own timeout budget; the 1-second tick only governs interrupt
// responsiveness.
func (e *Endpoint) Recv(ctx context.Context) (channelName string, buf []byte, err error) {
	ticker := time.NewTicker(e.pollTick)
	defer ticker.Stop()
	for {
		if e.interrupted.Load() {
			return "", nil, xerr.ErrCanceled
		}
		name, data, ok, rerr := e.backend.TryRecv()
		if rerr != nil {
			return "", nil, rerr
		}
		if ok {
			return name, data, nil
		}
		select {
		case <-ctx.Done():
			return "", nil, xerr.ErrTimeout
		case <-ticker.C:
			continue
		}
	}
}

// Interrupt unblocks any pending Recv (§4.3, §5 cancellation).
func (e *Endpoint) Interrupt() { e.interrupted.Store(true) }

func (e *Endpoint) Disconnect() error { return e.backend.Disconnect() }
