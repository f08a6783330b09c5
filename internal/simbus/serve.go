package simbus

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/boschglobal/dse.modelc-sub000/internal/endpoint"
	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// Server wires a Coordinator to a set of per-model Endpoints: one
// blocking receive loop per connected model, dispatching SBCH/SBNO
// frames into the coordinator and broadcasting the resolved Notify via
// the push router once every channel's ready set completes (§4.3's
// "per-model push routing").
type Server struct {
	coord  *Coordinator
	router *endpoint.PushRouter
}

func NewServer(coord *Coordinator, router *endpoint.PushRouter) *Server {
	return &Server{coord: coord, router: router}
}

// ServeModel runs one model's receive loop until ctx is done or the
// Endpoint is interrupted. It replies to SBCH requests on ep directly and
// triggers a broadcast through the push router whenever a Notify
// completes resolution.
func (s *Server) ServeModel(ctx context.Context, ep *endpoint.Endpoint, modelUID uint32) error {
	if _, err := s.router.Get(modelUID); err != nil {
		return fmt.Errorf("simbus: open push endpoint for model %d: %w", modelUID, err)
	}
	for {
		name, buf, err := ep.Recv(ctx)
		if err != nil {
			if xerr.IsCanceled(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(buf) < 4 {
			nlog.Warningf("simbus: short frame on channel %q from model %d", name, modelUID)
			continue
		}
		ident, body := string(buf[:4]), buf[4:]
		switch ident {
		case wire.IdentSBCH:
			if err := s.handleChannel(ep, body, modelUID); err != nil {
				nlog.Warningf("simbus: %v", err)
			}
		case wire.IdentSBNO:
			if err := s.handleNotify(body, modelUID); err != nil {
				nlog.Warningf("simbus: %v", err)
			}
		default:
			nlog.Warningf("simbus: %v", fmt.Errorf("%w: %q", xerr.ErrBadIdentity, ident))
		}
	}
}

// Assignment pairs a connected model's uid with its Endpoint, for
// ServeAll.
type Assignment struct {
	ModelUID uint32
	Ep       *endpoint.Endpoint
}

// ServeAll runs ServeModel concurrently for every assignment, one
// goroutine per connected model (each model's own receive loop is
// independent per §5's single-threaded-per-model-and-adapter model; only
// the bus-side Notify broadcast itself is required to stay sequential,
// which Server.broadcast already guarantees via PushRouter.Broadcast). If
// any model's loop returns a non-nil error, the group's context is
// canceled so the rest unwind promptly, and the first error is returned.
func (s *Server) ServeAll(ctx context.Context, assignments []Assignment) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, a := range assignments {
		a := a
		g.Go(func() error { return s.ServeModel(gctx, a.Ep, a.ModelUID) })
	}
	return g.Wait()
}

func (s *Server) handleChannel(ep *endpoint.Endpoint, body []byte, modelUID uint32) error {
	msg, err := wire.UnmarshalChannelMessage(body)
	if err != nil {
		return err
	}
	reply, err := s.coord.HandleChannelMessage(msg)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	ch, err := ep.CreateChannel(reply.ChannelName)
	if err != nil {
		return err
	}
	rbody, err := reply.Marshal()
	if err != nil {
		return err
	}
	return ep.Send(ch, append([]byte(wire.IdentSBCH), rbody...), modelUID)
}

func (s *Server) handleNotify(body []byte, modelUID uint32) error {
	no, err := wire.UnmarshalNotifyMessage(body)
	if err != nil {
		return err
	}
	resolved, ok := s.coord.HandleReadyNotify(modelUID, no)
	if !ok {
		return nil
	}
	return s.broadcast(resolved)
}

func (s *Server) broadcast(resolved *wire.NotifyMessage) error {
	body, err := resolved.Marshal()
	if err != nil {
		return err
	}
	frame := append([]byte(wire.IdentSBNO), body...)
	return s.router.Broadcast(func(uid uint32, ep *endpoint.Endpoint) error {
		ch, err := ep.CreateChannel("_notify")
		if err != nil {
			return err
		}
		return ep.Send(ch, frame, uid)
	})
}
