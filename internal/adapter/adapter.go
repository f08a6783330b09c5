package adapter

import (
	"context"
	"fmt"
	"sort"

	"github.com/boschglobal/dse.modelc-sub000/internal/endpoint"
	"github.com/boschglobal/dse.modelc-sub000/internal/signal"
	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// Adapter drives one model instance's channels through the §4.4 state
// machine against a SimBus coordinator. Per the spec's open question on
// multi-instance-per-adapter (§9 Design Notes), this Adapter owns exactly
// one *signal.Model; the broadcast (Notify) path is authoritative and a
// multi-model adapter is built by running one Adapter per local instance
// against the same Endpoint.
type Adapter struct {
	Model *signal.Model
	ep    *endpoint.Endpoint

	state    State
	channels map[string]endpoint.ChannelHandle
	token    uint32

	marshallers map[string]*channelMarshal // per-channel Marshaller + working vectors (§4.6)

	MaxRetries int // register/index retry bound (default 5)
}

func New(model *signal.Model, ep *endpoint.Endpoint) *Adapter {
	return &Adapter{
		Model:      model,
		ep:         ep,
		state:      Idle,
		channels:   make(map[string]endpoint.ChannelHandle),
		MaxRetries: 5,
	}
}

func (a *Adapter) State() State { return a.state }

func (a *Adapter) nextToken() uint32 {
	a.token++
	return a.token
}

// sendChannel encodes and sends a ChannelMessage, prefixed by the SBCH
// identifier (one Endpoint.Send carries exactly one frame, so the
// continuous-stream length prefix of internal/wire's StreamWriter is not
// needed here — only the identifier, to disambiguate SBCH from SBNO on
// the same channel handle).
func (a *Adapter) sendChannel(ch endpoint.ChannelHandle, msg wire.ChannelMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("adapter: marshal %s: %w", msg.Type, err)
	}
	return a.ep.Send(ch, append([]byte(wire.IdentSBCH), body...), msg.ModelUID)
}

func (a *Adapter) sendNotify(ch endpoint.ChannelHandle, msg wire.NotifyMessage) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("adapter: marshal notify: %w", err)
	}
	return a.ep.Send(ch, append([]byte(wire.IdentSBNO), body...), 0)
}

// recvOne blocks (via the Endpoint's poll loop) for the next frame on any
// channel, returning its identifier and decoded payload.
func (a *Adapter) recvOne(ctx context.Context) (channelName, ident string, ch *wire.ChannelMessage, no *wire.NotifyMessage, err error) {
	name, buf, err := a.ep.Recv(ctx)
	if err != nil {
		return "", "", nil, nil, err
	}
	if len(buf) < 4 {
		return "", "", nil, nil, fmt.Errorf("adapter: %w: frame shorter than identifier", xerr.ErrProto)
	}
	ident = string(buf[:4])
	body := buf[4:]
	switch ident {
	case wire.IdentSBCH:
		m, uerr := wire.UnmarshalChannelMessage(body)
		if uerr != nil {
			return "", "", nil, nil, uerr
		}
		return name, ident, &m, nil, nil
	case wire.IdentSBNO:
		n, uerr := wire.UnmarshalNotifyMessage(body)
		if uerr != nil {
			return "", "", nil, nil, uerr
		}
		return name, ident, nil, &n, nil
	default:
		return "", "", nil, nil, fmt.Errorf("adapter: %w: %q", xerr.ErrBadIdentity, ident)
	}
}

// sortedChannelUIDs returns every non-zero UID currently known on channel
// c, in ascending UID order.
func sortedChannelUIDs(c *signal.Channel) []uint32 {
	c.RefreshIndex()
	n := c.Len()
	uids := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		v := c.IterateByIndex(i)
		if v.UID != 0 {
			uids = append(uids, v.UID)
		}
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}
