package simbus

import (
	"fmt"

	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
)

// HandleChannelMessage dispatches one incoming SBCH frame, returning the
// reply to send back on the same channel handle (nil if no reply is
// due — ModelExit has none). ModelReady and ModelStart reuse the
// Notify-shaped rendezvous (handled by HandleReadyNotify) rather than
// this per-message path; see §4.4's "build a single Notify aggregating
// deltas from all channels" — callers should route those as SBNO frames
// instead of constructing a ChannelMessage of those types.
func (c *Coordinator) HandleChannelMessage(msg wire.ChannelMessage) (*wire.ChannelMessage, error) {
	switch msg.Type {
	case wire.MsgModelRegister:
		reply := c.HandleModelRegister(msg)
		return &reply, nil
	case wire.MsgSignalIndex:
		reply := c.HandleSignalIndex(msg)
		return &reply, nil
	case wire.MsgSignalRead:
		reply := c.HandleSignalRead(msg)
		return &reply, nil
	case wire.MsgSignalWrite:
		c.HandleSignalWrite(msg)
		return nil, nil
	case wire.MsgModelExit:
		c.HandleModelExit(msg.ModelUID)
		return nil, nil
	default:
		nlog.Warningln("simbus: unexpected message type", msg.Type.String())
		return nil, fmt.Errorf("simbus: unexpected message type %s", msg.Type)
	}
}
