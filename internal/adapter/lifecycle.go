package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
	"github.com/boschglobal/dse.modelc-sub000/internal/wire"
	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// attemptTimeout bounds how long one register/index attempt waits for its
// matching ACK before retrying (§4.4: "bounded, exits early on
// stop_request").
const attemptTimeout = 2 * time.Second

// Register drives REGISTERING for every named channel: creates the
// transport channel, sends ModelRegister with step_size, and retries
// (bounded by MaxRetries) until a matching-token ACK arrives.
func (a *Adapter) Register(ctx context.Context, channelNames []string, stepSize float64) error {
	a.state = Registering
	for _, name := range channelNames {
		ch, err := a.ep.CreateChannel(name)
		if err != nil {
			return fmt.Errorf("adapter: create_channel %q: %w", name, err)
		}
		a.channels[name] = ch
		a.Model.Channel(name) // ensure the local channel exists

		token := a.nextToken()
		acked := false
		for attempt := 0; attempt < a.MaxRetries && !acked; attempt++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			msg := wire.ChannelMessage{
				ModelUID: a.Model.UID, ChannelName: name, Token: token,
				Type: wire.MsgModelRegister, StepSize: stepSize,
			}
			if err := a.sendChannel(ch, msg); err != nil {
				return err
			}
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			acked = a.waitChannelAck(attemptCtx, name, token, wire.MsgModelRegister)
			cancel()
		}
		if !acked {
			return fmt.Errorf("adapter: channel %q: %w: register not acked after %d attempts", name, xerr.ErrTimeout, a.MaxRetries)
		}
	}
	return nil
}

// waitChannelAck blocks until a ChannelMessage of the given type matches
// (token, model_uid), a mismatched-token frame is silently discarded, or
// ctx expires.
func (a *Adapter) waitChannelAck(ctx context.Context, channelName string, token uint32, want wire.ChannelMsgType) bool {
	for {
		_, ident, ch, _, err := a.recvOne(ctx)
		if err != nil {
			return false
		}
		if ident != wire.IdentSBCH || ch.Type != want {
			continue
		}
		if ch.Token != 0 && ch.Token != token {
			continue // mismatched token: silently discarded (§4.4)
		}
		if ch.ModelUID != a.Model.UID {
			continue // ACK addressed to another model
		}
		return true
	}
}

// Index drives INDEXING: sends SignalIndex with every local signal name
// on each channel and blocks for the reply populating UIDs.
func (a *Adapter) Index(ctx context.Context, channelNames []string) error {
	a.state = Indexing
	for _, name := range channelNames {
		ch := a.channels[name]
		mch := a.Model.Channel(name)
		mch.RefreshIndex()

		lookups := make([]wire.SignalLookup, mch.Len())
		for i := 0; i < mch.Len(); i++ {
			lookups[i] = wire.SignalLookup{Name: mch.IterateByIndex(i).Name}
		}

		token := a.nextToken()
		var reply *wire.ChannelMessage
		for attempt := 0; attempt < a.MaxRetries && reply == nil; attempt++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			msg := wire.ChannelMessage{
				ModelUID: a.Model.UID, ChannelName: name, Token: token,
				Type: wire.MsgSignalIndex, Lookups: lookups,
			}
			if err := a.sendChannel(ch, msg); err != nil {
				return err
			}
			attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
			reply = a.waitSignalIndexReply(attemptCtx, token)
			cancel()
		}
		if reply == nil {
			return fmt.Errorf("adapter: channel %q: %w: index not acked", name, xerr.ErrTimeout)
		}
		for _, l := range reply.Lookups {
			if v, ok := mch.Find(l.Name); ok {
				v.UID = l.UID
			}
		}
	}
	return nil
}

func (a *Adapter) waitSignalIndexReply(ctx context.Context, token uint32) *wire.ChannelMessage {
	for {
		_, ident, ch, _, err := a.recvOne(ctx)
		if err != nil {
			return nil
		}
		if ident != wire.IdentSBCH || ch.Type != wire.MsgSignalIndex {
			continue
		}
		if ch.Token != 0 && ch.Token != token {
			continue
		}
		return ch
	}
}

// Read drives READING: sends SignalRead with every known non-zero UID on
// each channel and applies the SignalValue reply to local values.
func (a *Adapter) Read(ctx context.Context, channelNames []string) error {
	a.state = Reading
	for _, name := range channelNames {
		ch := a.channels[name]
		mch := a.Model.Channel(name)
		uids := sortedChannelUIDs(mch)
		if len(uids) == 0 {
			continue
		}
		placeholder := make([]wire.Value, len(uids))
		for i := range placeholder {
			placeholder[i] = wire.F64Value(0)
		}

		token := a.nextToken()
		msg := wire.ChannelMessage{
			ModelUID: a.Model.UID, ChannelName: name, Token: token,
			Type: wire.MsgSignalRead, Delta: wire.Delta{UIDs: uids, Values: placeholder},
		}
		if err := a.sendChannel(ch, msg); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		reply := a.waitSignalValueReply(attemptCtx, token)
		cancel()
		if reply == nil {
			return fmt.Errorf("adapter: channel %q: %w: initial read not acked", name, xerr.ErrTimeout)
		}
		applyDeltaToChannel(mch, reply.Delta, true)
	}
	return nil
}

func (a *Adapter) waitSignalValueReply(ctx context.Context, token uint32) *wire.ChannelMessage {
	for {
		_, ident, ch, _, err := a.recvOne(ctx)
		if err != nil {
			return nil
		}
		if ident != wire.IdentSBCH || ch.Type != wire.MsgSignalValue {
			continue
		}
		if ch.Token != 0 && ch.Token != token {
			continue
		}
		return ch
	}
}

// ReadyLoopOnce runs one READY_LOOP iteration (§4.4): aggregate deltas
// from every channel into a single Notify, send it, block for the bus's
// resolved Notify, and apply the result locally. Returns the resolved
// model_time and the next schedule_time.
func (a *Adapter) ReadyLoopOnce(ctx context.Context, channelNames []string) (modelTime, scheduleTime float64, err error) {
	a.state = ReadyLoop

	out := wire.NotifyMessage{ModelUIDs: []uint32{a.Model.UID}}
	for _, name := range channelNames {
		mch := a.Model.Channel(name)
		a.pushModelVector(name) // §4.6 MarshalOut: model vector -> channel FinalVal
		d := collectDelta(mch)
		out.Vectors = append(out.Vectors, wire.SignalVector{ChannelName: name, Delta: d})
	}
	if len(a.channels) == 0 {
		return 0, 0, errors.New("adapter: ready_loop with no registered channels")
	}
	anyChannel := a.channels[channelNames[0]]
	if err := a.sendNotify(anyChannel, out); err != nil {
		return 0, 0, err
	}

	for {
		_, ident, _, no, rerr := a.recvOne(ctx)
		if rerr != nil {
			return 0, 0, rerr
		}
		if ident != wire.IdentSBNO {
			continue
		}
		for _, v := range no.Vectors {
			mch := a.Model.Channel(v.ChannelName)
			applyDeltaToChannel(mch, v.Delta, true)
			a.pullModelVector(v.ChannelName) // §4.6 MarshalIn: channel Val -> model vector
		}
		a.Model.Time = no.ModelTime
		a.state = Running
		return no.ModelTime, no.ScheduleTime, nil
	}
}

// Running records that the model function has advanced to stopTime
// (§4.4: "updates model_time = stop_time"); callers invoke their own step
// function(s) between ReadyLoopOnce and Running.
func (a *Adapter) Running(stopTime float64) {
	a.Model.Time = stopTime
	a.Model.StopTime = stopTime
}

// Exit drives EXITING: emits ModelExit on every channel and disconnects.
func (a *Adapter) Exit(channelNames []string) error {
	a.state = Exiting
	for _, name := range channelNames {
		ch, ok := a.channels[name]
		if !ok {
			continue
		}
		msg := wire.ChannelMessage{ModelUID: a.Model.UID, ChannelName: name, Type: wire.MsgModelExit}
		if err := a.sendChannel(ch, msg); err != nil {
			nlog.Warningf("adapter: exit send on %q: %v", name, err)
		}
	}
	a.state = Terminated
	return a.ep.Disconnect()
}
