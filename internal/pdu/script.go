package pdu

import "github.com/pkg/errors"

// SignalScript is a signal-level encode/decode hook (§4.8 "Lua hooks"):
// given the current phys/raw pair it may rewrite either and report an
// error. The original design loads these as named Lua functions shared
// per model instance and referenced by integer ref from the transform
// matrix; this port keeps the call contract (load by name, invoke with
// {phys, raw, payload}/{payload}, read back {phys, raw, err, errmsg}) and
// leaves the interpreter itself out of scope — hooks are registered as
// plain Go functions by name instead of Lua source.
type SignalScript func(phys, raw float64, payload []byte) (newPhys, newRaw float64, err error)

// PDUScript is a PDU-level hook invoked with the whole payload after (Tx)
// or before (Rx) the per-signal pack/unpack pass.
type PDUScript func(payload []byte) error

// ScriptRegistry resolves the script names referenced by a Network's
// matrix/PDUs to their Go implementations. A name with no registered
// script is a no-op, matching "optional hooks" in §4.8.
type ScriptRegistry struct {
	signal map[string]SignalScript
	pdu    map[string]PDUScript
}

func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{signal: make(map[string]SignalScript), pdu: make(map[string]PDUScript)}
}

func (r *ScriptRegistry) RegisterSignal(name string, fn SignalScript) { r.signal[name] = fn }
func (r *ScriptRegistry) RegisterPDU(name string, fn PDUScript)       { r.pdu[name] = fn }

func (r *ScriptRegistry) signalHook(name string) (SignalScript, bool) {
	if name == "" || r == nil {
		return nil, false
	}
	fn, ok := r.signal[name]
	return fn, ok
}

func (r *ScriptRegistry) pduHook(name string) (PDUScript, bool) {
	if name == "" || r == nil {
		return nil, false
	}
	fn, ok := r.pdu[name]
	return fn, ok
}

func (r *ScriptRegistry) runPDU(name string, payload []byte) error {
	fn, ok := r.pduHook(name)
	if !ok {
		return nil
	}
	if err := fn(payload); err != nil {
		return errors.Wrapf(err, "pdu: script %q", name)
	}
	return nil
}
