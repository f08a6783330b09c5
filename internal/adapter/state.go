// Package adapter implements the model-side state machine (§4.4): one
// Adapter drives exactly one local model instance through
// registration, indexing, initial read, and the ready/run loop against a
// SimBus coordinator over an Endpoint.
package adapter

// State is one node of the §4.4 state machine.
type State int

const (
	Idle State = iota
	Registering
	Indexing
	Reading
	ReadyLoop
	Running
	Exiting
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Registering:
		return "REGISTERING"
	case Indexing:
		return "INDEXING"
	case Reading:
		return "READING"
	case ReadyLoop:
		return "READY_LOOP"
	case Running:
		return "RUNNING"
	case Exiting:
		return "EXITING"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
