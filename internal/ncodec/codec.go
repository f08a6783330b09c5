package ncodec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/boschglobal/dse.modelc-sub000/internal/xerr"
)

// MessageKind discriminates the two typed messages a codec carries (§4.7).
type MessageKind byte

const (
	KindCANFrame MessageKind = iota
	KindPDU
)

// Sender identifies the originator of a message for echo suppression.
type Sender struct {
	BusID       uint32
	NodeID      uint32
	InterfaceID uint32
}

// CANFrame is the §4.7 CAN typed message.
type CANFrame struct {
	FrameID   uint32
	FrameType byte
	Buffer    []byte
	Sender    Sender
}

// TransportType is the PDU's transport.<variant> discriminator.
type TransportType byte

const (
	TransportNone TransportType = iota
	TransportCan
	TransportIP
	TransportFlexRay
)

// PDUMeta carries the transport-specific metadata blob (config | status |
// lpdu) for a PDU message; interpreted by package pdu for FlexRay framing.
type PDUMeta struct {
	Variant string // "config", "status", or "lpdu"
	Data    []byte
}

// PDUMessage is the §4.7 PDU typed message.
type PDUMessage struct {
	ID        uint32
	Payload   []byte
	SwcID     uint32
	EcuID     uint32
	Transport TransportType
	Meta      PDUMeta
}

// Message is the tagged union a Codec reads and writes.
type Message struct {
	Kind MessageKind
	CAN  CANFrame
	PDU  PDUMessage
}

// Hooks are the optional trace callbacks a codec instance may have
// installed (§4.7: "if a codec has trace.{read, write, log} hooks
// installed... every read/written message is formatted and emitted").
type Hooks struct {
	Read  func(Message)
	Write func(Message)
	Log   func(string)
}

// Codec implements the §4.7 API over a Stream bound to one binary
// signal's buffer.
type Codec struct {
	stream   *Stream
	identity Sender
	swcID    uint32
	hooks    Hooks

	configKeys []string
	config     map[string]string
}

func New(stream *Stream) *Codec {
	return &Codec{stream: stream, config: make(map[string]string)}
}

func (c *Codec) SetHooks(h Hooks) { c.hooks = h }

// Hooks returns the currently installed trace hooks, so a later
// configuration pass (e.g. package trace) can layer additions onto
// whatever is already installed instead of clobbering it.
func (c *Codec) Hooks() Hooks { return c.hooks }

// Config sets a named configuration value; used by tests/admin writes to
// temporarily rewrite node_id/swc_id to bypass echo suppression (§4.7).
func (c *Codec) Config(name, value string) {
	if _, exists := c.config[name]; !exists {
		c.configKeys = append(c.configKeys, name)
	}
	c.config[name] = value
	switch name {
	case "node_id":
		fmt.Sscanf(value, "%d", &c.identity.NodeID)
	case "bus_id":
		fmt.Sscanf(value, "%d", &c.identity.BusID)
	case "swc_id":
		fmt.Sscanf(value, "%d", &c.swcID)
	}
}

// stat is a {name, value} pair returned by Stat.
type stat struct{ Name, Value string }

// Stat returns the index'th configured {name, value} pair, or an error if
// index is out of range.
func (c *Codec) Stat(index int) (stat, error) {
	if index < 0 || index >= len(c.configKeys) {
		return stat{}, fmt.Errorf("ncodec: stat index %d out of range", index)
	}
	name := c.configKeys[index]
	return stat{Name: name, Value: c.config[name]}, nil
}

func (c *Codec) Identity() Sender { return c.identity }

func (c *Codec) Seek(offset int, whence Whence) (int, error) { return c.stream.Seek(offset, whence) }
func (c *Codec) Tell() int                                   { return c.stream.Tell() }

// Truncate discards any bytes beyond the current position.
func (c *Codec) Truncate() {
	pos := c.stream.Tell()
	if pos < len(c.stream.buf) {
		c.stream.buf = c.stream.buf[:pos]
	}
}

// Flush is a no-op: Write already appends directly to the stream buffer;
// present for API symmetry with the original codec (§4.7).
func (c *Codec) Flush() error { return nil }

// Write encodes msg and appends it to the stream as one length-prefixed
// frame.
func (c *Codec) Write(msg Message) error {
	body := encodeMessage(msg)
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint32(hdr, uint32(len(body)))
	if _, err := c.stream.Write(hdr); err != nil {
		return err
	}
	if _, err := c.stream.Write(body); err != nil {
		return err
	}
	if c.hooks.Write != nil {
		c.hooks.Write(msg)
	}
	return nil
}

// Read decodes the next frame, skipping any message whose sender matches
// this codec's configured identity (echo suppression, §4.7). Returns
// xerr.ErrNoMsg once the stream is exhausted.
func (c *Codec) Read() (Message, error) {
	for {
		var hdr [4]byte
		n, err := c.stream.Read(hdr[:])
		if err != nil {
			return Message{}, err
		}
		if n < 4 {
			return Message{}, fmt.Errorf("ncodec: %w: short frame header", xerr.ErrProto)
		}
		size := binary.LittleEndian.Uint32(hdr[:])
		body := make([]byte, size)
		if _, err := c.stream.Read(body); err != nil {
			if errors.Is(err, xerr.ErrNoMsg) {
				return Message{}, fmt.Errorf("ncodec: %w: truncated frame body", xerr.ErrProto)
			}
			return Message{}, err
		}
		msg, err := decodeMessage(body)
		if err != nil {
			return Message{}, err
		}
		if c.isEcho(msg) {
			continue
		}
		if c.hooks.Read != nil {
			c.hooks.Read(msg)
		}
		return msg, nil
	}
}

func (c *Codec) isEcho(msg Message) bool {
	switch msg.Kind {
	case KindCANFrame:
		return msg.CAN.Sender.NodeID == c.identity.NodeID && msg.CAN.Sender.BusID == c.identity.BusID
	case KindPDU:
		return c.swcID != 0 && msg.PDU.SwcID == c.swcID
	default:
		return false
	}
}
