// Package trace implements the NCodec frame/PDU tracer (§4.10/C10),
// ported from the environment-variable filter grammar in the original
// model/trace.c: a bus or PDU identifier is traced when its filter
// variable is "*", a comma-separated id list containing it, or (this
// implementation's extension of the original grammar) an id list whose
// matching entry is prefixed with "!", which excludes it even under a
// wildcard sibling rule.
package trace

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/boschglobal/dse.modelc-sub000/internal/ncodec"
	"github.com/boschglobal/dse.modelc-sub000/internal/nlog"
)

// Filter decides whether a given frame/PDU id should be traced.
type Filter struct {
	wildcard bool
	include  map[uint32]bool
	exclude  map[uint32]bool
}

// ParseFilter builds a Filter from an NCODEC_TRACE_* environment value.
// "*" traces everything; a comma list of ids traces only those; a "!"
// prefix on an id excludes it even when "*" is also present in the list.
func ParseFilter(value string) Filter {
	f := Filter{include: make(map[uint32]bool), exclude: make(map[uint32]bool)}
	for _, tok := range strings.Split(value, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if tok == "*" {
			f.wildcard = true
			continue
		}
		negate := strings.HasPrefix(tok, "!")
		tok = strings.TrimPrefix(tok, "!")
		id, err := strconv.ParseInt(tok, 0, 64)
		if err != nil || id <= 0 {
			continue
		}
		if negate {
			f.exclude[uint32(id)] = true
		} else {
			f.include[uint32(id)] = true
		}
	}
	return f
}

func (f Filter) Match(id uint32) bool {
	if f.exclude[id] {
		return false
	}
	if f.wildcard {
		return true
	}
	return f.include[id]
}

func busEnvName(bus, busID string) string {
	return strings.ToUpper(fmt.Sprintf("NCODEC_TRACE_%s_%s", bus, busID))
}

func pduEnvName(swcID string) string {
	return strings.ToUpper(fmt.Sprintf("NCODEC_TRACE_PDU_%s", swcID))
}

// Configure installs trace hooks on c, reading identifying config keys
// back from c.Stat (as trace.c's _get_codec_config does via ncodec_stat)
// so the tracer stays agnostic of how the codec was constructed. clock
// returns the current simulation time for the log line's timestamp. force
// installs the log hook even without NCODEC_TRACE_LOG, matching trace.c's
// test-harness override flag.
func Configure(c *ncodec.Codec, modelInstName string, clock func() float64, force bool) {
	cfg := statMap(c)
	codecType := cfg["type"]

	hooks := c.Hooks()
	if force || os.Getenv("NCODEC_TRACE_LOG") != "" {
		hooks.Log = func(msg string) { nlog.Infof("(%s) %s", modelInstName, msg) }
		c.SetHooks(hooks)
	}

	var envName string
	switch codecType {
	case "frame":
		envName = busEnvName(cfg["bus"], cfg["bus_id"])
	case "pdu":
		envName = pduEnvName(cfg["swc_id"])
	default:
		return
	}
	raw, ok := os.LookupEnv(envName)
	if !ok {
		return
	}
	filter := ParseFilter(raw)
	identifier := identifierFor(codecType, cfg)

	logFrame := func(direction string, id uint32, peer string, length int) {
		if !filter.Match(id) {
			return
		}
		t := 0.0
		if clock != nil {
			t = clock()
		}
		idStr := identifier
		if direction == "RX" {
			idStr = peer
		}
		nlog.Infof("(%s) %.6f [%s] %s %02x %d", modelInstName, t, idStr, direction, id, length)
	}

	hooks = c.Hooks()
	hooks.Read = func(msg ncodec.Message) {
		id, peer, length := describe(msg)
		logFrame("RX", id, peer, length)
	}
	hooks.Write = func(msg ncodec.Message) {
		id, peer, length := describe(msg)
		logFrame("TX", id, peer, length)
	}
	c.SetHooks(hooks)
}

func identifierFor(codecType string, cfg map[string]string) string {
	switch codecType {
	case "frame":
		return fmt.Sprintf("%s:%s:%s", cfg["bus_id"], cfg["node_id"], cfg["interface_id"])
	case "pdu":
		return fmt.Sprintf("%s:%s", cfg["swc_id"], cfg["ecu_id"])
	default:
		return ""
	}
}

func describe(msg ncodec.Message) (id uint32, peer string, length int) {
	switch msg.Kind {
	case ncodec.KindCANFrame:
		return msg.CAN.FrameID,
			fmt.Sprintf("%d:%d:%d", msg.CAN.Sender.BusID, msg.CAN.Sender.NodeID, msg.CAN.Sender.InterfaceID),
			len(msg.CAN.Buffer)
	case ncodec.KindPDU:
		return msg.PDU.ID, fmt.Sprintf("%d:%d", msg.PDU.SwcID, msg.PDU.EcuID), len(msg.PDU.Payload)
	default:
		return 0, "", 0
	}
}

func statMap(c *ncodec.Codec) map[string]string {
	out := make(map[string]string)
	for i := 0; ; i++ {
		s, err := c.Stat(i)
		if err != nil {
			break
		}
		out[s.Name] = s.Value
	}
	return out
}
