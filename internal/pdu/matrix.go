// Package pdu implements the PDU Network (§4.8/C8): parsing a network's
// YAML description into a column-oriented transform matrix, the
// scheduler that gates which PDUs fire each step, the six-step Tx encode
// and inverse Rx decode algorithms, and a FlexRay transport framing for
// the matrix's PDUs.
package pdu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/boschglobal/dse.modelc-sub000/internal/config"
	"github.com/boschglobal/dse.modelc-sub000/internal/ncodec"
)

func negInf() float64 { return math.Inf(-1) }
func posInf() float64 { return math.Inf(1) }

// Direction is a PDU's configured transfer direction.
type Direction byte

const (
	DirectionRx Direction = iota
	DirectionTx
)

func parseDirection(s string) (Direction, error) {
	switch s {
	case "rx", "Rx", "RX":
		return DirectionRx, nil
	case "tx", "Tx", "TX":
		return DirectionTx, nil
	default:
		return 0, errors.Errorf("pdu: unknown direction %q", s)
	}
}

// PDU is one network PDU: its identity, payload buffer, schedule, and the
// [rowStart, rowStart+rowCount) slice of the owning Matrix holding its
// signals.
type PDU struct {
	Name      string
	ID        uint32
	Length    int
	Direction Direction

	IntervalSteps int // schedule.interval, converted to whole steps
	PhaseSteps    int // schedule.phase, converted to whole steps

	EncodeScript string // PDU-level encode hook name, "" if none
	DecodeScript string // PDU-level decode hook name, "" if none

	Payload       []byte
	checksum      uint32
	NeedsTx       bool
	UpdateSignals bool // set after Rx decode; cleared once marshalled out

	forcedThisTick bool // scheduler cleared skip this tick to force re-emission

	rowStart, rowCount int

	Transport ncodec.TransportType
}

func (p *PDU) rows(m *Matrix) []int {
	idx := make([]int, p.rowCount)
	for i := range idx {
		idx[i] = p.rowStart + i
	}
	return idx
}

// Matrix is the column-oriented flattening of every PDU's signals (§4.8):
// each index i across the parallel slices is one signal row.
type Matrix struct {
	PduIdx     []int
	SignalName []string
	Skip       []bool
	Phys       []float64
	Raw        []uint64
	Factor     []float64
	Offset     []float64
	Min        []float64
	Max        []float64
	Encode     []string // per-signal scripted encode hook name, "" if none
	Decode     []string // per-signal scripted decode hook name, "" if none
	StartBit   []uint16
	LengthBits []uint16
}

func (m *Matrix) append(row matrixRow) int {
	i := len(m.PduIdx)
	m.PduIdx = append(m.PduIdx, row.pduIdx)
	m.SignalName = append(m.SignalName, row.name)
	m.Skip = append(m.Skip, true)
	m.Phys = append(m.Phys, 0)
	m.Raw = append(m.Raw, 0)
	m.Factor = append(m.Factor, row.factor)
	m.Offset = append(m.Offset, row.offset)
	m.Min = append(m.Min, row.min)
	m.Max = append(m.Max, row.max)
	m.Encode = append(m.Encode, row.encode)
	m.Decode = append(m.Decode, row.decode)
	m.StartBit = append(m.StartBit, row.startBit)
	m.LengthBits = append(m.LengthBits, row.lengthBits)
	return i
}

type matrixRow struct {
	pduIdx         int
	name           string
	factor, offset float64
	min, max       float64
	encode, decode string
	startBit       uint16
	lengthBits     uint16
}

// Network is a parsed PDU network description (§4.8 Parse): its transport,
// PDUs sorted Rx-before-Tx, and the Matrix flattening every signal.
type Network struct {
	Name          string
	TransportType string
	StepSize      float64 // seconds/step, from spec.schedule.step_size

	Pdus   []*PDU
	Matrix Matrix

	EpochOffsetSteps int // realigned by FlexRay Status frames
}

// Parse builds a Network from a config.Network document (already matched
// against the caller's label selector). PDUs are stable-sorted
// Rx-before-Tx so range objects over the matrix stay contiguous per PDU
// group.
func Parse(doc *config.Network) (*Network, error) {
	net := &Network{
		Name:          doc.Metadata.Name,
		TransportType: doc.TransportType(),
		StepSize:      doc.Spec.Schedule.StepSize,
	}
	if net.StepSize <= 0 {
		net.StepSize = 1
	}

	rx := make([]config.PduYAML, 0, len(doc.Spec.Pdus))
	tx := make([]config.PduYAML, 0, len(doc.Spec.Pdus))
	for _, p := range doc.Spec.Pdus {
		dir, err := parseDirection(p.Direction)
		if err != nil {
			return nil, err
		}
		if dir == DirectionRx {
			rx = append(rx, p)
		} else {
			tx = append(tx, p)
		}
	}
	ordered := append(rx, tx...)

	for _, py := range ordered {
		dir, _ := parseDirection(py.Direction)
		p := &PDU{
			Name:          py.Name,
			ID:            py.ID,
			Length:        py.Length,
			Direction:     dir,
			EncodeScript:  py.Encode,
			DecodeScript:  py.Decode,
			Payload:       make([]byte, py.Length),
			IntervalSteps: stepsOf(py.Schedule.Interval, net.StepSize),
			PhaseSteps:    stepsOf(py.Schedule.Phase, net.StepSize),
		}
		p.rowStart = len(net.Matrix.PduIdx)
		pduIdx := len(net.Pdus)
		for _, sy := range py.Signals {
			row := matrixRow{
				pduIdx:     pduIdx,
				name:       sy.Name,
				factor:     orDefault(sy.Factor, 1),
				offset:     orDefault(sy.Offset, 0),
				min:        orDefault(sy.Min, negInf()),
				max:        orDefault(sy.Max, posInf()),
				encode:     sy.Encode,
				decode:     sy.Decode,
				startBit:   sy.StartBit,
				lengthBits: sy.LengthBits,
			}
			if row.min > row.max {
				row.min, row.max = negInf(), posInf() // misconfigured bounds: no clamp
			}
			net.Matrix.append(row)
		}
		p.rowCount = len(net.Matrix.PduIdx) - p.rowStart
		net.Pdus = append(net.Pdus, p)
	}
	return net, nil
}

func stepsOf(seconds, stepSize float64) int {
	if stepSize <= 0 {
		return 0
	}
	return int(seconds/stepSize + 0.5)
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
