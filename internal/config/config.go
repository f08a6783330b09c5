// Package config decodes the Kind-tagged YAML documents the core consumes
// (spec §6): Stack, Model, SignalGroup, Network, Propagator. Discovery and
// CLI argument parsing (which files to read, in what order) remain a thin,
// out-of-scope collaborator (spec §1); this package only turns a document's
// bytes into the typed struct the rest of the core operates on.
/*
 * Copyright (c) 2021-2023, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Kind values of the documents decoded by ParseStack, ParseModel,
// ParseSignalGroup, ParseNetwork and ParsePropagator.
const (
	KindStack       = "Stack"
	KindModel       = "Model"
	KindSignalGroup = "SignalGroup"
	KindNetwork     = "Network"
	KindPropagator  = "Propagator"
)

// Metadata is common to every document kind.
type Metadata struct {
	Name        string            `yaml:"name"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// Header is the minimal envelope shared by all documents; callers Parse
// the raw bytes, inspect Kind, then unmarshal into the concrete type.
type Header struct {
	Kind     string   `yaml:"kind"`
	Metadata Metadata `yaml:"metadata"`
}

// Selector selects signals/channels by label match.
type Selector struct {
	Labels map[string]string `yaml:"labels,omitempty"`
}

type ChannelRef struct {
	Name      string   `yaml:"name,omitempty"`
	Alias     string   `yaml:"alias,omitempty"`
	Selectors Selector `yaml:"selectors,omitempty"`
}

// --- Stack ---

type DynlibRef struct {
	OS   string `yaml:"os"`
	Arch string `yaml:"arch"`
	Path string `yaml:"path"`
}

type ModelRef struct {
	Name string `yaml:"name"`
	MCL  string `yaml:"mcl,omitempty"`
}

type StackModel struct {
	Name     string       `yaml:"name"`
	UID      *uint32      `yaml:"uid,omitempty"`
	Model    ModelRef     `yaml:"model"`
	Channels []ChannelRef `yaml:"channels"`
}

type TransportSpec struct {
	URI     string `yaml:"uri,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
}

type Connection struct {
	Transport map[string]TransportSpec `yaml:"transport"`
}

type RuntimeSpec struct {
	Sequential bool        `yaml:"sequential,omitempty"`
	Dynlib     []DynlibRef `yaml:"dynlib,omitempty"`
}

type StackSpec struct {
	Models     []StackModel `yaml:"models"`
	Connection Connection   `yaml:"connection"`
	Runtime    RuntimeSpec  `yaml:"runtime"`
}

type Stack struct {
	Kind     string    `yaml:"kind"`
	Metadata Metadata  `yaml:"metadata"`
	Spec     StackSpec `yaml:"spec"`
}

// --- Model ---

type ModelSpec struct {
	Channels []ChannelRef `yaml:"channels"`
	Runtime  RuntimeSpec  `yaml:"runtime"`
}

type Model struct {
	Kind     string    `yaml:"kind"`
	Metadata Metadata  `yaml:"metadata"`
	Spec     ModelSpec `yaml:"spec"`
}

// --- SignalGroup ---

const (
	VectorTypeScalar = "scalar"
	VectorTypeBinary = "binary"
)

type SignalEntry struct {
	Signal      string            `yaml:"signal"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
	Factor      *float64          `yaml:"factor,omitempty"`
	Offset      *float64          `yaml:"offset,omitempty"`
}

type SignalGroupSpec struct {
	Signals []SignalEntry `yaml:"signals"`
}

type SignalGroup struct {
	Kind     string          `yaml:"kind"`
	Metadata Metadata        `yaml:"metadata"`
	Spec     SignalGroupSpec `yaml:"spec"`
}

// VectorType returns metadata.annotations.vector_type, defaulting to scalar.
func (sg *SignalGroup) VectorType() string {
	if v := sg.Metadata.Annotations["vector_type"]; v != "" {
		return v
	}
	return VectorTypeScalar
}

func (sg *SignalGroup) MimeType() string { return sg.Metadata.Annotations["mime_type"] }

func (sg *SignalGroup) DirectIndex() string { return sg.Metadata.Annotations["direct_index"] }

// --- Network ---

type PduSignalYAML struct {
	Name       string   `yaml:"name"`
	StartBit   uint16   `yaml:"start_bit"`
	LengthBits uint16   `yaml:"length_bits"`
	Factor     *float64 `yaml:"factor,omitempty"`
	Offset     *float64 `yaml:"offset,omitempty"`
	Min        *float64 `yaml:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty"`
	Encode     string   `yaml:"encode,omitempty"`
	Decode     string   `yaml:"decode,omitempty"`
}

type ScheduleYAML struct {
	Phase    float64 `yaml:"phase"`    // seconds
	Interval float64 `yaml:"interval"` // seconds
}

type PduYAML struct {
	Name      string          `yaml:"name"`
	ID        uint32          `yaml:"id"`
	Length    int             `yaml:"length"`
	Direction string          `yaml:"direction"` // "rx" | "tx"
	Schedule  ScheduleYAML    `yaml:"schedule"`
	Signals   []PduSignalYAML `yaml:"signals"`
	Encode    string          `yaml:"encode,omitempty"`
	Decode    string          `yaml:"decode,omitempty"`
	Metadata  map[string]any  `yaml:"metadata,omitempty"`
}

type NetworkSchedule struct {
	StepSize float64 `yaml:"step_size"`
}

type NetworkSpec struct {
	Pdus      []PduYAML         `yaml:"pdus"`
	Metadata  map[string]any    `yaml:"metadata,omitempty"`
	Functions map[string]string `yaml:"functions,omitempty"`
	Schedule  NetworkSchedule   `yaml:"schedule"`
}

type Network struct {
	Kind     string      `yaml:"kind"`
	Metadata Metadata    `yaml:"metadata"`
	Spec     NetworkSpec `yaml:"spec"`
}

// TransportType returns spec.metadata["transport_type"] for the network,
// defaulting to "pdu" (generic) when unset.
func (n *Network) TransportType() string {
	if v, ok := n.Spec.Metadata["transport_type"].(string); ok && v != "" {
		return v
	}
	return "pdu"
}

// --- Propagator ---

type PropagatorSpec struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type Propagator struct {
	Kind     string         `yaml:"kind"`
	Metadata Metadata       `yaml:"metadata"`
	Spec     PropagatorSpec `yaml:"spec"`
}

// ParseHeader reads enough of the document to discover its Kind without
// committing to a concrete type.
func ParseHeader(r io.Reader) (*Header, []byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	var h Header
	if err := yaml.Unmarshal(b, &h); err != nil {
		return nil, nil, fmt.Errorf("config: invalid document: %w", err)
	}
	return &h, b, nil
}

func ParseStack(b []byte) (*Stack, error) {
	var s Stack
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func ParseModel(b []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func ParseSignalGroup(b []byte) (*SignalGroup, error) {
	var sg SignalGroup
	if err := yaml.Unmarshal(b, &sg); err != nil {
		return nil, err
	}
	return &sg, nil
}

func ParseNetwork(b []byte) (*Network, error) {
	var n Network
	if err := yaml.Unmarshal(b, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func ParsePropagator(b []byte) (*Propagator, error) {
	var p Propagator
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
