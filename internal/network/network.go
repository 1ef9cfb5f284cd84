package network

import (
	"fmt"
	"io"

	"github.com/vk/arterialgo/internal/block"
	"github.com/vk/arterialgo/internal/debugtap"
	"github.com/vk/arterialgo/internal/segment"
	"gopkg.in/yaml.v3"
)

// EdgeKind classifies a wire of the assembled network.
type EdgeKind string

const (
	EdgeExcitation EdgeKind = "excitation"
	EdgePressure   EdgeKind = "pressure"
	EdgeFlow       EdgeKind = "flow"
	EdgeTerminal   EdgeKind = "terminal"
	EdgeJunction   EdgeKind = "junction"
	EdgeProbe      EdgeKind = "probe"
)

// Edge is one wire of the top-level diagram, in creation order.
type Edge struct {
	Kind EdgeKind
	From block.Port
	To   block.Port
}

// Segment is one instantiated vessel of the network.
type Segment struct {
	Index int
	Name  string
	Type  string
	// Params are the scaled values the circuit was built from.
	Params   segment.Params
	Model    *segment.Model
	Block    *block.Block
	Topology Topology
}

// Junction is the flow summation of a bifurcation.
type Junction struct {
	Parent int
	// Children are in slot order.
	Children []int
	Block    *block.Block
}

// Network is the assembled arterial tree. It is built fresh for every run
// and never shared between runs.
type Network struct {
	Diagram  *block.Diagram
	Segments map[int]*Segment
	// Order lists segment indices in declaration order.
	Order      []int
	Edges      []Edge
	Junctions  []Junction
	Probes     []debugtap.Probe
	Excitation *block.Block
}

// Stats summarises a network's structure.
type Stats struct {
	Segments     int
	Terminals    int
	Direct       int
	Bifurcations int
	Probes       int
	Edges        int
}

// Stats counts the network's parts.
func (n *Network) Stats() Stats {
	s := Stats{
		Segments:     len(n.Segments),
		Bifurcations: len(n.Junctions),
		Probes:       len(n.Probes),
		Edges:        len(n.Edges),
	}
	for _, seg := range n.Segments {
		switch seg.Topology.Kind {
		case Terminal:
			s.Terminals++
		case Direct:
			s.Direct++
		}
	}
	return s
}

// Segment returns the vessel with the given index.
func (n *Network) Segment(index int) (*Segment, bool) {
	seg, ok := n.Segments[index]
	return seg, ok
}

// EdgesOf returns the edges of one kind.
func (n *Network) EdgesOf(kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range n.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Description is the serialisable summary of a network used by reports.
type Description struct {
	Diagram   string                `yaml:"diagram"`
	Segments  []SegmentDescription  `yaml:"segments"`
	Junctions []JunctionDescription `yaml:"junctions,omitempty"`
	Probes    []debugtap.Probe      `yaml:"probes,omitempty"`
	Edges     []EdgeDescription     `yaml:"edges"`
}

type SegmentDescription struct {
	Index    int          `yaml:"index"`
	Name     string       `yaml:"name"`
	Type     string       `yaml:"type,omitempty"`
	Rs       float64      `yaml:"rs"`
	L        float64      `yaml:"l"`
	C        float64      `yaml:"c"`
	Rp       *float64     `yaml:"rp,omitempty"`
	Topology TopologyKind `yaml:"topology"`
	Children []int        `yaml:"children,flow,omitempty"`
	Outputs  int          `yaml:"outputs"`
	Taps     []string     `yaml:"taps,flow,omitempty"`
}

type JunctionDescription struct {
	Parent   int    `yaml:"parent"`
	Block    string `yaml:"block"`
	Children []int  `yaml:"children,flow"`
}

type EdgeDescription struct {
	Kind EdgeKind `yaml:"kind"`
	From string   `yaml:"from"`
	To   string   `yaml:"to"`
}

// Describe builds the network summary in declaration order.
func (n *Network) Describe() Description {
	desc := Description{
		Diagram: n.Diagram.Name,
		Probes:  n.Probes,
	}
	for _, idx := range n.Order {
		seg := n.Segments[idx]
		desc.Segments = append(desc.Segments, SegmentDescription{
			Index:    seg.Index,
			Name:     seg.Name,
			Type:     seg.Type,
			Rs:       seg.Params.Rs,
			L:        seg.Params.L,
			C:        seg.Params.C,
			Rp:       seg.Params.Rp,
			Topology: seg.Topology.Kind,
			Children: seg.Topology.Children,
			Outputs:  seg.Model.NumOutputs(),
			Taps:     seg.Model.Taps,
		})
	}
	for _, j := range n.Junctions {
		desc.Junctions = append(desc.Junctions, JunctionDescription{
			Parent:   j.Parent,
			Block:    j.Block.Name,
			Children: j.Children,
		})
	}
	for _, e := range n.Edges {
		desc.Edges = append(desc.Edges, EdgeDescription{
			Kind: e.Kind,
			From: e.From.String(),
			To:   e.To.String(),
		})
	}
	return desc
}

// WriteYAML writes the network description as YAML.
func (n *Network) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(n.Describe()); err != nil {
		return fmt.Errorf("encode network description: %w", err)
	}
	return enc.Close()
}
