package network

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/vk/arterialgo/internal/block"
	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/ctxlog"
	"github.com/vk/arterialgo/internal/debugtap"
	"github.com/vk/arterialgo/internal/segment"
)

// UnitScale converts the configured rs, l and c into simulation units.
const UnitScale = 1e-3

// Names of the excitation blocks in the top-level diagram.
const (
	ExcitationBlock      = "excitation"
	PressureProfileBlock = "pressure_profile"
)

// Observer receives the outcome of every assembly.
type Observer interface {
	ObserveAssembly(stats Stats, elapsed time.Duration)
	ObserveAssemblyFailure(err error)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithObserver reports assembly outcomes to o.
func WithObserver(o Observer) Option {
	return func(a *Assembler) {
		a.observer = o
	}
}

// Assembler turns segment records into a wired network. It holds only
// read-only settings and can assemble any number of independent networks.
type Assembler struct {
	settings config.Settings
	debug    debugtap.Config
	observer Observer
}

// NewAssembler creates an assembler for the given settings.
func NewAssembler(settings config.Settings, opts ...Option) *Assembler {
	s := settings.Clone()
	a := &Assembler{
		settings: s,
		debug: debugtap.Config{
			Enabled:  s.Debugger.Enabled,
			ForIndex: s.Debugger.DebugForIndex,
			Ports:    uniqueOrdered(s.Debugger.PortList),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// PressureProfile returns the shaping applied to the raw periodic wave before
// it drives the root segment: sqrt(max(w, 0))*amplitude + baseline.
func PressureProfile(amplitude, baseline float64) func(float64) float64 {
	return func(w float64) float64 {
		return math.Sqrt(math.Max(w, 0))*amplitude + baseline
	}
}

// Assemble builds the network. Phases run in a fixed order and any error
// aborts the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, specs []*config.SegmentSpec) (*Network, error) {
	start := time.Now()
	net, err := a.assemble(ctx, specs)
	if err != nil {
		if a.observer != nil {
			a.observer.ObserveAssemblyFailure(err)
		}
		return nil, err
	}
	if a.observer != nil {
		a.observer.ObserveAssembly(net.Stats(), time.Since(start))
	}
	return net, nil
}

func (a *Assembler) assemble(ctx context.Context, specs []*config.SegmentSpec) (*Network, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Assemble: starting.", "segments", len(specs))

	b := &builder{
		a:     a,
		specs: specs,
		net: &Network{
			Diagram:  block.New("arterial_network"),
			Segments: make(map[int]*Segment, len(specs)),
		},
	}

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{"validate", b.validate},
		{"instantiate", b.instantiate},
		{"excitation", b.excitation},
		{"topology", b.topology},
		{"debug", b.debugSinks},
	}
	for _, phase := range phases {
		logger.Debug("Assemble: running phase.", "phase", phase.name)
		if err := phase.run(ctx); err != nil {
			return nil, fmt.Errorf("assemble %s: %w", phase.name, err)
		}
	}

	if err := b.net.Diagram.Validate(); err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}

	stats := b.net.Stats()
	logger.Debug("Assemble: finished.",
		"segments", stats.Segments,
		"bifurcations", stats.Bifurcations,
		"terminals", stats.Terminals,
		"probes", stats.Probes,
	)
	return b.net, nil
}

// builder holds the state of one assembly.
type builder struct {
	a     *Assembler
	specs []*config.SegmentSpec
	net   *Network
}

func (b *builder) connect(kind EdgeKind, from block.Port, to block.Port) error {
	if err := b.net.Diagram.Connect(from, to); err != nil {
		return err
	}
	b.net.Edges = append(b.net.Edges, Edge{Kind: kind, From: from, To: to})
	return nil
}

// validate rejects nil records and unknown tap names before anything is
// built, whether or not any segment ends up instrumented.
func (b *builder) validate(context.Context) error {
	if err := debugtap.Validate(0, b.a.debug.Ports); err != nil {
		return err
	}
	for i, spec := range b.specs {
		if spec == nil {
			return fmt.Errorf("%w: segment record %d is empty", config.ErrInvalidConfig, i)
		}
	}
	return nil
}

// instantiate builds one segment subsystem per record.
func (b *builder) instantiate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ic := b.a.settings.InitialConditions

	for _, spec := range b.specs {
		if prev, ok := b.net.Segments[spec.Index]; ok {
			return &DuplicateIndexError{Index: spec.Index, First: prev.Name, Second: spec.Name}
		}

		taps := b.a.debug.TapsFor(spec.Index, spec.Debug)
		params := segment.Params{
			Index: spec.Index,
			Rs:    spec.Rs * UnitScale,
			L:     spec.L * UnitScale,
			C:     spec.C * UnitScale,
			Rp:    spec.Rp,
			Fi0:   ic.IntFi,
			Po0:   ic.IntPo,
			Taps:  taps,
		}
		model, err := segment.Build(params)
		if err != nil {
			return fmt.Errorf("segment %q: %w", spec.Name, err)
		}
		blk, err := b.net.Diagram.Subsystem(model.Diagram, fmt.Sprintf("segment_%d", spec.Index))
		if err != nil {
			return err
		}

		b.net.Segments[spec.Index] = &Segment{
			Index:  spec.Index,
			Name:   spec.Name,
			Type:   spec.Type,
			Params: params,
			Model:  model,
			Block:  blk,
		}
		b.net.Order = append(b.net.Order, spec.Index)
		logger.Debug("Segment instantiated.", "segment", spec.Index, "name", spec.Name, "taps", len(taps))
	}
	return nil
}

// excitation drives the root segment's inlet pressure.
func (b *builder) excitation(ctx context.Context) error {
	root, ok := b.net.Segments[segment.RootIndex]
	if !ok {
		return &TopologyError{Index: segment.RootIndex, Reason: "root segment is not defined"}
	}
	signal := b.a.settings.InputSignal
	shape, err := block.ParseShape(signal.Waveform)
	if err != nil {
		return err
	}

	d := b.net.Diagram
	wave := d.Waveform(shape, signal.Frequency, ExcitationBlock)
	profile := d.Function(PressureProfile(signal.Amplitude, signal.Baseline), PressureProfileBlock)
	if err := b.connect(EdgeExcitation, wave.Out(0), profile.In(0)); err != nil {
		return err
	}
	if err := b.connect(EdgeExcitation, profile.Out(0), root.Block.In(segment.InPi)); err != nil {
		return err
	}
	b.net.Excitation = wave

	ctxlog.FromContext(ctx).Debug("Excitation wired.",
		"waveform", string(shape), "frequency", signal.Frequency,
		"amplitude", signal.Amplitude, "baseline", signal.Baseline)
	return nil
}

// topology resolves every record's connections, checks that they form a
// single tree rooted at the root segment, then wires parents to children.
func (b *builder) topology(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	for _, spec := range b.specs {
		topo, err := ResolveTopology(spec.Index, spec.Connections)
		if err != nil {
			return err
		}
		b.net.Segments[spec.Index].Topology = topo
	}
	if err := validateTree(b.net.Order, b.net.Segments); err != nil {
		return err
	}

	for _, idx := range b.net.Order {
		seg := b.net.Segments[idx]
		var err error
		switch seg.Topology.Kind {
		case Terminal:
			err = b.wireTerminal(seg)
		case Direct:
			err = b.wireDirect(seg, b.net.Segments[seg.Topology.Children[0]])
		case Bifurcation:
			err = b.wireBifurcation(seg)
		}
		if err != nil {
			return fmt.Errorf("segment %d: %w", idx, err)
		}
		logger.Debug("Segment wired.", "segment", idx, "topology", seg.Topology.Kind.String(), "children", seg.Topology.Children)
	}
	return nil
}

func (b *builder) wireTerminal(seg *Segment) error {
	zero := b.net.Diagram.Constant(0, fmt.Sprintf("zero_%d", seg.Index))
	return b.connect(EdgeTerminal, zero.Out(0), seg.Block.In(segment.InFo))
}

func (b *builder) wireDirect(parent, child *Segment) error {
	if err := b.connect(EdgePressure, parent.Block.Out(segment.OutPo), child.Block.In(segment.InPi)); err != nil {
		return err
	}
	return b.connect(EdgeFlow, child.Block.Out(segment.OutFi), parent.Block.In(segment.InFo))
}

func (b *builder) wireBifurcation(seg *Segment) error {
	children := seg.Topology.Children
	junction := b.net.Diagram.Sum(strings.Repeat("+", len(children)), fmt.Sprintf("junction_%d", seg.Index))
	for slot, idx := range children {
		child := b.net.Segments[idx]
		if err := b.connect(EdgePressure, seg.Block.Out(segment.OutPo), child.Block.In(segment.InPi)); err != nil {
			return err
		}
		if err := b.connect(EdgeFlow, child.Block.Out(segment.OutFi), junction.In(slot)); err != nil {
			return err
		}
	}
	if err := b.connect(EdgeJunction, junction.Out(0), seg.Block.In(segment.InFo)); err != nil {
		return err
	}
	b.net.Junctions = append(b.net.Junctions, Junction{
		Parent:   seg.Index,
		Children: slices.Clone(children),
		Block:    junction,
	})
	return nil
}

// debugSinks attaches a named sink to every tap of every instrumented
// segment and records the probe.
func (b *builder) debugSinks(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if b.a.debug.Enabled {
		for _, idx := range b.a.debug.ForIndex {
			if _, ok := b.net.Segments[idx]; !ok {
				logger.Warn("Debugger references an unknown segment, ignoring.", "segment", idx)
			}
		}
	}

	for _, idx := range b.net.Order {
		seg := b.net.Segments[idx]
		for i, port := range seg.Model.Taps {
			sink := b.net.Diagram.Sink(debugtap.SinkName(idx, port))
			out := seg.Model.TapOutput(i)
			if err := b.connect(EdgeProbe, seg.Block.Out(out), sink.In(0)); err != nil {
				return err
			}
			b.net.Probes = append(b.net.Probes, debugtap.Probe{
				Segment: idx,
				Port:    port,
				Sink:    sink.Name,
				Output:  out,
			})
		}
		if len(seg.Model.Taps) > 0 {
			logger.Debug("Debug sinks attached.", "segment", idx, "ports", seg.Model.Taps)
		}
	}
	return nil
}

// validateTree checks that the resolved connections form one tree rooted at
// the root segment: known children, no self links, one parent per child, and
// every segment reachable from the root.
func validateTree(order []int, segments map[int]*Segment) error {
	parent := make(map[int]int, len(order))
	for _, idx := range order {
		for _, child := range segments[idx].Topology.Children {
			switch {
			case child == idx:
				return &TopologyError{Index: idx, Reason: "segment cannot connect to itself"}
			case child == segment.RootIndex:
				return &TopologyError{Index: idx, Reason: fmt.Sprintf("root segment %d cannot be a child", segment.RootIndex)}
			}
			if _, ok := segments[child]; !ok {
				return &TopologyError{Index: idx, Reason: fmt.Sprintf("connection to unknown segment %d", child)}
			}
			if p, ok := parent[child]; ok {
				return &TopologyError{Index: idx, Reason: fmt.Sprintf("segment %d is already a child of segment %d", child, p)}
			}
			parent[child] = idx
		}
	}

	reached := map[int]bool{segment.RootIndex: true}
	stack := []int{segment.RootIndex}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range segments[idx].Topology.Children {
			if !reached[child] {
				reached[child] = true
				stack = append(stack, child)
			}
		}
	}
	for _, idx := range order {
		if reached[idx] {
			continue
		}
		if _, ok := parent[idx]; !ok {
			return &TopologyError{Index: idx, Reason: "segment has no parent"}
		}
		return &TopologyError{Index: idx, Reason: fmt.Sprintf("segment is on a cycle unreachable from root segment %d", segment.RootIndex)}
	}
	return nil
}

// uniqueOrdered drops repeated names, keeping the first occurrence.
func uniqueOrdered(names []string) []string {
	var out []string
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
