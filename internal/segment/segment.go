// Package segment builds the lumped-parameter circuit of one arterial segment
// (Wesseling model) as a signal-flow diagram:
//
//	dFi/dt = (Pi - Po - Rs*Fi) / L
//	dPo/dt = (Fi - Fo - Po/Rp) / C    (the Po/Rp term only when Rp is given)
//
// Inputs are [Pi, Fo]; outputs are [Po, Fi, taps...], without Fi for the
// root segment.
package segment

import (
	"errors"
	"fmt"
	"math"

	"github.com/vk/arterialgo/internal/block"
	"github.com/vk/arterialgo/internal/debugtap"
)

// Port positions on the segment boundary.
const (
	InPi  = 0
	InFo  = 1
	OutPo = 0
	OutFi = 1
)

// RootIndex is the proximal (aortic) segment. It has no parent, emits no Fi
// and carries the one-way valve clip.
const RootIndex = 1

// Names of the blocks inside a segment diagram.
const (
	BlockIn    = "in"
	BlockOut   = "out"
	BlockInvL  = "k_invl"
	BlockInvC  = "k_invc"
	BlockRs    = "k_rs"
	BlockInvRp = "k_1rp"
	BlockIntFi = "int_fi"
	BlockIntPo = "int_po"
	BlockSumF  = "sum_f"
	BlockSumP  = "sum_p"
	BlockClip  = "clip_fi"
	BlockPo    = "po"
	BlockFi    = "fi"
)

// ErrInvalidParameter is returned for parameters that make the circuit singular.
var ErrInvalidParameter = errors.New("invalid segment parameter")

// Params are the simulation-unit parameters of one segment.
type Params struct {
	Index int
	Rs    float64
	L     float64
	C     float64
	// Rp is nil when the segment has no peripheral resistance.
	Rp *float64
	// Fi0 and Po0 are the physical initial flow and distal pressure.
	Fi0 float64
	Po0 float64
	// Taps lists the internal signals exposed as trailing outputs, in order.
	Taps []string
}

// Model is a built segment circuit.
type Model struct {
	Index   int
	Diagram *block.Diagram
	Taps    []string
}

// Build constructs the segment circuit. It is deterministic: identical params
// produce structurally identical diagrams.
func Build(p Params) (*Model, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := debugtap.Validate(p.Index, p.Taps); err != nil {
		return nil, err
	}

	root := p.Index == RootIndex
	d := block.New(fmt.Sprintf("segment_%d", p.Index))

	in := d.InPort(2, BlockIn)
	out := d.OutPort(boundaryOutputs(p.Index)+len(p.Taps), BlockOut)

	kInvL := d.Gain(-1.0/p.L, BlockInvL)
	kInvC := d.Gain(-1.0/p.C, BlockInvC)
	kRs := d.Gain(p.Rs, BlockRs)

	// The integrators hold L*Fi and C*Po.
	intFi := d.Integrator(p.L*p.Fi0, BlockIntFi)
	intPo := d.Integrator(p.C*p.Po0, BlockIntPo)

	// Pi + (-Po) + (-Rs*Fi)
	sumF := d.Sum("+++", BlockSumF)

	// -(-Fi) - Fo [+ (-Po/Rp)]
	var sumP *block.Block
	var kInvRp *block.Block
	if p.Rp != nil {
		sumP = d.Sum("--+", BlockSumP)
		kInvRp = d.Gain(1.0 / *p.Rp, BlockInvRp)
	} else {
		sumP = d.Sum("--", BlockSumP)
	}

	w := &wiring{d: d}
	w.connect(in.Out(InPi), sumF.In(0))
	w.connect(kInvC.Out(0), sumF.In(1))
	w.connect(kRs.Out(0), sumF.In(2))
	w.connect(sumF.Out(0), intFi.In(0))
	w.connect(intFi.Out(0), kInvL.In(0))

	negFi := kInvL.Out(0)
	if root {
		clip := d.Clip(math.Inf(-1), 0, BlockClip)
		w.connect(negFi, clip.In(0))
		negFi = clip.Out(0)
	}
	w.connect(negFi, kRs.In(0), sumP.In(0))
	w.connect(in.Out(InFo), sumP.In(1))
	if kInvRp != nil {
		w.connect(kInvC.Out(0), kInvRp.In(0))
		w.connect(kInvRp.Out(0), sumP.In(2))
	}
	w.connect(sumP.Out(0), intPo.In(0))
	w.connect(intPo.Out(0), kInvC.In(0))

	// Boundary outputs undo the internal negation.
	po := d.Gain(-1, BlockPo)
	w.connect(kInvC.Out(0), po.In(0))
	w.connect(po.Out(0), out.In(OutPo))
	if !root {
		fi := d.Gain(-1, BlockFi)
		w.connect(negFi, fi.In(0))
		w.connect(fi.Out(0), out.In(OutFi))
	}

	signals := map[string]block.Port{
		debugtap.PortPi:    in.Out(InPi),
		debugtap.PortFo:    in.Out(InFo),
		debugtap.PortRsFi:  kRs.Out(0),
		debugtap.PortNegFi: negFi,
		debugtap.PortNegPo: kInvC.Out(0),
		debugtap.PortIntFi: intFi.Out(0),
		debugtap.PortIntPo: intPo.Out(0),
	}
	base := boundaryOutputs(p.Index)
	for i, name := range p.Taps {
		w.connect(signals[name], out.In(base+i))
	}

	if w.err != nil {
		return nil, fmt.Errorf("segment %d: %w", p.Index, w.err)
	}

	return &Model{
		Index:   p.Index,
		Diagram: d,
		Taps:    append([]string(nil), p.Taps...),
	}, nil
}

// boundaryOutputs is the number of non-debug outputs of a segment.
func boundaryOutputs(index int) int {
	if index == RootIndex {
		return 1
	}
	return 2
}

func validate(p Params) error {
	if p.Index < 1 {
		return fmt.Errorf("%w: segment index %d must be positive", ErrInvalidParameter, p.Index)
	}
	if p.L == 0 || math.IsNaN(p.L) {
		return fmt.Errorf("%w: segment %d: inductance must be non-zero", ErrInvalidParameter, p.Index)
	}
	if p.C == 0 || math.IsNaN(p.C) {
		return fmt.Errorf("%w: segment %d: compliance must be non-zero", ErrInvalidParameter, p.Index)
	}
	if p.Rp != nil && (*p.Rp == 0 || math.IsNaN(*p.Rp)) {
		return fmt.Errorf("%w: segment %d: peripheral resistance must be non-zero", ErrInvalidParameter, p.Index)
	}
	return nil
}

// wiring keeps the first connection error so the build reads linearly.
type wiring struct {
	d   *block.Diagram
	err error
}

func (w *wiring) connect(from block.Port, to ...block.Port) {
	if w.err != nil {
		return
	}
	w.err = w.d.Connect(from, to...)
}

// NumOutputs returns the total output arity including taps.
func (m *Model) NumOutputs() int {
	return boundaryOutputs(m.Index) + len(m.Taps)
}

// HasFlowOutput reports whether the segment exposes Fi.
func (m *Model) HasFlowOutput() bool {
	return m.Index != RootIndex
}

// TapOutput returns the output position of the i-th tap.
func (m *Model) TapOutput(i int) int {
	return boundaryOutputs(m.Index) + i
}

// Gain returns the multiplier of a named gain block, for inspection.
func (m *Model) Gain(name string) (float64, bool) {
	b, ok := m.Diagram.Block(name)
	if !ok || b.Kind != block.KindGain {
		return 0, false
	}
	return b.Gain, true
}
