package segment

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/arterialgo/internal/block"
	"github.com/vk/arterialgo/internal/debugtap"
	"github.com/vk/arterialgo/internal/engine"
)

func ptr(v float64) *float64 { return &v }

// harness drives a single segment with constant Pi and Fo and records every
// output of the segment in a sink named out<i>.
func harness(t *testing.T, m *Model, pi func(*block.Diagram) *block.Block, fo float64) *block.Diagram {
	t.Helper()
	d := block.New("harness")
	sub, err := d.Subsystem(m.Diagram, "seg")
	require.NoError(t, err)
	src := pi(d)
	foSrc := d.Constant(fo, "fo")
	require.NoError(t, d.Connect(src.Out(0), sub.In(InPi)))
	require.NoError(t, d.Connect(foSrc.Out(0), sub.In(InFo)))
	for i := 0; i < m.NumOutputs(); i++ {
		sink := d.Sink(outName(i))
		require.NoError(t, d.Connect(sub.Out(i), sink.In(0)))
	}
	return d
}

func outName(i int) string { return "out" + string(rune('0'+i)) }

func constantPi(v float64) func(*block.Diagram) *block.Block {
	return func(d *block.Diagram) *block.Block { return d.Constant(v, "pi") }
}

func simulate(t *testing.T, d *block.Diagram, dt, duration float64) *engine.Result {
	t.Helper()
	prog, err := engine.Compile(context.Background(), d)
	require.NoError(t, err)
	res, err := prog.Run(context.Background(), engine.Options{TimeStep: dt, Duration: duration})
	require.NoError(t, err)
	return res
}

func last(series []float64) float64 { return series[len(series)-1] }

func TestBuild_OutputArity(t *testing.T) {
	t.Run("root exposes only Po", func(t *testing.T) {
		m, err := Build(Params{Index: 1, Rs: 1, L: 1, C: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, m.NumOutputs())
		assert.False(t, m.HasFlowOutput())
		assert.Equal(t, 1, m.Diagram.OutPortBlock().NumInputs())
		assert.Equal(t, 2, m.Diagram.InPortBlock().NumOutputs())
	})

	t.Run("other segments expose Po and Fi", func(t *testing.T) {
		m, err := Build(Params{Index: 2, Rs: 1, L: 1, C: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, m.NumOutputs())
		assert.True(t, m.HasFlowOutput())
	})

	t.Run("taps trail the boundary outputs", func(t *testing.T) {
		taps := []string{debugtap.PortNegPo, debugtap.PortPi}
		root, err := Build(Params{Index: 1, Rs: 1, L: 1, C: 1, Taps: taps})
		require.NoError(t, err)
		assert.Equal(t, 3, root.NumOutputs())
		assert.Equal(t, 1, root.TapOutput(0))

		other, err := Build(Params{Index: 5, Rs: 1, L: 1, C: 1, Taps: taps})
		require.NoError(t, err)
		assert.Equal(t, 4, other.NumOutputs())
		assert.Equal(t, 3, other.TapOutput(1))
	})
}

func TestBuild_Gains(t *testing.T) {
	m, err := Build(Params{Index: 3, Rs: 2, L: 4, C: 0.5, Rp: ptr(8)})
	require.NoError(t, err)

	cases := map[string]float64{
		BlockInvL:  -0.25,
		BlockInvC:  -2,
		BlockRs:    2,
		BlockInvRp: 0.125,
		BlockPo:    -1,
		BlockFi:    -1,
	}
	for name, want := range cases {
		got, ok := m.Gain(name)
		require.True(t, ok, name)
		assert.InDelta(t, want, got, 1e-15, name)
	}
	_, ok := m.Gain(BlockSumF)
	assert.False(t, ok, "a summing junction is not a gain")
}

func TestBuild_PeripheralResistanceIsStructurallyAbsent(t *testing.T) {
	without, err := Build(Params{Index: 2, Rs: 1, L: 1, C: 1})
	require.NoError(t, err)
	_, ok := without.Diagram.Block(BlockInvRp)
	assert.False(t, ok)
	sumP, ok := without.Diagram.Block(BlockSumP)
	require.True(t, ok)
	assert.Equal(t, "--", sumP.Signs)

	with, err := Build(Params{Index: 2, Rs: 1, L: 1, C: 1, Rp: ptr(1)})
	require.NoError(t, err)
	_, ok = with.Diagram.Block(BlockInvRp)
	assert.True(t, ok)
	sumP, ok = with.Diagram.Block(BlockSumP)
	require.True(t, ok)
	assert.Equal(t, "--+", sumP.Signs)
}

func TestBuild_InitialConditionsAreScaledIntoIntegrators(t *testing.T) {
	m, err := Build(Params{Index: 2, Rs: 1, L: 0.5, C: 2, Fi0: 3, Po0: 80})
	require.NoError(t, err)
	intFi, _ := m.Diagram.Block(BlockIntFi)
	intPo, _ := m.Diagram.Block(BlockIntPo)
	assert.InDelta(t, 1.5, intFi.X0, 1e-12)
	assert.InDelta(t, 160, intPo.X0, 1e-12)

	res := simulate(t, harness(t, m, constantPi(80), 0), 0.001, 0.001)
	assert.InDelta(t, 80, res.Series["out0"][0], 1e-9, "Po starts at Po0")
	assert.InDelta(t, 3, res.Series["out1"][0], 1e-9, "Fi starts at Fi0")
}

func TestDynamics_SteadyStateIsPhysicallySigned(t *testing.T) {
	// With Fo = 0 the steady state is Fi = Po/Rp and Po = Pi*Rp/(Rp+Rs).
	m, err := Build(Params{Index: 2, Rs: 1, L: 0.01, C: 0.1, Rp: ptr(1)})
	require.NoError(t, err)

	res := simulate(t, harness(t, m, constantPi(100), 0), 0.001, 3)
	assert.InDelta(t, 50, last(res.Series["out0"]), 1e-3, "Po")
	assert.InDelta(t, 50, last(res.Series["out1"]), 1e-3, "Fi")
}

func TestDynamics_RemovingRpChangesPo(t *testing.T) {
	params := Params{Index: 2, Rs: 1, L: 0.01, C: 0.1}
	without, err := Build(params)
	require.NoError(t, err)
	params.Rp = ptr(1)
	with, err := Build(params)
	require.NoError(t, err)

	resWithout := simulate(t, harness(t, without, constantPi(100), 0), 0.001, 1)
	resWith := simulate(t, harness(t, with, constantPi(100), 0), 0.001, 1)

	var maxDiff float64
	for i := range resWith.Series["out0"] {
		maxDiff = math.Max(maxDiff, math.Abs(resWith.Series["out0"][i]-resWithout.Series["out0"][i]))
	}
	assert.Greater(t, maxDiff, 1.0)
	// Without a peripheral path and no outflow the pressure settles at Pi.
	assert.InDelta(t, 100, last(resWithout.Series["out0"]), 1e-2)
}

func TestDynamics_RootClipNeverAllowsBackflow(t *testing.T) {
	m, err := Build(Params{
		Index: 1, Rs: 0.5, L: 0.01, C: 0.1, Rp: ptr(1),
		Taps: []string{debugtap.PortNegFi, debugtap.PortRsFi, debugtap.PortIntFi},
	})
	require.NoError(t, err)

	sine := func(d *block.Diagram) *block.Block {
		wave := d.Waveform(block.ShapeSine, 2, "wave")
		scale := d.Gain(60, "scale")
		require.NoError(t, d.Connect(wave.Out(0), scale.In(0)))
		return scale
	}
	res := simulate(t, harness(t, m, sine, 0), 0.001, 2)

	negFi := res.Series["out1"]
	rsFi := res.Series["out2"]
	intFi := res.Series["out3"]
	var sawNegativeState bool
	for i := range negFi {
		assert.LessOrEqual(t, negFi[i], 0.0, "sample %d", i)
		assert.LessOrEqual(t, rsFi[i], 0.0, "sample %d", i)
		if intFi[i] < 0 {
			sawNegativeState = true
		}
	}
	assert.True(t, sawNegativeState, "the unclipped flow state should reverse under a negative drive")
}

func TestBuild_UnknownTap(t *testing.T) {
	_, err := Build(Params{Index: 4, Rs: 1, L: 1, C: 1, Taps: []string{"Pi", "bogus"}})
	require.ErrorIs(t, err, debugtap.ErrUnknownDebugPort)

	var portErr *debugtap.UnknownPortError
	require.ErrorAs(t, err, &portErr)
	assert.Equal(t, 4, portErr.Segment)
	assert.Equal(t, []string{"Pi", "Fo", "-Rs*Fi", "-Fi", "-Po", "int_fi", "int_po"}, portErr.Available)
}

func TestBuild_InvalidParameters(t *testing.T) {
	for name, p := range map[string]Params{
		"zero index":      {Index: 0, Rs: 1, L: 1, C: 1},
		"zero inductance": {Index: 2, Rs: 1, L: 0, C: 1},
		"zero compliance": {Index: 2, Rs: 1, L: 1, C: 0},
		"zero peripheral": {Index: 2, Rs: 1, L: 1, C: 1, Rp: ptr(0)},
		"nan compliance":  {Index: 2, Rs: 1, L: 1, C: math.NaN()},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Build(p)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	p := Params{Index: 2, Rs: 1, L: 2, C: 3, Rp: ptr(4), Taps: []string{debugtap.PortFo}}
	a, err := Build(p)
	require.NoError(t, err)
	b, err := Build(p)
	require.NoError(t, err)

	var ra, rb bytes.Buffer
	require.NoError(t, a.Diagram.Report(&ra))
	require.NoError(t, b.Diagram.Report(&rb))
	assert.Equal(t, ra.String(), rb.String())
	assert.NoError(t, a.Diagram.Validate())
}
