package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/arterialgo/internal/block"
)

func TestRun_IntegratesConstant(t *testing.T) {
	d := block.New("ramp")
	c := d.Constant(2, "c")
	integ := d.Integrator(1, "x")
	sink := d.Sink("x_out")
	require.NoError(t, d.Connect(c.Out(0), integ.In(0)))
	require.NoError(t, d.Connect(integ.Out(0), sink.In(0)))

	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.NumStates())
	assert.Equal(t, []string{"x_out"}, prog.Sinks())

	res, err := prog.Run(context.Background(), Options{TimeStep: 0.1, Duration: 1})
	require.NoError(t, err)
	require.Len(t, res.Time, 11)
	series := res.Series["x_out"]
	require.Len(t, series, 11)
	assert.InDelta(t, 1.0, series[0], 1e-12)
	assert.InDelta(t, 3.0, series[10], 1e-9)
	assert.InDelta(t, 1.0, res.Time[10], 1e-12)
}

func TestRun_ExponentialDecay(t *testing.T) {
	// dx/dt = -x, x(0) = 1
	d := block.New("decay")
	integ := d.Integrator(1, "x")
	neg := d.Gain(-1, "neg")
	sink := d.Sink("x_out")
	require.NoError(t, d.Connect(integ.Out(0), neg.In(0), sink.In(0)))
	require.NoError(t, d.Connect(neg.Out(0), integ.In(0)))

	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)
	res, err := prog.Run(context.Background(), Options{TimeStep: 0.01, Duration: 1})
	require.NoError(t, err)

	got := res.Series["x_out"]
	assert.InDelta(t, math.Exp(-1), got[len(got)-1], 1e-8)
}

func TestRun_SubsystemRelays(t *testing.T) {
	inner := block.New("inner")
	in := inner.InPort(2, "in")
	out := inner.OutPort(2, "out")
	s := inner.Sum("+-", "diff")
	g := inner.Gain(10, "g")
	require.NoError(t, inner.Connect(in.Out(0), s.In(0)))
	require.NoError(t, inner.Connect(in.Out(1), s.In(1), g.In(0)))
	require.NoError(t, inner.Connect(s.Out(0), out.In(0)))
	require.NoError(t, inner.Connect(g.Out(0), out.In(1)))

	d := block.New("outer")
	a := d.Constant(5, "a")
	b := d.Constant(3, "b")
	sub, err := d.Subsystem(inner, "sub")
	require.NoError(t, err)
	diff := d.Sink("diff_out")
	scaled := d.Sink("scaled_out")
	require.NoError(t, d.Connect(a.Out(0), sub.In(0)))
	require.NoError(t, d.Connect(b.Out(0), sub.In(1)))
	require.NoError(t, d.Connect(sub.Out(0), diff.In(0)))
	require.NoError(t, d.Connect(sub.Out(1), scaled.In(0)))

	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 6, prog.NumNodes(), "relays are not part of the program")

	res, err := prog.Run(context.Background(), Options{TimeStep: 1, Duration: 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, res.Series["diff_out"])
	assert.Equal(t, []float64{30, 30}, res.Series["scaled_out"])
}

func TestRun_NestedSinkPath(t *testing.T) {
	inner := block.New("inner")
	in := inner.InPort(1, "in")
	probe := inner.Sink("probe")
	require.NoError(t, inner.Connect(in.Out(0), probe.In(0)))

	d := block.New("outer")
	c := d.Constant(7, "c")
	sub, err := d.Subsystem(inner, "sub")
	require.NoError(t, err)
	require.NoError(t, d.Connect(c.Out(0), sub.In(0)))

	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"sub/probe"}, prog.Sinks())
}

func TestRun_ClipAndFunction(t *testing.T) {
	d := block.New("shaping")
	wave := d.Waveform(block.ShapeSine, 1, "wave")
	clip := d.Clip(math.Inf(-1), 0, "clip")
	fn := d.Function(func(v float64) float64 { return v * v }, "square")
	clipped := d.Sink("clipped")
	squared := d.Sink("squared")
	require.NoError(t, d.Connect(wave.Out(0), clip.In(0), fn.In(0)))
	require.NoError(t, d.Connect(clip.Out(0), clipped.In(0)))
	require.NoError(t, d.Connect(fn.Out(0), squared.In(0)))

	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)
	res, err := prog.Run(context.Background(), Options{TimeStep: 0.01, Duration: 2})
	require.NoError(t, err)

	for i, v := range res.Series["clipped"] {
		assert.LessOrEqual(t, v, 0.0)
		assert.GreaterOrEqual(t, res.Series["squared"][i], 0.0)
	}
}

func TestCompile_AlgebraicLoop(t *testing.T) {
	d := block.New("loop")
	c := d.Constant(1, "c")
	s := d.Sum("++", "s")
	g := d.Gain(0.5, "g")
	require.NoError(t, d.Connect(c.Out(0), s.In(0)))
	require.NoError(t, d.Connect(s.Out(0), g.In(0)))
	require.NoError(t, d.Connect(g.Out(0), s.In(1)))

	_, err := Compile(context.Background(), d)
	require.ErrorIs(t, err, ErrAlgebraicLoop)
}

func TestCompile_UnconnectedInput(t *testing.T) {
	d := block.New("open")
	d.Gain(1, "g")
	_, err := Compile(context.Background(), d)
	assert.ErrorIs(t, err, block.ErrUnconnectedInput)
}

func TestRun_InvalidOptions(t *testing.T) {
	d := block.New("empty")
	c := d.Constant(1, "c")
	sink := d.Sink("s")
	require.NoError(t, d.Connect(c.Out(0), sink.In(0)))
	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)

	for _, opts := range []Options{
		{TimeStep: 0, Duration: 1},
		{TimeStep: 0.1, Duration: 0},
		{TimeStep: 1, Duration: 0.2},
		{TimeStep: math.NaN(), Duration: 1},
	} {
		_, err := prog.Run(context.Background(), opts)
		assert.ErrorIs(t, err, ErrInvalidOptions, "options %+v", opts)
	}
}

func TestRun_Cancelled(t *testing.T) {
	d := block.New("cancel")
	c := d.Constant(1, "c")
	integ := d.Integrator(0, "x")
	require.NoError(t, d.Connect(c.Out(0), integ.In(0)))
	prog, err := Compile(context.Background(), d)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = prog.Run(ctx, Options{TimeStep: 0.1, Duration: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
