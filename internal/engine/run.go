package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/vk/arterialgo/internal/block"
	"github.com/vk/arterialgo/internal/ctxlog"
)

// ErrInvalidOptions is returned for a non-positive step or duration.
var ErrInvalidOptions = errors.New("invalid run options")

// Options configures a run.
type Options struct {
	// TimeStep is the fixed integration step in seconds.
	TimeStep float64
	// Duration is the simulated time span in seconds.
	Duration float64
}

// Result holds the recorded time vector and one series per sink path.
type Result struct {
	Time   []float64
	Series map[string][]float64
}

// Steps returns the number of integration steps for the options.
func (o Options) Steps() int {
	return int(math.Round(o.Duration / o.TimeStep))
}

func (o Options) validate() error {
	if !(o.TimeStep > 0) || math.IsInf(o.TimeStep, 0) {
		return fmt.Errorf("%w: time step %v must be positive", ErrInvalidOptions, o.TimeStep)
	}
	if !(o.Duration > 0) || math.IsInf(o.Duration, 0) {
		return fmt.Errorf("%w: duration %v must be positive", ErrInvalidOptions, o.Duration)
	}
	if o.Steps() < 1 {
		return fmt.Errorf("%w: duration %v is shorter than one step of %v", ErrInvalidOptions, o.Duration, o.TimeStep)
	}
	return nil
}

// Run integrates the program from t=0 to Duration. Samples are recorded at
// t=0 and after every step. The context is checked once per step.
func (p *Program) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)
	steps := opts.Steps()
	logger.Debug("Run: integration starting.", "steps", steps, "time_step", opts.TimeStep, "states", len(p.states))

	res := &Result{
		Time:   make([]float64, 0, steps+1),
		Series: make(map[string][]float64, len(p.sinks)),
	}
	for _, idx := range p.sinks {
		res.Series[p.nodes[idx].path] = make([]float64, 0, steps+1)
	}

	n := len(p.states)
	x := make([]float64, n)
	for i, idx := range p.states {
		x[i] = p.nodes[idx].block.X0
	}
	vals := make([]float64, len(p.nodes))
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	tmp := make([]float64, n)

	h := opts.TimeStep
	t := 0.0
	if err := p.record(res, t, x, vals); err != nil {
		return nil, err
	}
	for step := 1; step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled at t=%g: %w", t, err)
		}

		p.derivatives(t, x, vals, k1)
		axpy(tmp, x, h/2, k1)
		p.derivatives(t+h/2, tmp, vals, k2)
		axpy(tmp, x, h/2, k2)
		p.derivatives(t+h/2, tmp, vals, k3)
		axpy(tmp, x, h, k3)
		p.derivatives(t+h, tmp, vals, k4)
		for i := range x {
			x[i] += h / 6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
		}
		t = float64(step) * h

		if err := p.record(res, t, x, vals); err != nil {
			return nil, err
		}
	}

	logger.Debug("Run: integration finished.", "samples", len(res.Time))
	return res, nil
}

// evaluate computes every node output for time t and state x.
func (p *Program) evaluate(t float64, x, vals []float64) {
	for i, idx := range p.states {
		vals[idx] = x[i]
	}
	for idx := range p.nodes {
		b := p.nodes[idx].block
		switch b.Kind {
		case block.KindConstant:
			vals[idx] = b.Value
		case block.KindWaveform:
			vals[idx] = b.Shape.Eval(t, b.Frequency)
		}
	}
	for _, idx := range p.order {
		n := &p.nodes[idx]
		b := n.block
		switch b.Kind {
		case block.KindGain:
			vals[idx] = b.Gain * vals[n.inputs[0]]
		case block.KindSum:
			var s float64
			for i, src := range n.inputs {
				if b.Signs[i] == '-' {
					s -= vals[src]
				} else {
					s += vals[src]
				}
			}
			vals[idx] = s
		case block.KindClip:
			vals[idx] = math.Min(math.Max(vals[n.inputs[0]], b.Min), b.Max)
		case block.KindFunction:
			vals[idx] = b.Fn(vals[n.inputs[0]])
		case block.KindSink:
			vals[idx] = vals[n.inputs[0]]
		}
	}
}

// derivatives fills dx with the integrator inputs at (t, x).
func (p *Program) derivatives(t float64, x, vals, dx []float64) {
	p.evaluate(t, x, vals)
	for i, idx := range p.states {
		dx[i] = vals[p.nodes[idx].inputs[0]]
	}
}

func (p *Program) record(res *Result, t float64, x, vals []float64) error {
	p.evaluate(t, x, vals)
	res.Time = append(res.Time, t)
	for _, idx := range p.sinks {
		v := vals[idx]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("sink %q diverged at t=%g", p.nodes[idx].path, t)
		}
		path := p.nodes[idx].path
		res.Series[path] = append(res.Series[path], v)
	}
	return nil
}

// axpy sets dst = x + a*y.
func axpy(dst, x []float64, a float64, y []float64) {
	for i := range dst {
		dst[i] = x[i] + a*y[i]
	}
}
