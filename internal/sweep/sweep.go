// Package sweep runs the assemble, compile and integrate pipeline, either once
// or for a list of inlet frequencies in parallel. Every point owns its own
// network so no state is shared between goroutines.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/ctxlog"
	"github.com/vk/arterialgo/internal/debugtap"
	"github.com/vk/arterialgo/internal/engine"
	"github.com/vk/arterialgo/internal/network"
	"golang.org/x/sync/errgroup"
)

// ErrNoFrequencies is returned by Sweep when given nothing to run.
var ErrNoFrequencies = errors.New("no frequencies to sweep")

// Observer receives assembly and simulation outcomes.
type Observer interface {
	network.Observer
	ObserveSimulation(steps int, elapsed time.Duration, err error)
}

// Outcome is one completed simulation.
type Outcome struct {
	Frequency float64
	Settings  config.Settings
	Network   *network.Network
	Result    *engine.Result
	Steps     int
	Elapsed   time.Duration
}

// DebugDB groups the recorded debug series by segment and tap.
func (o *Outcome) DebugDB() (debugtap.DB, error) {
	return debugtap.BuildDB(o.Network.Probes, o.Result.Series)
}

type options struct {
	observer Observer
	limit    int
}

// Option configures Simulate and Sweep.
type Option func(*options)

// WithObserver reports every assembly and run to o.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// WithLimit bounds the number of points simulated at once. Values below one
// mean GOMAXPROCS.
func WithLimit(n int) Option {
	return func(opts *options) {
		opts.limit = n
	}
}

func collect(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit < 1 {
		o.limit = runtime.GOMAXPROCS(0)
	}
	return o
}

// Simulate assembles the network for settings, compiles it and integrates it
// over the configured simulation time.
func Simulate(ctx context.Context, settings config.Settings, specs []*config.SegmentSpec, opts ...Option) (*Outcome, error) {
	return simulate(ctx, settings, specs, collect(opts))
}

func simulate(ctx context.Context, settings config.Settings, specs []*config.SegmentSpec, o options) (*Outcome, error) {
	logger := ctxlog.FromContext(ctx)

	var asmOpts []network.Option
	if o.observer != nil {
		asmOpts = append(asmOpts, network.WithObserver(o.observer))
	}
	net, err := network.NewAssembler(settings, asmOpts...).Assemble(ctx, specs)
	if err != nil {
		return nil, err
	}

	prog, err := engine.Compile(ctx, net.Diagram)
	if err != nil {
		return nil, err
	}

	runOpts := engine.Options{
		TimeStep: settings.Simulation.TimeStep,
		Duration: settings.Simulation.SimulationTime,
	}
	start := time.Now()
	res, err := prog.Run(ctx, runOpts)
	elapsed := time.Since(start)
	if o.observer != nil {
		o.observer.ObserveSimulation(runOpts.Steps(), elapsed, err)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Simulation finished.",
		"frequency", settings.InputSignal.Frequency,
		"samples", len(res.Time),
		"elapsed", elapsed)
	return &Outcome{
		Frequency: settings.InputSignal.Frequency,
		Settings:  settings,
		Network:   net,
		Result:    res,
		Steps:     runOpts.Steps(),
		Elapsed:   elapsed,
	}, nil
}

// Sweep simulates the network once per frequency. Outcomes are returned in
// the order of freqs. The first failure cancels the remaining points.
func Sweep(ctx context.Context, settings config.Settings, specs []*config.SegmentSpec, freqs []float64, opts ...Option) ([]*Outcome, error) {
	if len(freqs) == 0 {
		return nil, ErrNoFrequencies
	}
	o := collect(opts)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Sweep starting.", "points", len(freqs), "limit", o.limit)

	outcomes := make([]*Outcome, len(freqs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.limit)

	for i, hz := range freqs {
		g.Go(func() error {
			pointCtx := ctxlog.With(gCtx, "frequency", hz)
			out, err := simulate(pointCtx, settings.WithFrequency(hz), specs, o)
			if err != nil {
				return fmt.Errorf("frequency %g: %w", hz, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
