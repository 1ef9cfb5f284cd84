package app

import (
	"context"
	"fmt"

	"github.com/vk/arterialgo/internal/ctxlog"
	"github.com/vk/arterialgo/internal/network"
	"github.com/vk/arterialgo/internal/results"
	"github.com/vk/arterialgo/internal/sweep"
)

// Run executes one simulation of the loaded model.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	model, err := a.requireModel()
	if err != nil {
		return err
	}
	settings := model.Settings

	a.startHealthCheckServer()
	defer a.closeHealthCheckServer()

	a.logger.Info("Starting simulation.",
		"segments", len(model.Segments),
		"frequency", settings.InputSignal.Frequency,
		"simulation_time", settings.Simulation.SimulationTime,
		"time_step", settings.Simulation.TimeStep)
	out, err := sweep.Simulate(ctx, settings, model.Segments, sweep.WithObserver(a.metrics))
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	a.logger.Info("Simulation finished.", "samples", len(out.Result.Time), "elapsed", out.Elapsed)

	if settings.Simulation.Report {
		if err := a.writeReport(out.Network); err != nil {
			return err
		}
	}

	db, err := out.DebugDB()
	if err != nil {
		return fmt.Errorf("failed to build debug database: %w", err)
	}
	if len(db) > 0 {
		if err := writeDebugTable(a.outW, db.Summary()); err != nil {
			return err
		}
	}

	if settings.Output.SaveResults {
		if _, err := a.save(ctx, out); err != nil {
			return err
		}
	}

	if settings.Simulation.Block {
		a.logger.Info("Blocking until interrupted.")
		<-ctx.Done()
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// Sweep simulates the loaded model once per frequency.
func (a *App) Sweep(ctx context.Context, freqs []float64) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	model, err := a.requireModel()
	if err != nil {
		return err
	}

	a.startHealthCheckServer()
	defer a.closeHealthCheckServer()

	a.logger.Info("Starting sweep.", "points", len(freqs), "workers", a.config.WorkerCount)
	outcomes, err := sweep.Sweep(ctx, model.Settings, model.Segments, freqs,
		sweep.WithLimit(a.config.WorkerCount),
		sweep.WithObserver(a.metrics))
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	labels := make([]string, len(outcomes))
	if model.Settings.Output.SaveResults {
		store, err := results.Open(ctx, a.databasePath())
		if err != nil {
			return err
		}
		defer store.Close()
		for i, out := range outcomes {
			run, err := a.saveTo(ctx, store, out)
			if err != nil {
				return err
			}
			labels[i] = run.Label
		}
	}

	a.logger.Info("Sweep finished.", "points", len(outcomes))
	return writeSweepTable(a.outW, outcomes, labels)
}

// Report assembles the loaded model without simulating it and writes the
// block report followed by the YAML network description.
func (a *App) Report(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	model, err := a.requireModel()
	if err != nil {
		return err
	}
	net, err := network.NewAssembler(model.Settings, network.WithObserver(a.metrics)).Assemble(ctx, model.Segments)
	if err != nil {
		return fmt.Errorf("assembly failed: %w", err)
	}
	return a.writeReport(net)
}

// DebugDB prints the per-segment debug statistics of a stored run. A seq of
// zero selects the latest run.
func (a *App) DebugDB(ctx context.Context, seq int, format string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	store, err := results.Open(ctx, a.databasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	var run *results.Run
	if seq > 0 {
		run, err = store.Get(ctx, seq)
	} else {
		run, err = store.Latest(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	db, err := run.DebugDB()
	if err != nil {
		return fmt.Errorf("run %s: %w", run.Label, err)
	}
	a.logger.Debug("Debug database rebuilt.", "run", run.Label, "segments", len(db))

	summary := db.Summary()
	if format == FormatTable {
		fmt.Fprintf(a.outW, "%s (%s)\n", run.Label, run.ID)
		return writeDebugTable(a.outW, summary)
	}
	return encode(a.outW, format, debugReport{Run: run.Label, ID: run.ID, Segments: summary})
}

// Runs lists the stored runs.
func (a *App) Runs(ctx context.Context, format string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	store, err := results.Open(ctx, a.databasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if format == FormatTable {
		return writeRunsTable(a.outW, runs)
	}
	return encode(a.outW, format, runs)
}

func (a *App) writeReport(net *network.Network) error {
	if err := net.Diagram.Report(a.outW); err != nil {
		return fmt.Errorf("failed to write block report: %w", err)
	}
	if err := net.WriteYAML(a.outW); err != nil {
		return fmt.Errorf("failed to write network description: %w", err)
	}
	return nil
}

func (a *App) save(ctx context.Context, out *sweep.Outcome) (*results.Run, error) {
	store, err := results.Open(ctx, a.databasePath())
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return a.saveTo(ctx, store, out)
}

func (a *App) saveTo(ctx context.Context, store *results.Store, out *sweep.Outcome) (*results.Run, error) {
	run := &results.Run{
		Settings: out.Settings,
		Time:     out.Result.Time,
		Series:   out.Result.Series,
		Probes:   out.Network.Probes,
	}
	if err := store.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save results: %w", err)
	}
	a.metrics.ObserveSave()
	a.logger.Info("Results saved.", "run", run.Label, "id", run.ID, "database", a.databasePath())
	return run, nil
}
