package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/arterialgo/internal/app"
	"github.com/vk/arterialgo/internal/cli"
	"github.com/vk/arterialgo/internal/hcl"
)

// main is the entrypoint for the arterialgo application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) (err error) {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// The app panics on critical config errors, so we recover here and turn
	// the panic into an ordinary error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.NewApp(outW, os.Stderr, inv.Config, hcl.NewLoader())

	switch inv.Command {
	case cli.CommandSweep:
		return a.Sweep(ctx, inv.Frequencies)
	case cli.CommandReport:
		return a.Report(ctx)
	case cli.CommandDebugDB:
		return a.DebugDB(ctx, inv.RunSeq, inv.Format)
	case cli.CommandRuns:
		return a.Runs(ctx, inv.Format)
	default:
		return a.Run(ctx)
	}
}
