package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/arterialgo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Command names the action selected on the command line.
type Command string

const (
	CommandRun     Command = "run"
	CommandSweep   Command = "sweep"
	CommandReport  Command = "report"
	CommandDebugDB Command = "debugdb"
	CommandRuns    Command = "runs"
)

// Invocation is the parsed command line.
type Invocation struct {
	Command     Command
	Config      *app.Config
	Frequencies []float64
	RunSeq      int
	Format      string
}

type globalFlags struct {
	settings        string
	segments        string
	database        string
	logFormat       string
	logLevel        string
	healthcheckPort int
	workers         int
}

// Parse processes command-line arguments. It returns the Invocation, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")

	var (
		flags globalFlags
		inv   *Invocation
	)
	capture := func(cmd Command, args []string) (*Invocation, error) {
		cfg, err := flags.config(args)
		if err != nil {
			return nil, err
		}
		return &Invocation{Command: cmd, Config: cfg}, nil
	}

	root := &cobra.Command{
		Use:   "arterialgo [DATA_DIR]",
		Short: "Lumped-parameter arterial tree simulator",
		Long: `arterialgo assembles an arterial tree of Windkessel segments from a
settings file and a segment table, drives the root with a periodic pressure
wave and integrates the network.

DATA_DIR holds settings.hcl (or settings.json) and segments.hcl
(or segments.json, model_params.json).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && flags.settings == "" && flags.segments == "" {
				slog.Debug("No data directory provided, printing usage and exiting.")
				return cmd.Help()
			}
			var err error
			inv, err = capture(CommandRun, args)
			return err
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.settings, "settings", "", "Explicit settings file, overriding the lookup in DATA_DIR.")
	pf.StringVar(&flags.segments, "segments", "", "Explicit segments file, overriding the lookup in DATA_DIR.")
	pf.StringVar(&flags.database, "database", "", "Results database, overriding output.database from the settings.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&flags.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	pf.IntVar(&flags.workers, "workers", 0, "Maximum number of concurrent sweep points. 0 uses all CPUs.")

	var freqs []float64
	sweepCmd := &cobra.Command{
		Use:   "sweep [DATA_DIR]",
		Short: "Simulate the network once per inlet frequency",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(freqs) == 0 {
				return errors.New("at least one --freq is required")
			}
			for _, hz := range freqs {
				if !(hz > 0) {
					return fmt.Errorf("invalid frequency %g: must be positive", hz)
				}
			}
			var err error
			if inv, err = capture(CommandSweep, args); err == nil {
				inv.Frequencies = freqs
			}
			return err
		},
	}
	sweepCmd.Flags().Float64SliceVar(&freqs, "freq", nil, "Inlet frequencies in Hz, comma separated or repeated.")

	reportCmd := &cobra.Command{
		Use:   "report [DATA_DIR]",
		Short: "Assemble the network and print its blocks, wires and description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			inv, err = capture(CommandReport, args)
			return err
		},
	}

	var (
		runSeq int
		format string
	)
	debugCmd := &cobra.Command{
		Use:   "debugdb [DATA_DIR]",
		Short: "Print the per-segment debug statistics of a stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if runSeq < 0 {
				return fmt.Errorf("invalid run %d: must not be negative", runSeq)
			}
			var err error
			if inv, err = capture(CommandDebugDB, args); err == nil {
				inv.RunSeq = runSeq
				inv.Format, err = parseFormat(format)
			}
			return err
		},
	}
	debugCmd.Flags().IntVar(&runSeq, "run", 0, "Sequence number of the run. 0 selects the latest.")
	debugCmd.Flags().StringVar(&format, "format", app.FormatTable, "Output format. Options: 'table', 'yaml', 'json'.")

	var runsFormat string
	runsCmd := &cobra.Command{
		Use:   "runs [DATA_DIR]",
		Short: "List the stored runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if inv, err = capture(CommandRuns, args); err == nil {
				inv.Format, err = parseFormat(runsFormat)
			}
			return err
		},
	}
	runsCmd.Flags().StringVar(&runsFormat, "format", app.FormatTable, "Output format. Options: 'table', 'yaml', 'json'.")

	root.AddCommand(sweepCmd, reportCmd, debugCmd, runsCmd)

	if err := root.Execute(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if inv == nil {
		// Help was printed.
		return nil, true, nil
	}
	slog.Debug("CLI parser finished successfully.", "command", inv.Command)
	return inv, false, nil
}

func (f *globalFlags) config(args []string) (*app.Config, error) {
	logFormat := strings.ToLower(f.logFormat)
	if logFormat != "text" && logFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(f.logLevel)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	return app.NewConfig(app.Config{
		DataDir:         dir,
		SettingsFile:    f.settings,
		SegmentsFile:    f.segments,
		Database:        f.database,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: f.healthcheckPort,
		WorkerCount:     f.workers,
	})
}

func parseFormat(s string) (string, error) {
	switch f := strings.ToLower(s); f {
	case app.FormatTable, app.FormatYAML, app.FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q: must be 'table', 'yaml' or 'json'", s)
	}
}
