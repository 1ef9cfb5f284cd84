package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/arterialgo/internal/config"
	"github.com/vk/arterialgo/internal/ctxlog"
	"github.com/vk/arterialgo/internal/metrics"
)

// ErrNoModel is returned by commands that need a loaded configuration when
// none was given.
var ErrNoModel = errors.New("no configuration loaded: give a data directory or settings and segments files")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	metrics    *metrics.Registry
	httpServer *http.Server
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. When cfg names a configuration source it is loaded
// and validated; a failure to do so is a fatal startup error and panics.
func NewApp(outW, logW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:     ctx,
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: metrics.NewRegistry(),
	}

	if !cfg.HasSource() {
		logger.Debug("No configuration source given, skipping model load.")
		return a
	}

	model, err := loader.Load(ctx, config.Source{
		Dir:          cfg.DataDir,
		SettingsFile: cfg.SettingsFile,
		SegmentsFile: cfg.SegmentsFile,
	})
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	a.model = model
	logger.Debug("Configuration loaded.", "segments", len(model.Segments))
	return a
}

// Model returns the loaded configuration model, or nil.
func (a *App) Model() *config.Model {
	return a.model
}

// Metrics returns the application's metrics registry.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// databasePath picks the results database: the explicit override, then the
// loaded settings, then the default.
func (a *App) databasePath() string {
	if a.config.Database != "" {
		return a.config.Database
	}
	if a.model != nil {
		return a.model.Settings.Output.Database
	}
	return config.DefaultSettings().Output.Database
}

func (a *App) requireModel() (*config.Model, error) {
	if a.model == nil {
		return nil, ErrNoModel
	}
	return a.model, nil
}
