package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/torosent/confreq/internal/catalog"
	"github.com/torosent/confreq/internal/config"
	"github.com/torosent/confreq/internal/httpclient"
	"github.com/torosent/confreq/internal/logging"
	"github.com/torosent/confreq/internal/metrics"
	"github.com/torosent/confreq/internal/tracing"
	"github.com/torosent/confreq/pkg/request"
)

const shutdownTimeout = 5 * time.Second

// app holds what every command shares once settings are loaded.
type app struct {
	stdout io.Writer
	stderr io.Writer

	settings  *config.Settings
	logger    *zap.Logger
	closeLog  func() error
	tracing   *tracing.Provider
	collector *metrics.Collector

	// transport replaces the HTTP transport; tests set it.
	transport request.Transport

	catalog  *catalog.Catalog
	registry *request.Registry
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:    stdout,
		stderr:    stderr,
		logger:    zap.NewNop(),
		collector: metrics.NewCollector(),
	}
}

// setup loads settings and builds the logger and the tracer.
func (a *app) setup(cmd *cobra.Command) error {
	settings, err := config.NewLoader().Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	a.settings = settings

	logger, closeLog, err := logging.New(settings.Log)
	if err != nil {
		return err
	}
	a.logger, a.closeLog = logger, closeLog

	provider, err := tracing.Init(cmd.Context(), settings.Tracing)
	if err != nil {
		return err
	}
	a.tracing = provider

	a.logger.Debug("settings loaded",
		zap.String("config_file", settings.ConfigFile),
		zap.Bool("mock", settings.Mock || settings.AltMock),
		zap.String("network_delay", settings.NetworkDelay),
		zap.String("catalog", settings.CatalogPath))
	return nil
}

func (a *app) close() {
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

// templateOptions are the collaborators every compiled template gets.
func (a *app) templateOptions() []request.Option {
	transport := a.transport
	if transport == nil {
		transport = request.NewHTTPTransport(a.settings.Timeout,
			httpclient.WithUserAgent(a.settings.UserAgent),
			httpclient.WithPropagation(a.tracing.ShouldPropagate()),
		)
	}
	opts := []request.Option{
		request.WithDefaults(a.settings.Defaults()),
		request.WithTransport(transport),
		request.WithLogger(a.logger),
		request.WithObserver(a.collector),
	}
	if a.settings.Tracing.Enabled() {
		opts = append(opts, request.WithTracer(a.tracing.Tracer()))
	}
	return opts
}

// templates loads and compiles the catalog once.
func (a *app) templates() (*request.Registry, error) {
	if a.registry != nil {
		return a.registry, nil
	}
	if a.settings.CatalogPath == "" {
		return nil, errors.New("no endpoint catalog configured; use --catalog or CONFREQ_CATALOG")
	}
	c, err := catalog.Load(a.settings.CatalogPath)
	if err != nil {
		return nil, err
	}
	reg, err := c.Compile(a.templateOptions()...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("catalog compiled",
		zap.String("path", a.settings.CatalogPath),
		zap.Int("endpoints", len(c.Endpoints)))
	a.catalog, a.registry = c, reg
	return reg, nil
}

func (a *app) endpoint(name string) (*request.Template, error) {
	reg, err := a.templates()
	if err != nil {
		return nil, err
	}
	t, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q (known: %v)", name, reg.Names())
	}
	return t, nil
}
