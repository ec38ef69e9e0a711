package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/mammoth/internal/config"
	"github.com/vk/mammoth/internal/ctxlog"
	"github.com/vk/mammoth/internal/loader"
	"github.com/vk/mammoth/pkg/diagnostics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	instanceID uuid.UUID
	file       *config.File

	registry *prometheus.Registry
	set      *loader.Set
	fileSink diagnostics.Logger
	closers  []io.Closer

	httpServer *http.Server
	onReady    func()
}

// Option customizes an App.
type Option func(*options)

type options struct {
	opener   loader.Opener
	registry *prometheus.Registry
	onReady  func()
}

// WithOpener replaces the Go plugin opener used to load module libraries.
func WithOpener(o loader.Opener) Option {
	return func(opts *options) { opts.opener = o }
}

// WithRegistry registers the application's metrics on reg instead of a
// private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(opts *options) { opts.registry = reg }
}

// WithOnReady calls fn once all modules are loaded and the App is serving.
func WithOnReady(fn func()) Option {
	return func(opts *options) { opts.onReady = fn }
}

// NewApp is the constructor for the main application. It builds its own
// isolated logger, reads the configuration document through cfgLoader and
// prepares the module set. Nothing is validated or loaded yet.
func NewApp(outW io.Writer, appConfig *Config, cfgLoader config.Loader, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	file, err := cfgLoader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.",
		"hosts", len(file.Hosts), "global_modules", len(file.Modules))

	a := &App{
		outW:       outW,
		logger:     logger,
		config:     appConfig,
		loader:     cfgLoader,
		instanceID: uuid.New(),
		file:       file,
		registry:   o.registry,
		onReady:    o.onReady,
	}
	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
	}

	sink, closer := openLogFile(logger, file.Mammoth)
	setOpts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithMetrics(loader.NewMetrics(a.registry)),
	}
	if sink != nil {
		a.fileSink = sink
		a.closers = append(a.closers, closer)
		setOpts = append(setOpts, loader.WithDiagnostics(sink))
	}
	if o.opener != nil {
		setOpts = append(setOpts, loader.WithOpener(o.opener))
	}
	a.set = loader.NewSet(file.Mammoth.ModsDir, setOpts...)

	logger.Info("Mammoth host initialized.", "instance", a.instanceID.String())
	return a, nil
}

// File returns the configuration the App was started with.
func (a *App) File() *config.File {
	return a.file
}

// Modules returns the loaded module set. This is primarily for testing.
func (a *App) Modules() *loader.Set {
	return a.set
}

// reporter returns the logger validators and modules report through.
func (a *App) reporter() diagnostics.Logger {
	var d diagnostics.Logger = diagnostics.NewSlogLogger(a.logger)
	if a.fileSink != nil {
		d = diagnostics.Multi{d, a.fileSink}
	}
	return d
}

// Validate runs every configuration check against the current file,
// including each module's own validation hook.
func (a *App) Validate(ctx context.Context) error {
	return a.validateFile(ctx, a.File())
}

func (a *App) validateFile(ctx context.Context, f *config.File) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Validating configuration.")

	v := config.FileValidator{Prober: a.set}
	if err := v.Validate(a.reporter(), f); err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	logger.Info("Configuration is valid.")
	return nil
}

// Close releases the log file. Modules are shut down by Run.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
