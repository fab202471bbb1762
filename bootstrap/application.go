// Package bootstrap provides application implementation
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/najoast/simactor/config"
	"github.com/najoast/simactor/core"
	"github.com/najoast/simactor/logging"
	"github.com/najoast/simactor/trace"
	"golang.org/x/exp/slices"
)

// Options contains configuration options for creating an Application
type Options struct {
	// Stdout receives printed messages. Defaults to os.Stdout.
	Stdout io.Writer

	// Logger overrides the logger built from the log configuration
	Logger *slog.Logger
}

// Application runs a Model against a configuration, and reruns it when a
// watched configuration file changes.
type Application struct {
	model  Model
	opts   Options
	config *config.Config

	logger   *slog.Logger
	closeLog func() error

	watcher *config.Watcher
	reloads chan *config.Config

	listeners []func(LifecycleEvent)

	// mutex protects concurrent access
	mutex sync.Mutex

	// running indicates if a run is in progress
	running bool
}

// NewApplication creates a new application for model
func NewApplication(model Model, opts Options) *Application {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Application{
		model:    model,
		opts:     opts,
		logger:   opts.Logger,
		closeLog: func() error { return nil },
		reloads:  make(chan *config.Config, 1),
	}
}

// Configure validates cfg and rebuilds the logger from it
func (app *Application) Configure(cfg *config.Config) error {
	if err := app.configure(cfg); err != nil {
		return err
	}
	app.broadcastEvent(LifecycleEvent{Type: EventConfigured, Model: app.modelName(), Timestamp: time.Now()})
	return nil
}

func (app *Application) configure(cfg *config.Config) error {
	app.mutex.Lock()
	defer app.mutex.Unlock()

	if app.running {
		return &ApplicationError{Operation: "configure", Err: errors.New("cannot configure application while running")}
	}
	if cfg == nil {
		return &ApplicationError{Operation: "configure", Err: errors.New("nil configuration")}
	}
	if err := cfg.Validate(); err != nil {
		return &ApplicationError{Operation: "configure", Err: err}
	}

	base := app.opts.Logger
	if base == nil {
		w, closeFn, err := logging.Open(cfg.Log.Output)
		if err != nil {
			return &ApplicationError{Operation: "configure", Err: err}
		}
		_ = app.closeLog()
		app.closeLog = closeFn
		base = logging.New(w, logging.Config{
			Level:     cfg.GetLogLevel().String(),
			Format:    cfg.Log.Format,
			AddSource: cfg.Log.AddSource,
		})
	}

	app.logger = base.With(slog.String("app", cfg.App.Name))
	app.config = cfg
	return nil
}

// Config returns the current configuration
func (app *Application) Config() *config.Config {
	app.mutex.Lock()
	defer app.mutex.Unlock()
	return app.config
}

// Logger returns the application logger
func (app *Application) Logger() *slog.Logger {
	app.mutex.Lock()
	defer app.mutex.Unlock()
	if app.logger == nil {
		return slog.Default()
	}
	return app.logger
}

// AddListener adds a lifecycle event listener
func (app *Application) AddListener(listener func(LifecycleEvent)) {
	app.mutex.Lock()
	defer app.mutex.Unlock()
	app.listeners = append(app.listeners, listener)
}

// Watch reruns the model from Run whenever w reloads a valid configuration.
// The application does not own w; the caller starts and stops it.
func (app *Application) Watch(w *config.Watcher) {
	app.mutex.Lock()
	app.watcher = w
	app.mutex.Unlock()

	w.OnConfigChange(func(_, newConfig *config.Config) {
		// Keep only the newest pending configuration
		select {
		case <-app.reloads:
		default:
		}
		app.reloads <- newConfig
	})
}

// RunOnce builds the model on a fresh router and drains it
func (app *Application) RunOnce(ctx context.Context) (Result, error) {
	app.mutex.Lock()
	if app.running {
		app.mutex.Unlock()
		return Result{}, &ApplicationError{Operation: "run", Model: app.modelName(), Err: errors.New("application is already running")}
	}
	if app.config == nil {
		app.mutex.Unlock()
		return Result{}, &ApplicationError{Operation: "run", Model: app.modelName(), Err: errors.New("application is not configured")}
	}
	app.running = true
	cfg := app.config
	logger := app.logger
	app.mutex.Unlock()

	defer func() {
		app.mutex.Lock()
		app.running = false
		app.mutex.Unlock()
	}()

	result, err := app.runModel(ctx, cfg, logger)
	if err != nil {
		logger.Error("run failed", slog.String("model", result.Model), slog.Any("error", err))
		app.broadcastEvent(LifecycleEvent{Type: EventRunFailed, Model: result.Model, Timestamp: time.Now(), Error: err})
		return result, err
	}

	logger.Info("run complete",
		slog.String("model", result.Model),
		slog.Uint64("dispatched", result.Stats.Dispatched),
		slog.Uint64("dropped", result.Stats.Dropped),
		slog.Duration("elapsed", result.Duration))
	app.broadcastEvent(LifecycleEvent{
		Type:      EventRunFinished,
		Model:     result.Model,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"run_id":     result.Stats.RunID.String(),
			"dispatched": result.Stats.Dispatched,
		},
	})
	return result, nil
}

func (app *Application) runModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (result Result, err error) {
	name := app.modelName()
	result.Model = name
	started := time.Now()

	var tracers trace.Multi
	var printer *trace.Printer
	if cfg.Router.PrintMessages {
		printer = trace.NewPrinter(app.opts.Stdout)
		tracers = append(tracers, printer)
	}

	var recorder *trace.Recorder
	if cfg.Router.TraceFile != "" {
		f, createErr := os.Create(cfg.Router.TraceFile)
		if createErr != nil {
			return result, &ApplicationError{Operation: "open trace", Model: name, Err: createErr}
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = &ApplicationError{Operation: "close trace", Model: name, Err: cerr}
			}
		}()
		recorder = trace.NewRecorder(f)
		tracers = append(tracers, recorder)
	}

	routerOpts := core.DefaultRouterOptions()
	routerOpts.Logger = logger
	routerOpts.MaxDispatches = cfg.Router.MaxDispatches
	if len(tracers) > 0 {
		routerOpts.Tracer = tracers
	}
	router := core.NewRouter(routerOpts)

	run := &Run{
		Config: cfg,
		Router: router,
		Logger: logger.With(slog.String("model", name)),
	}
	defer func() {
		if ferr := run.finish(); ferr != nil && err == nil {
			err = &ApplicationError{Operation: "finish", Model: name, Err: ferr}
		}
		result.Stats = router.Stats()
		result.Duration = time.Since(started)
	}()

	app.broadcastEvent(LifecycleEvent{Type: EventRunStarted, Model: name, Timestamp: started})

	if err := app.model.Build(ctx, run); err != nil {
		return result, &ApplicationError{Operation: "build", Model: name, Err: err}
	}
	if err := router.Run(ctx); err != nil {
		return result, &ApplicationError{Operation: "run", Model: name, Err: err}
	}
	if printer != nil {
		if err := printer.Err(); err != nil {
			return result, &ApplicationError{Operation: "print", Model: name, Err: err}
		}
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return result, &ApplicationError{Operation: "trace", Model: name, Err: err}
		}
	}

	return result, nil
}

// finish runs the finishers in reverse order and joins their errors
func (r *Run) finish() error {
	var errs []error
	for i := len(r.finishers) - 1; i >= 0; i-- {
		if err := r.finishers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.finishers = nil
	return errors.Join(errs...)
}

// Run runs the model once. With a watcher attached it then waits for
// configuration changes and reruns the model until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func (app *Application) Run(ctx context.Context) error {
	_, err := app.RunOnce(ctx)

	app.mutex.Lock()
	watching := app.watcher != nil
	app.mutex.Unlock()
	if !watching {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Logger().Info("watching configuration for changes")
	for {
		select {
		case <-ctx.Done():
			app.Logger().Info("shutting down")
			return app.Shutdown()

		case cfg := <-app.reloads:
			if err := app.Configure(cfg); err != nil {
				app.Logger().Warn("ignoring configuration", slog.Any("error", err))
				continue
			}
			app.broadcastEvent(LifecycleEvent{Type: EventConfigReloaded, Model: app.modelName(), Timestamp: time.Now()})
			// Failures are logged by RunOnce; keep watching
			_, _ = app.RunOnce(ctx)
		}
	}
}

// Shutdown releases the log output
func (app *Application) Shutdown() error {
	app.mutex.Lock()
	defer app.mutex.Unlock()

	err := app.closeLog()
	app.closeLog = func() error { return nil }
	if err != nil {
		return &ApplicationError{Operation: "shutdown", Err: fmt.Errorf("close log: %w", err)}
	}
	return nil
}

func (app *Application) modelName() string {
	if app.model == nil {
		return ""
	}
	return app.model.Name()
}

// broadcastEvent notifies every listener synchronously
func (app *Application) broadcastEvent(event LifecycleEvent) {
	listeners := app.snapshotListeners()
	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					app.Logger().Error("lifecycle listener panicked", slog.Any("panic", r))
				}
			}()
			listener(event)
		}()
	}
}

func (app *Application) snapshotListeners() []func(LifecycleEvent) {
	app.mutex.Lock()
	defer app.mutex.Unlock()
	return slices.Clone(app.listeners)
}
