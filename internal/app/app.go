package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/specialistvlad/reliefgrid/internal/ctxlog"
	"github.com/specialistvlad/reliefgrid/internal/engine"
	"github.com/specialistvlad/reliefgrid/internal/model"
	"github.com/specialistvlad/reliefgrid/internal/notify"
	"github.com/specialistvlad/reliefgrid/internal/scheduler"
	"github.com/specialistvlad/reliefgrid/internal/store"
	"github.com/zclconf/go-cty/cty"
)

// StoreOpener constructs the store a job publishes to.
type StoreOpener func(ctx context.Context, opts store.Options) (store.Store, error)

// NotifierFactory connects a job's progress notifier.
type NotifierFactory func(ctx context.Context, opts notify.SocketIOOptions) (notify.Notifier, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	httpServer *http.Server

	env         cty.Value
	openStore   StoreOpener
	runner      engine.Runner
	newNotifier NotifierFactory

	progress *scheduler.Progress

	mu        sync.Mutex
	summaries map[string]scheduler.Summary
}

// Option overrides one of the App's collaborators, mostly for tests.
type Option func(*App)

// WithStoreOpener replaces the store constructor.
func WithStoreOpener(open StoreOpener) Option {
	return func(a *App) { a.openStore = open }
}

// WithEngineRunner replaces the process runner behind the raster engine.
func WithEngineRunner(r engine.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithNotifierFactory replaces the socket.io notifier constructor.
func WithNotifierFactory(f NotifierFactory) Option {
	return func(a *App) { a.newNotifier = f }
}

// WithEnv sets the `env` value seen by job files instead of os.Environ.
func WithEnv(environ []string) Option {
	return func(a *App) { a.env = model.EnvValue(environ) }
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger; configuration is loaded when Run is called.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:       ctxlog.WithLogger(context.Background(), logger),
		outW:      outW,
		logger:    logger,
		config:    cfg,
		env:       model.EnvValue(os.Environ()),
		openStore: store.Open,
		runner:    engine.ExecRunner{},
		newNotifier: func(ctx context.Context, opts notify.SocketIOOptions) (notify.Notifier, error) {
			return notify.NewSocketIO(ctx, opts)
		},
		progress:  &scheduler.Progress{},
		summaries: make(map[string]scheduler.Summary),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summaries returns the outcome of every job run so far, keyed by job name.
func (a *App) Summaries() map[string]scheduler.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]scheduler.Summary, len(a.summaries))
	for k, v := range a.summaries {
		out[k] = v
	}
	return out
}

func (a *App) recordSummary(job string, s scheduler.Summary) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries[job] = s
}
