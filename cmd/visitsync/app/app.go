// Package app provides the application context and dependency management
// for the visitsync CLI. It follows idiomatic Go patterns for CLI applications
// by centralizing configuration, dependency injection, and lifecycle management.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/careops/visitsync"
	"github.com/careops/visitsync/internal/sources/axiscare"
	"github.com/careops/visitsync/internal/sources/openphone"
	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/reconciler"
)

// App represents the visitsync application with all its dependencies.
// It provides a centralized place for configuration, logging, and
// the reconciliation engine, following the dependency injection pattern.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Engine instance (lazy-initialized, singleton)
	mu     sync.RWMutex
	engine visitsync.Engine
}

// New creates a new App instance with the given version information.
// The app is initialized with default configuration that can be
// customized using functional options.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		return nil, errors.NewConfigError("app", "failed to load configuration", err)
	}
	app.config = config

	// Initialize logger
	logger := NewLogger(config)
	app.logger = &logger

	// Apply any custom options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Engine returns the reconciliation engine, creating it lazily if needed.
// This is thread-safe and ensures only one instance is created.
func (a *App) Engine() (visitsync.Engine, error) {
	a.mu.RLock()
	if a.engine != nil {
		eng := a.engine
		a.mu.RUnlock()
		return eng, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.engine != nil {
		return a.engine, nil
	}

	opts, err := a.buildEngineOptions()
	if err != nil {
		return nil, err
	}
	eng, err := visitsync.New(opts...)
	if err != nil {
		return nil, errors.NewConfigError("engine", "failed to create engine", err)
	}

	a.engine = eng
	return eng, nil
}

// EngineWithOptions returns a new engine instance with custom options.
// This is useful for commands that need specific configurations different
// from the default app instance.
func (a *App) EngineWithOptions(opts ...visitsync.Option) (visitsync.Engine, error) {
	eng, err := visitsync.New(opts...)
	if err != nil {
		return nil, errors.NewConfigError("engine", "failed to create engine with custom options", err)
	}
	return eng, nil
}

// Shutdown performs graceful shutdown of the application.
// It stops any running background passes and cleans up resources.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.RLock()
	eng := a.engine
	a.mu.RUnlock()

	if eng != nil {
		if err := eng.PassesOff(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop background passes during shutdown")
		}
		if err := eng.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close engine during shutdown")
		}
	}

	return nil
}

// buildEngineOptions constructs engine options from the app configuration.
func (a *App) buildEngineOptions() ([]visitsync.Option, error) {
	var opts []visitsync.Option

	op := openphone.New(a.config.OpenPhoneAPIKey, openphone.WithWindow(a.config.FetchWindow))
	ax := axiscare.New(a.config.AxisCareAPIToken, a.config.AxisCareSiteID, axiscare.WithWindow(a.config.FetchWindow))

	opts = append(opts,
		visitsync.WithSources(op, ax),
		visitsync.WithWriter(ax),
		visitsync.WithLogPath(a.config.LogPath),
		visitsync.WithAuditPath(a.config.AuditPath),
	)

	// Load rules overrides if configured
	if a.config.RulesPath != "" {
		rules, err := reconciler.LoadRules(a.config.RulesPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, visitsync.WithRules(rules))
	}

	if a.config.PassInterval > 0 {
		opts = append(opts, visitsync.WithPassInterval(a.config.PassInterval))
	}
	opts = append(opts, visitsync.WithAutoPasses(a.config.AutoPasses))

	return opts, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithEngine sets a custom engine instance (useful for testing).
func WithEngine(eng visitsync.Engine) Option {
	return func(a *App) error {
		a.engine = eng
		return nil
	}
}
