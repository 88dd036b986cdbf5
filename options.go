package visitsync

import (
	"time"

	"github.com/careops/visitsync/internal/corrector"
	"github.com/careops/visitsync/pkg/errors"
	"github.com/careops/visitsync/pkg/reconciler"
)

// config holds engine configuration assembled from options.
type config struct {
	openphone reconciler.RecordSource
	axiscare  reconciler.RecordSource
	writer    corrector.TargetWriter

	logPath   string
	auditPath string

	rules        reconciler.Rules
	fetchTimeout time.Duration
	writeTimeout time.Duration
	passInterval time.Duration
	autoPasses   bool
	now          func() time.Time
}

func defaultConfig() *config {
	return &config{
		logPath:      "failures.jsonl",
		auditPath:    "audit.db",
		rules:        reconciler.DefaultRules(),
		fetchTimeout: 30 * time.Second,
		writeTimeout: 15 * time.Second,
		passInterval: 15 * time.Minute,
		now:          time.Now,
	}
}

func newConfig(opts ...Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.openphone == nil || cfg.axiscare == nil {
		return nil, errors.NewValidationError("sources", nil, "both sources are required")
	}
	if cfg.writer == nil {
		return nil, errors.NewValidationError("writer", nil, "target writer is required")
	}
	return cfg, nil
}

// Option is a function that configures an Engine instance
type Option func(*config) error

// WithSources sets the two record sources.
func WithSources(openphone, axiscare reconciler.RecordSource) Option {
	return func(c *config) error {
		c.openphone = openphone
		c.axiscare = axiscare
		return nil
	}
}

// WithWriter sets the target system writer corrections go to.
func WithWriter(writer corrector.TargetWriter) Option {
	return func(c *config) error {
		c.writer = writer
		return nil
	}
}

// WithLogPath sets the failure log file location.
func WithLogPath(path string) Option {
	return func(c *config) error {
		if path == "" {
			return errors.NewValidationError("log_path", path, "cannot be empty")
		}
		c.logPath = path
		return nil
	}
}

// WithAuditPath sets the correction audit database location.
func WithAuditPath(path string) Option {
	return func(c *config) error {
		if path == "" {
			return errors.NewValidationError("audit_path", path, "cannot be empty")
		}
		c.auditPath = path
		return nil
	}
}

// WithRules sets the comparison rules.
func WithRules(rules reconciler.Rules) Option {
	return func(c *config) error {
		if err := rules.Validate(); err != nil {
			return err
		}
		c.rules = rules
		return nil
	}
}

// WithFetchTimeout bounds each source fetch during a pass.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("fetch_timeout", d.String(), "must be positive")
		}
		c.fetchTimeout = d
		return nil
	}
}

// WithWriteTimeout bounds each corrective write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("write_timeout", d.String(), "must be positive")
		}
		c.writeTimeout = d
		return nil
	}
}

// WithPassInterval configures how often scheduled passes run.
func WithPassInterval(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return errors.NewValidationError("pass_interval", d.String(), "must be positive")
		}
		c.passInterval = d
		return nil
	}
}

// WithAutoPasses configures whether scheduled passes start on New.
func WithAutoPasses(enabled bool) Option {
	return func(c *config) error {
		c.autoPasses = enabled
		return nil
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		c.now = now
		return nil
	}
}
