package reconciler

import (
	"time"

	"github.com/careops/visitsync/pkg/errors"
)

// options configures a reconciler.
type options struct {
	rules        Rules
	fetchTimeout time.Duration
	now          func() time.Time
}

func defaultOptions() *options {
	return &options{
		rules:        DefaultRules(),
		fetchTimeout: 30 * time.Second,
		now:          time.Now,
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithRules sets the comparison rules.
func WithRules(rules Rules) Option {
	return func(o *options) error {
		if err := rules.Validate(); err != nil {
			return err
		}
		o.rules = rules
		return nil
	}
}

// WithFetchTimeout bounds each source fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) error {
		if d <= 0 {
			return errors.NewValidationError("fetch_timeout", d.String(), "must be positive")
		}
		o.fetchTimeout = d
		return nil
	}
}

// WithClock overrides the time source. Tests use this to pin failure
// detection timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		o.now = now
		return nil
	}
}
