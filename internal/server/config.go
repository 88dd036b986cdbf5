package server

import "time"

// Config controls the HTTP review API.
type Config struct {
	Host string
	Port int

	// PathPrefix is prepended to every route, e.g. "/api/v1".
	PathPrefix string

	CORSEnabled bool
	CORSOrigins []string

	// AuthEnabled requires the API key in AuthHeader on every request
	// except health checks.
	AuthEnabled bool
	AuthHeader  string

	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int
	// CacheTTL bounds how stale cached failure listings may be.
	CacheTTL time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	MetricsEnabled bool
}

// DefaultConfig returns the configuration used when no flags or
// environment overrides are given.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		CORSEnabled:    false,
		CORSOrigins:    []string{},
		AuthEnabled:    false,
		AuthHeader:     "X-API-Key",
		RateLimit:      100,
		CacheTTL:       time.Minute,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}
