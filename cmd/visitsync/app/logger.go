package app

import (
	"fmt"
	"os"
	"slices"

	"github.com/rs/zerolog"

	"github.com/careops/visitsync/pkg/logging"
)

// NewLogger builds the CLI logger from the resolved configuration.
// Level precedence, highest first: --log-level, -v, -q, the LOG_LEVEL
// environment variable (folded into config by LoadConfig), then info.
func NewLogger(config *Config) zerolog.Logger {
	level := determineLogLevel(config)

	return logging.NewLoggerFromConfig(&logging.Config{
		Level:     level,
		Format:    config.LogFormat,
		Output:    config.LogOutput,
		NoColor:   config.NoColor,
		AddCaller: level == "debug" || level == "trace",
	})
}

// determineLogLevel resolves the flag and environment inputs into one
// level, warning on stderr when inputs conflict or are invalid.
func determineLogLevel(config *Config) string {
	if config.LogLevel != "" {
		validated := validateLogLevel(config.LogLevel)
		if validated != config.LogLevel {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using %q\n", config.LogLevel, validated)
		}
		return validated
	}

	switch {
	case config.Verbose && config.Quiet:
		// Contradictory flags; the quieter one wins.
		fmt.Fprintf(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet\n")
		return "warn"
	case config.Verbose:
		return "debug"
	case config.Quiet:
		return "warn"
	}

	return "info"
}

// validateLogLevel returns level if it names a known level, info otherwise.
func validateLogLevel(level string) string {
	known := []string{"trace", "debug", "info", "warn", "error"}
	if slices.Contains(known, level) {
		return level
	}
	return "info"
}
