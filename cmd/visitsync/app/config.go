package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool

	// Config file
	ConfigFile string

	// Source credentials
	OpenPhoneAPIKey  string
	AxisCareAPIToken string
	AxisCareSiteID   string

	// Engine configuration
	LogPath      string
	AuditPath    string
	RulesPath    string
	FetchWindow  time.Duration
	PassInterval time.Duration
	AutoPasses   bool

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.visitsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	// Load .env files first (before Viper env binding)
	loadEnvFiles()

	// Set up Viper for environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	bindCredentials()

	// Try to read config file if it exists
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search for config in standard locations
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigType("yaml")
			viper.SetConfigName(".visitsync")
		}
	}

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()

	config := &Config{
		// Global flags (may be overridden by cobra flags later)
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),
		NoColor: viper.GetBool("no-color"),

		ConfigFile: viper.ConfigFileUsed(),

		// Source credentials
		OpenPhoneAPIKey:  viper.GetString("OPENPHONE_API_KEY"),
		AxisCareAPIToken: viper.GetString("AXISCARE_API_TOKEN"),
		AxisCareSiteID:   viper.GetString("AXISCARE_SITE_ID"),

		// Engine configuration
		LogPath:      viper.GetString("log_path"),
		AuditPath:    viper.GetString("audit_path"),
		RulesPath:    viper.GetString("rules_path"),
		FetchWindow:  viper.GetDuration("fetch_window"),
		PassInterval: viper.GetDuration("pass_interval"),
		AutoPasses:   viper.GetBool("auto_passes"),

		// Logging configuration
		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}

	// Set defaults
	if config.LogPath == "" {
		config.LogPath = "failures.jsonl"
	}
	if config.AuditPath == "" {
		config.AuditPath = "audit.db"
	}
	if config.FetchWindow == 0 {
		config.FetchWindow = 24 * time.Hour
	}
	if config.PassInterval == 0 {
		config.PassInterval = 15 * time.Minute
	}

	return config, nil
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	envFiles := []string{
		".env",
		".env.local",
	}

	for _, envFile := range envFiles {
		_ = godotenv.Load(envFile)
	}
}

// bindCredentials explicitly binds source credential environment variables to Viper.
func bindCredentials() {
	credentials := []string{
		"OPENPHONE_API_KEY",
		"AXISCARE_API_TOKEN",
		"AXISCARE_SITE_ID",
	}

	for _, key := range credentials {
		if err := viper.BindEnv(key); err != nil {
			// Log warning but continue - this isn't critical
			fmt.Fprintf(os.Stderr, "Warning: failed to bind environment variable %s: %v\n", key, err)
		}
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
