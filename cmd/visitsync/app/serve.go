package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careops/visitsync/internal/server"
)

// NewServeCommand creates the serve command.
func (a *App) NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the reconciliation REST API with WebSocket and SSE support",
		GroupID: "core",
		Long: `Start a production-ready REST API server for the reconciliation engine.

Features:
  - Plain-text validation failure log for review (/logs/validation-failures)
  - Review endpoints for the oldest open failure (/mock/caregiver, /mock/correct)
  - RESTful endpoints for failures, corrections, and pass management
  - WebSocket support for real-time updates (/api/v1/updates/ws)
  - Server-Sent Events (SSE) for streaming updates (/api/v1/updates/stream)
  - In-memory caching with configurable TTL
  - Rate limiting (requests per minute per IP)
  - API key authentication (optional)
  - CORS support for web applications
  - Request logging and panic recovery
  - Graceful shutdown with connection draining
  - Health checks and metrics endpoints`,
		Example: `  # Start on default port 8080
  visitsync serve

  # Start on custom port with authentication
  visitsync serve --port 3000 --auth

  # Enable CORS for specific origins
  visitsync serve --cors-origins "https://example.com,https://app.example.com"

  # Full configuration
  visitsync serve --port 8080 --cors --auth --rate-limit 100`,
		RunE: a.runServe,
	}

	// Server configuration flags
	cmd.Flags().IntP("port", "p", 8080, "Server port")
	cmd.Flags().String("host", "localhost", "Bind address")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Authentication flags
	cmd.Flags().Bool("auth", false, "Enable API key authentication")
	cmd.Flags().String("auth-header", "X-API-Key", "Authentication header name")

	// Performance flags
	cmd.Flags().Int("rate-limit", 100, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", time.Minute, "Cache TTL")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", 120*time.Second, "HTTP idle timeout")

	// Features flags
	cmd.Flags().Bool("metrics", true, "Enable metrics endpoint")
	cmd.Flags().String("prefix", "/api/v1", "API path prefix")
	cmd.Flags().Bool("auto-passes", false, "Run reconciliation passes on an interval while serving")

	return cmd
}

// runServe starts the API server.
func (a *App) runServe(cmd *cobra.Command, _ []string) error {
	cfg := server.DefaultConfig()
	cfg.Port, _ = cmd.Flags().GetInt("port")
	cfg.Host, _ = cmd.Flags().GetString("host")
	cfg.CORSEnabled, _ = cmd.Flags().GetBool("cors")
	cfg.CORSOrigins, _ = cmd.Flags().GetStringSlice("cors-origins")
	cfg.AuthEnabled, _ = cmd.Flags().GetBool("auth")
	cfg.AuthHeader, _ = cmd.Flags().GetString("auth-header")
	cfg.RateLimit, _ = cmd.Flags().GetInt("rate-limit")
	cfg.CacheTTL, _ = cmd.Flags().GetDuration("cache-ttl")
	cfg.ReadTimeout, _ = cmd.Flags().GetDuration("read-timeout")
	cfg.WriteTimeout, _ = cmd.Flags().GetDuration("write-timeout")
	cfg.IdleTimeout, _ = cmd.Flags().GetDuration("idle-timeout")
	cfg.MetricsEnabled, _ = cmd.Flags().GetBool("metrics")
	cfg.PathPrefix, _ = cmd.Flags().GetString("prefix")
	autoPasses, _ := cmd.Flags().GetBool("auto-passes")

	// Override with environment variables
	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 && p < 65536 {
			cfg.Port = p
		}
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		cfg.Host = envHost
	}

	logger := a.Logger()
	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Bool("auth", cfg.AuthEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting API server")

	engine, err := a.Engine()
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	apiServer, err := server.New(engine, logger, cfg)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Start background services (event broker, WebSocket hub, SSE broadcaster)
	apiServer.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = apiServer.Shutdown(shutdownCtx)
	}()

	if autoPasses {
		if err := engine.PassesOn(); err != nil {
			return fmt.Errorf("starting reconciliation passes: %w", err)
		}
		defer func() { _ = engine.PassesOff() }()
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return startServerWithGracefulShutdown(httpServer, "API", logger)
}

// startServerWithGracefulShutdown starts the server with graceful shutdown.
func startServerWithGracefulShutdown(server *http.Server, serviceName string, logger *zerolog.Logger) error {
	// Server errors channel
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("service", serviceName).
			Msg("Server starting")

		fmt.Printf("🚀 Starting %s server on %s\n", serviceName, server.Addr)
		fmt.Println("   Press Ctrl+C to stop")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info().
			Str("signal", sig.String()).
			Msg("Shutdown signal received")

		fmt.Printf("\n🛑 Shutting down %s server...\n", serviceName)

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Shutdown server
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("Server stopped gracefully")
		fmt.Printf("✅ %s server stopped gracefully\n", serviceName)
		return nil
	}
}
