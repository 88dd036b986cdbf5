// Package server provides the HTTP server for the reconciliation API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/careops/visitsync"
	"github.com/careops/visitsync/internal/server/cache"
	"github.com/careops/visitsync/internal/server/events"
	"github.com/careops/visitsync/internal/server/events/adapters"
	"github.com/careops/visitsync/internal/server/sse"
	ws "github.com/careops/visitsync/internal/server/websocket"
	"github.com/careops/visitsync/pkg/reconciler"
	"github.com/careops/visitsync/pkg/records"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	engine         visitsync.Engine
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	startTime      time.Time
}

// New creates a new server instance with the given configuration.
func New(engine visitsync.Engine, logger *zerolog.Logger, cfg Config) (*Server, error) {
	logger.Debug().Msg("Creating new server instance")

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Minute
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	// Subscribe transports to broker
	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	// Context for managing background services
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		engine:         engine,
		cache:          cache.New(cfg.CacheTTL, cfg.CacheTTL*2),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	server.connectHooks()

	logger.Debug().Msg("Server instance created")
	return server, nil
}

// connectHooks registers engine hooks to publish to the event broker.
func (s *Server) connectHooks() {
	s.engine.OnFailureDetected(func(failure records.ValidationFailure) {
		s.broker.Publish(events.FailureDetected, map[string]any{
			"failure": failure,
		})
		s.logger.Debug().
			Str("failure_id", failure.ID).
			Str("field", failure.Field).
			Msg("Failure detected event published")
	})

	s.engine.OnFailureCorrected(func(action records.CorrectionAction) {
		s.broker.Publish(events.FailureCorrected, map[string]any{
			"action": action,
		})
		s.logger.Debug().
			Str("failure_id", action.FailureID).
			Str("outcome", string(action.Outcome)).
			Msg("Failure corrected event published")
	})

	s.engine.OnPassCompleted(func(result *reconciler.Result) {
		s.broker.Publish(events.PassCompleted, map[string]any{
			"summary":      result.Summary(),
			"new_failures": result.NewFailures,
			"duplicates":   result.Duplicates,
		})
		// A pass can change what list endpoints should return
		s.cache.Clear()
	})

	s.logger.Info().Msg("Engine hooks connected to event broker")
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	go s.broker.Run(s.ctx)
	go s.wsHub.Run(s.ctx)
	go s.sseBroadcaster.Run(s.ctx)

	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Shutdown gracefully shuts down background services.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")

	s.cancel()

	// Give services time to shutdown gracefully
	time.Sleep(100 * time.Millisecond)

	return nil
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// WSHub returns the WebSocket hub.
func (s *Server) WSHub() *ws.Hub {
	return s.wsHub
}

// SSEBroadcaster returns the SSE broadcaster.
func (s *Server) SSEBroadcaster() *sse.Broadcaster {
	return s.sseBroadcaster
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
