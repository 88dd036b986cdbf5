// Package handlers implements the HTTP endpoints of the reconciliation
// review API: failure listings, mock source records, corrections, and
// the realtime update transports.
package handlers

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/careops/visitsync"
	"github.com/careops/visitsync/internal/server/cache"
	"github.com/careops/visitsync/internal/server/sse"
	ws "github.com/careops/visitsync/internal/server/websocket"
)

// Handlers carries the shared dependencies every endpoint needs.
type Handlers struct {
	engine         visitsync.Engine
	cache          *cache.Cache
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
}

// New wires the handler set. The server owns the lifecycles of the hub
// and broadcaster; handlers only use them.
func New(
	engine visitsync.Engine,
	cache *cache.Cache,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		engine:         engine,
		cache:          cache,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
	}
}
