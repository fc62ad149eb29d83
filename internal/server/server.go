// Package server wires the HTTP surface together: chi routing, shared
// middleware, and graceful shutdown over the underlying http.Server.
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/Averyy/bridge-up/internal/bridge"
	"github.com/Averyy/bridge-up/internal/clock"
	"github.com/Averyy/bridge-up/internal/config"
	"github.com/Averyy/bridge-up/internal/fanout"
	"github.com/Averyy/bridge-up/internal/httpapi"
	"github.com/Averyy/bridge-up/internal/middleware"
	"github.com/Averyy/bridge-up/internal/vessel"
)

// Server is the HTTP server fronting the bridge and vessel data.
type Server struct {
	cfg       *config.Config
	handlers  *httpapi.Handlers
	rateLimit *middleware.RateLimiter
	server    *http.Server
}

// New creates a Server. hub is shared with the daemon's event-bus
// subscribers, which broadcast bridge and boat changes to the same client
// set that the WebSocket handler registers.
func New(cfg *config.Config, scraper *bridge.Scraper, registry *vessel.Registry, hub *fanout.Hub, c clock.Clock) *Server {
	rl := middleware.NewRateLimiter(middleware.RateLimitConfig{
		DataPerMinute:   cfg.RateLimitDataPerMin,
		StaticPerMinute: cfg.RateLimitStaticPerMin,
		CleanupInterval: middleware.DefaultRateLimitConfig().CleanupInterval,
		MaxAge:          middleware.DefaultRateLimitConfig().MaxAge,
	})

	s := &Server{
		cfg:       cfg,
		handlers:  httpapi.New(scraper, registry, hub, c),
		rateLimit: rl,
	}

	s.server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.routes(),
	}

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Serve starts the HTTP server on the given listener.
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimit.Stop()
	return s.server.Shutdown(ctx)
}
