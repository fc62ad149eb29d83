package server

import (
	"net/http"

	"github.com/Averyy/bridge-up/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET"},
		MaxAge:         300,
	}))

	r.With(middleware.RateLimit(s.rateLimit, "static", s.cfg.RateLimitStaticPerMin)).
		Get("/health", s.handlers.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.rateLimit, "data", s.cfg.RateLimitDataPerMin))
		r.Get("/bridges", s.handlers.Bridges)
		r.Get("/bridges/{id}", s.handlers.BridgeByID)
		r.Get("/boats", s.handlers.Boats)
	})

	// The WebSocket upgrade is exempt from the per-request rate limiter; its
	// own connection and send-buffer limits govern load instead.
	r.Get("/ws", s.handlers.Serve)

	return r
}
