// Package api exposes the territory data over a read-only HTTP API.
// Writes happen only through the scan engine and the feed importer, so
// every route here is a GET.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfwatch/shelfwatch/internal/store"
)

// Server wraps the chi router and the underlying http.Server.
type Server struct {
	handler http.Handler
	server  *http.Server
}

// NewServer builds the router over the given store.
func NewServer(st store.Store) *Server {
	h := &handlers{store: st}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/brands", h.listBrands)
		r.Get("/brands/{brandID}", h.getBrand)
		r.Get("/brands/{brandID}/locations", h.listLocations)
		r.Get("/runs", h.listRuns)
		r.Get("/aggregates/brands", h.brandAggregates)
		r.Get("/aggregates/states", h.stateAggregates)
	})

	return &Server{handler: r}
}

// ListenAndServe starts serving on addr and blocks until shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
