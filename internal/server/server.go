// Package server provides the HTTP/SSE transport for the runtime command
// and event protocol.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/0xfe/buddyx/internal/runtime"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration. WriteTimeout is zero
// since /event streams SSE indefinitely; a fixed write timeout would cut
// every subscriber off after that long.
func DefaultConfig() *Config {
	return &Config{
		Port:        8080,
		EnableCORS:  true,
		ReadTimeout: 30 * time.Second,
	}
}

// CommandRuntime is the slice of *runtime.Runtime this package calls,
// narrowed to an interface so tests can drive the handlers with a fake
// instead of a live actor loop.
type CommandRuntime interface {
	Submit(cmd runtime.Command)
	Events() <-chan runtime.Envelope
}

// Server is the HTTP front door onto a CommandRuntime.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	rt      CommandRuntime
}

// New creates a Server fronting rt.
func New(cfg *Config, rt CommandRuntime) *Server {
	s := &Server{config: cfg, router: chi.NewRouter(), rt: rt}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

// Start starts the HTTP server. Blocks until the server stops or errors.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux { return s.router }
