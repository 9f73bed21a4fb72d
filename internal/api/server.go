// Package api exposes the REST surface: wallet registry, transaction
// ledger, bot configuration, notifications (including the SSE stream),
// projects and operational endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"botwatch/internal/botconfig"
	"botwatch/internal/health"
	"botwatch/internal/infra/storage"
	"botwatch/internal/ingest"
	"botwatch/internal/ledger"
	"botwatch/internal/notify"
	"botwatch/internal/registry"
)

// Config holds the HTTP server settings.
type Config struct {
	Port int
	// AuthToken enables bearer auth on /api/v1 when non-empty.
	AuthToken string
}

// Deps carries the services the handlers work against.
type Deps struct {
	Registry      *registry.Service
	Ledger        *ledger.Service
	Configs       *botconfig.Service
	Notifications *notify.Service
	Hub           *notify.Hub
	Pipeline      *ingest.Pipeline
	Monitor       *health.Monitor
	Projects      storage.ProjectRepository
}

// Server wraps the gin engine in an http.Server with graceful shutdown.
type Server struct {
	engine *gin.Engine
	http   *http.Server
}

// NewServer builds the router and binds it to the configured port.
func NewServer(cfg Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestMetrics())

	registerRoutes(engine, cfg, deps)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Stop is called. Blocks.
func (s *Server) Start() error {
	slog.Info("API server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, draining in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
