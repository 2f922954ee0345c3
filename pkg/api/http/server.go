package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/flowforge-io/flowforge/internal/application/orchestrator"
	"github.com/flowforge-io/flowforge/internal/application/workers"
)

// Server represents the HTTP API server
type Server struct {
	router       *gin.Engine
	server       *http.Server
	orchestrator *orchestrator.Manager
	health       *workers.HealthMonitor
	logger       *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port         int
	Orchestrator *orchestrator.Manager
	Health       *workers.HealthMonitor
	Logger       *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(cfg.Logger))
	router.Use(corsMiddleware())

	s := &Server{
		router:       router,
		orchestrator: cfg.Orchestrator,
		health:       cfg.Health,
		logger:       cfg.Logger,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Graph pipeline endpoints
		v1.POST("/graphs/validate", s.handleValidateGraph)
		v1.POST("/graphs/compile", s.handleCompileGraph)
		v1.POST("/graphs/optimize", s.handleOptimizeGraph)

		// Execution endpoints
		v1.POST("/executions", s.handleSubmitExecution)
		v1.GET("/executions/:id/status", s.handleGetStatus)
		v1.GET("/executions/:id/result", s.handleGetResult)
		v1.GET("/executions/:id/events", s.handleGetEvents)
		v1.GET("/executions/:id/pause", s.handleGetPauseInfo)
		v1.POST("/executions/:id/pause", s.handlePauseExecution)
		v1.POST("/executions/:id/resume", s.handleResumeExecution)
		v1.POST("/executions/:id/cancel", s.handleCancelExecution)

		// Optimizer audit trail
		v1.GET("/optimizations/history", s.handleOptimizationHistory)
	}
}

// SetupWebSocket adds the per-execution event stream handler.
func (s *Server) SetupWebSocket(handler interface {
	HandleExecutionStream(*gin.Context)
}) {
	s.router.GET("/api/v1/executions/:id/ws", handler.HandleExecutionStream)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
