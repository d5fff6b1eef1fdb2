// Package server exposes the generation workflow over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/fluxgen/internal/health"
	"github.com/vietddude/fluxgen/internal/session"
)

const cookieName = "fluxgen_session"

// Config holds HTTP server settings.
type Config struct {
	Port          int
	SessionSecret string
	SessionTTL    time.Duration
}

// Server serves the JSON API, health and metrics.
type Server struct {
	manager *session.Manager
	monitor *health.Monitor
	engine  *gin.Engine
	server  *http.Server
	log     *slog.Logger
}

// New creates a new server. monitor may be nil, in which case /health only
// reports liveness.
func New(cfg Config, manager *session.Manager, monitor *health.Monitor, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	secret := cfg.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("No session secret configured, sessions will not survive a restart")
	}

	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	engine := gin.New()
	engine.Use(requestID(), accessLog(log), recovery(log))

	s := &Server{
		manager: manager,
		monitor: monitor,
		engine:  engine,
		log:     log,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/health/detailed", s.handleDetailed)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(gzip.Gzip(gzip.DefaultCompression))
	api.Use(sessions.Sessions(cookieName, store))
	api.Use(s.withSession())
	{
		api.GET("/models", s.handleListModels)
		api.POST("/models/custom", s.handleAddCustomModel)

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handleUpdateSettings)

		api.POST("/generate", s.handleGenerate)
		api.POST("/diagnose", s.handleDiagnose)
		api.POST("/connectivity", s.handleConnectivity)
		api.POST("/prompt/optimize", s.handleOptimize)
		api.POST("/prompt/describe", s.handleDescribe)

		api.GET("/history", s.handleHistory)
		api.GET("/attempts", s.handleAttempts)
		api.GET("/stats", s.handleStats)
		api.DELETE("/stats", s.handleResetStats)

		api.GET("/favorites", s.handleFavorites)
		api.POST("/favorites", s.handleToggleFavorite)

		api.DELETE("/session", s.handleEndSession)
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}

	report := s.monitor.CheckHealth(c.Request.Context())
	status := http.StatusOK
	if report.SystemStatus == health.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": report.SystemStatus})
}

func (s *Server) handleDetailed(c *gin.Context) {
	if s.monitor == nil {
		c.JSON(http.StatusOK, health.Report{SystemStatus: health.StatusHealthy, Sessions: s.manager.Len()})
		return
	}
	c.JSON(http.StatusOK, s.monitor.CheckHealth(c.Request.Context()))
}
