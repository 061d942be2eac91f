// Package http provides the HTTP server, router setup and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/commerce/internal/config"
	"github.com/allisson/commerce/internal/metrics"
	orderHTTP "github.com/allisson/commerce/internal/order/http"
	paymentHTTP "github.com/allisson/commerce/internal/payment/http"
	webhookHTTP "github.com/allisson/commerce/internal/webhook/http"
)

// Server represents the API HTTP server.
type Server struct {
	db     *sql.DB
	router *gin.Engine
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter configures the Gin router with middleware and all API routes.
// Order transition endpoints are admin actions and sit behind the rate limiter;
// the webhook endpoint is exempt so provider retries are never throttled into
// redelivery storms.
func (s *Server) SetupRouter(
	cfg *config.Config,
	metricsProvider *metrics.Provider,
	orderHandler *orderHTTP.OrderHandler,
	paymentHandler *paymentHTTP.PaymentHandler,
	webhookHandler *webhookHTTP.WebhookHandler,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		v1.POST("/orders", orderHandler.CreateHandler)
		v1.GET("/orders", orderHandler.ListHandler)
		v1.GET("/orders/:id", orderHandler.GetHandler)
		v1.GET("/orders/:id/payments", paymentHandler.ListByOrderHandler)

		v1.POST("/payments/process", paymentHandler.ProcessHandler)
		v1.GET("/payments/:id", paymentHandler.GetHandler)

		v1.POST("/webhooks/:provider", webhookHandler.ReceiveHandler)

		admin := v1.Group("")
		if cfg.RateLimitEnabled {
			admin.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
		}
		admin.POST("/orders/:id/ship", orderHandler.ShipHandler)
		admin.POST("/orders/:id/deliver", orderHandler.DeliverHandler)
		admin.POST("/orders/:id/cancel", orderHandler.CancelHandler)
		admin.POST("/orders/:id/return", orderHandler.ReturnHandler)
		admin.POST("/orders/:id/refund", orderHandler.RefundHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking the
// database connection.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}
