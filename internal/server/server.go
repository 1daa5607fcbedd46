// Package server exposes the merge engine over HTTP.
//
// Routes:
//
//	POST /v1/merge?source=NAME   merge one SBOM document (request body)
//	POST /v1/clear               reset the graph
//	GET  /v1/graph               full snapshot
//	GET  /v1/stream              websocket: snapshot, then one frame per delta
//	GET  /v1/history?limit=N     journal attempts (404 when no journal)
//	GET  /healthz
//	GET  /metrics                Prometheus
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/roach88/sbomgraph/internal/engine"
	"github.com/roach88/sbomgraph/internal/ir"
	"github.com/roach88/sbomgraph/internal/sbom"
)

// DefaultMaxBody caps the size of a merge request body.
const DefaultMaxBody = 32 << 20

// History lists recorded attempts, newest limit in ascending order.
type History interface {
	List(ctx context.Context, limit int) ([]ir.Attempt, error)
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine  *engine.Engine
	decoder *sbom.Decoder
	hub     *Hub
	history History
	logger  *slog.Logger
	maxBody int64
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables /v1/history.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxBody overrides DefaultMaxBody.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// New creates a server. hub must be installed as (one of) the engine's
// sinks for /v1/stream to receive deltas.
func New(eng *engine.Engine, dec *sbom.Decoder, hub *Hub, opts ...Option) *Server {
	s := &Server{
		engine:  eng,
		decoder: dec,
		hub:     hub,
		logger:  slog.Default(),
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("sbomgraph"))
	router.Use(s.observe)

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.POST("/merge", s.handleMerge)
	v1.POST("/clear", s.handleClear)
	v1.GET("/graph", s.handleGraph)
	v1.GET("/stream", s.handleStream)
	v1.GET("/history", s.handleHistory)

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	s.logger.Debug("request",
		"method", c.Request.Method,
		"route", route,
		"status", status,
		"duration", time.Since(start),
	)
}
