// Package opsserver exposes liveness, readiness, prometheus metrics and run
// statistics over HTTP for the simulator and the processor.
package opsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/expostream/internal/runtime/logging"
)

// ReadyTimeout bounds a single readiness probe.
const ReadyTimeout = time.Second

// ShutdownTimeout bounds graceful shutdown of the listener.
const ShutdownTimeout = 5 * time.Second

// Dependencies feeds the endpoints. Every field is optional: without Ready the
// process reports ready, without Stats the /stats route is not registered.
type Dependencies struct {
	Ready    func(ctx context.Context) error
	Stats    func() any
	Gatherer prometheus.Gatherer
	Logger   logging.ServiceLogger
}

// NewRouter wires the ops endpoints.
// /health: process is running.
// /ready: downstream dependencies answer.
// /metrics: prometheus exposition.
// /stats: JSON run statistics.
func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if deps.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), ReadyTimeout)
			defer cancel()

			if err := deps.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	if deps.Stats != nil {
		r.GET("/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, deps.Stats())
		})
	}

	return r
}

// Server runs the ops router on a TCP port.
type Server struct {
	srv    *http.Server
	logger logging.ServiceLogger
}

// New returns a Server bound to port on all interfaces.
func New(port int, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start listens in the background until ctx is cancelled. A listen failure
// is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}

	s.logger.Info("Ops server listening", logging.LogFields{"addr": ln.Addr().String()})

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ops server stopped", err, nil)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Ops server shutdown failed", err, nil)
		}
	}()

	return nil
}
