// Package server exposes the research workflow over HTTP.
//
// Routes:
//
//	POST /api/agent/run  run the workflow for a question
//	GET  /reports/:id    a persisted report as Markdown
//	GET  /runs/:id       the latest checkpoint of a run
//	GET  /healthz        liveness
//	GET  /metrics        Prometheus metrics, when a gatherer is configured
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leofalp/deepresearch/patterns/graph"
	"github.com/leofalp/deepresearch/patterns/research"
	"github.com/leofalp/deepresearch/providers/observability"
	"github.com/leofalp/deepresearch/providers/store/sqlite"
)

const shutdownTimeout = 15 * time.Second

// Runner runs one research workflow. *research.Workflow implements it.
type Runner interface {
	Run(ctx context.Context, input research.Input) research.RunState
}

// Reports looks up persisted reports. *sqlite.Store implements it.
type Reports interface {
	Report(ctx context.Context, id string) (*sqlite.Report, error)
}

// Config wires the server. Only Runner is required.
type Config struct {
	Runner      Runner
	Reports     Reports
	Checkpoints graph.Checkpointer
	Gatherer    prometheus.Gatherer
	Observer    observability.Provider
}

// Server is the HTTP adapter.
type Server struct {
	config Config
	engine *gin.Engine
}

// New builds the router.
func New(config Config) (*Server, error) {
	if config.Runner == nil {
		return nil, errors.New("server: runner is required")
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog(config.Observer))

	server := &Server{config: config, engine: engine}

	engine.GET("/healthz", server.handleHealth)
	engine.POST("/api/agent/run", server.handleRun)
	if config.Reports != nil {
		engine.GET("/reports/:id", server.handleReport)
	}
	if config.Checkpoints != nil {
		engine.GET("/runs/:id", server.handleRunCheckpoint)
	}
	if config.Gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	}

	return server, nil
}

// Handler returns the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	if s.config.Observer != nil {
		s.config.Observer.Info(ctx, "http server listening", observability.String("addr", addr))
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func accessLog(provider observability.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if provider == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		provider.Info(c.Request.Context(), "http request",
			observability.String(observability.AttrHTTPMethod, c.Request.Method),
			observability.String(observability.AttrHTTPURL, route),
			observability.Int(observability.AttrHTTPStatusCode, c.Writer.Status()),
			observability.Duration(observability.AttrDuration, time.Since(start)),
		)
	}
}
