// Package server configures and runs the HTTP server.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/handler"
	"github.com/fundlane/edgegate/internal/middleware"
	"github.com/fundlane/edgegate/internal/pipeline"
)

// New creates a configured *http.Server with the pipeline, origin, and
// operational endpoints wired.
//
// Requests matching cfg.Matchers enter the pipeline; everything else
// goes straight to the origin. Health, version, and metrics live
// outside the pipeline so probes and scrapes are never rate limited or
// redirected.
func New(cfg config.Config, d *pipeline.Dispatcher, origin http.Handler, logger *slog.Logger) *http.Server {
	matchers := pipeline.Matchers(cfg.Matchers)
	edge := d.Handler(origin)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handler.Health())
	mux.HandleFunc("GET /version", handler.VersionInfo())
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if matchers.Match(r.URL.Path) {
			edge.ServeHTTP(w, r)
			return
		}
		origin.ServeHTTP(w, r)
	}))

	// Outer observation stack (outermost → innermost):
	// RequestID → Recover → Metrics → Logging. Requests are labeled by
	// route class, the only bounded path-derived label.
	classes := classTable(cfg.Routes)
	classify := func(path, method string) string {
		return classes.Classify(path, method).String()
	}
	root := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.Recover(logger),
		middleware.Metrics(classify),
		middleware.Logging(logger),
	)

	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

// classTable converts the route prefix config into the pipeline's
// classification table.
func classTable(r config.Routes) pipeline.ClassTable {
	return pipeline.ClassTable{
		Webhook: r.WebhookPrefixes,
		Cron:    r.CronPrefixes,
		API:     r.APIPrefixes,
		Asset:   r.AssetPrefixes,
	}
}

// Shutdown gracefully shuts down the server with the given context.
func Shutdown(ctx context.Context, srv *http.Server, logger *slog.Logger) {
	logger.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}
