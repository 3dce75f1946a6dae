package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fundlane/edgegate/internal/config"
	"github.com/fundlane/edgegate/internal/cors"
	"github.com/fundlane/edgegate/internal/csp"
	"github.com/fundlane/edgegate/internal/csrf"
	"github.com/fundlane/edgegate/internal/handler"
	"github.com/fundlane/edgegate/internal/logging"
	"github.com/fundlane/edgegate/internal/observability"
	"github.com/fundlane/edgegate/internal/pipeline"
	"github.com/fundlane/edgegate/internal/ratelimit"
	"github.com/fundlane/edgegate/internal/report"
	"github.com/fundlane/edgegate/internal/server"
	"github.com/fundlane/edgegate/internal/tracking"

	edgeauth "github.com/fundlane/edgegate/internal/auth"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional, env vars work without it)")
	flag.Parse()

	// Load configuration: defaults -> YAML file -> env vars.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Set up structured logger.
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Security.CronSecret == "" {
		logger.Warn("cron secret is unset: cron and webhook paths will deny every request",
			"env", cfg.Security.CronSecretEnv)
	}

	// Rate-limit counter store.
	var limiter pipeline.RateLimiter
	var redisLimiter *ratelimit.Redis
	switch cfg.RateLimit.Backend {
	case "redis":
		redisLimiter = ratelimit.NewRedis(cfg.RateLimit)
		limiter = redisLimiter
		logger.Info("rate limiter configured", "backend", "redis", "addr", cfg.RateLimit.Redis.Addr)
	default:
		limiter = ratelimit.NewMemory(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		logger.Info("rate limiter configured", "backend", "memory",
			"rps", cfg.RateLimit.RequestsPerSecond, "burst", cfg.RateLimit.Burst)
	}

	// Session and admin decision providers. Missing URLs fail closed.
	var edgeAuth pipeline.EdgeAuthenticator = edgeauth.DenyAll{}
	if cfg.Auth.EdgeURL != "" {
		edgeAuth = edgeauth.NewRemote(cfg.Auth.EdgeURL, cfg.Auth.Timeout)
		logger.Info("edge auth provider configured", "url", cfg.Auth.EdgeURL)
	} else {
		logger.Warn("auth.edge_url is unset: sessions deny every request")
	}
	var adminAuth pipeline.AdminAuthenticator = edgeauth.DenyAll{}
	if cfg.Auth.AdminURL != "" {
		adminAuth = edgeauth.NewRemote(cfg.Auth.AdminURL, cfg.Auth.Timeout)
		logger.Info("admin auth provider configured", "url", cfg.Auth.AdminURL)
	}

	reporter := report.Default()

	dispatcher := pipeline.New(pipeline.Options{
		Hosts:     pipeline.NewHostChecker(cfg.Security.AllowedHosts),
		Redirects: redirectTable(cfg.Redirects),
		Classes: pipeline.ClassTable{
			Webhook: cfg.Routes.WebhookPrefixes,
			Cron:    cfg.Routes.CronPrefixes,
			API:     cfg.Routes.APIPrefixes,
			Asset:   cfg.Routes.AssetPrefixes,
		},
		AdminAPIPrefixes:  cfg.Routes.AdminAPIPrefixes,
		AdminPagePrefixes: cfg.Routes.AdminPagePrefixes,
		Secret:            cfg.Security.CronSecret,
		Auth:              edgeAuth,
		AdminAuth:         adminAuth,
		CSRF:              csrf.New(cfg.CSRF),
		CORS:              cors.New(cfg.CORS),
		Limiter:           limiter,
		CSP:               csp.New(cfg.CSP),
		Tracking:          tracking.New(cfg.Tracking),
		Reporter:          reporter,
		Logger:            logger,
	})

	srv := server.New(cfg, dispatcher, handler.Origin(), logger)

	// Optional OpenTelemetry tracing: wrap handler so all requests are traced.
	var tp *observability.TracerProvider
	if cfg.Observability.OTelEnabled {
		var errOTel error
		tp, errOTel = observability.NewTracerProvider(context.Background(), cfg.Observability.OTelEndpoint, cfg.Observability.OTelServiceName)
		if errOTel != nil {
			logger.Error("otel tracer provider failed", "err", errOTel)
			os.Exit(1)
		}
		srv.Handler = observability.HTTPHandler(srv.Handler, cfg.Observability.OTelServiceName)
		logger.Info("opentelemetry tracing enabled", "endpoint", cfg.Observability.OTelEndpoint)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if tp != nil {
		_ = tp.Shutdown(ctx)
	}
	server.Shutdown(ctx, srv, logger)
	_ = reporter.Flush(ctx)
	if redisLimiter != nil {
		_ = redisLimiter.Close()
	}
	logger.Info("server stopped")
}

func redirectTable(rules []config.Redirect) pipeline.RedirectTable {
	table := make(pipeline.RedirectTable, 0, len(rules))
	for _, r := range rules {
		table = append(table, pipeline.RedirectRule{From: r.From, To: r.To, Prefix: r.Prefix})
	}
	return table
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Use cloud-friendly logger (GCP severity, optional resource) when configured.
	if cfg.CloudFormat != "" {
		return logging.NewLogger(os.Stdout, level, cfg.Format, cfg.CloudFormat)
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h)
}
