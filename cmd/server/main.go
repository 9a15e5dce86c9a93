package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/pkg/middleware"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"github.com/kevin07696/recharge-service/pkg/resilience"
	"github.com/kevin07696/recharge-service/pkg/security"
	"github.com/kevin07696/recharge-service/pkg/shutdown"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := security.NewZapLoggerFromLevel(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting recharge service",
		zap.String("version", version),
		zap.String("environment", cfg.Tracing.Environment),
	)

	shutdownMgr := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	stopTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Version:     version,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	// Registered first so spans from the rest of shutdown are still exported
	shutdownMgr.Register("tracing", stopTracing)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := loadCredentials(ctx, cfg, logger); err != nil {
		cancel()
		logger.Fatal("Failed to load gateway credentials", zap.Error(err))
	}
	cancel()

	deps, err := initDependencies(cfg, logger, shutdownMgr)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}

	mux := newPublicMux(deps, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	shutdownMgr.RegisterNoErr("rate-limiter", rateLimiter.Shutdown)

	inFlight := shutdown.NewInFlightTracker("http-requests", logger)

	httpServer := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.Recovery(logger),
			observability.HTTPTracingMiddleware,
			middleware.Logging(logger),
			middleware.SecurityHeaders(cfg.Server.BehindTLS),
			observability.HTTPMetricsMiddleware,
			rateLimiter.Middleware,
			inFlight.Middleware,
			middleware.Timeout(resilience.DefaultTimeoutConfig()),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	metricsServer := observability.StartMetricsServer(cfg.Server.MetricsPort, deps.health, deps.traceHandler.RegisterRoutes)
	logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))

	go func() {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// LIFO: the listener stops first, then in-flight recharges drain, then
	// the stores they write to close.
	shutdownMgr.RegisterHTTPServer("metrics-server", metricsServer)
	shutdownMgr.Register("in-flight-requests", inFlight.Shutdown)
	shutdownMgr.RegisterHTTPServer("http-server", httpServer)

	shutdownMgr.WaitForShutdown()
	logger.Info("Recharge service stopped")
}

// newPublicMux holds the retailer-facing routes. Attempt traces are served
// from the metrics listener instead.
func newPublicMux(deps *Dependencies, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	deps.rechargeHandler.RegisterRoutes(mux, middleware.Gzip(logger))
	return mux
}
