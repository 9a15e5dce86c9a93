package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kevin07696/recharge-service/internal/adapters/database"
	"github.com/kevin07696/recharge-service/internal/adapters/ev"
	"github.com/kevin07696/recharge-service/internal/adapters/iris"
	"github.com/kevin07696/recharge-service/internal/adapters/postgres"
	rediscache "github.com/kevin07696/recharge-service/internal/adapters/redis"
	"github.com/kevin07696/recharge-service/internal/adapters/tracelog"
	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/internal/domain"
	"github.com/kevin07696/recharge-service/internal/domain/ports"
	rechargeHandler "github.com/kevin07696/recharge-service/internal/handlers/recharge"
	"github.com/kevin07696/recharge-service/internal/services/interpreter"
	"github.com/kevin07696/recharge-service/internal/services/offer"
	"github.com/kevin07696/recharge-service/internal/services/recharge"
	"github.com/kevin07696/recharge-service/pkg/observability"
	"github.com/kevin07696/recharge-service/pkg/resourcemgmt"
	"github.com/kevin07696/recharge-service/pkg/security"
	"github.com/kevin07696/recharge-service/pkg/shutdown"
	"github.com/kevin07696/recharge-service/pkg/timeutil"
)

// Dependencies holds the initialized handlers and health checker
type Dependencies struct {
	rechargeHandler *rechargeHandler.Handler
	traceHandler    *rechargeHandler.TraceHandler
	health          *observability.HealthChecker
}

// initDependencies builds every adapter and service. Each long-lived resource
// is registered with the shutdown manager as soon as it exists.
func initDependencies(cfg *config.Config, logger *zap.Logger, shutdownMgr *shutdown.Manager) (*Dependencies, error) {
	ctx := context.Background()
	portLogger := security.NewZapLogger(logger)

	// Postgres
	dbCfg := database.DefaultPostgreSQLConfig(cfg.Database.ConnectionString())
	dbCfg.MaxConns = cfg.Database.MaxConns
	dbCfg.MinConns = cfg.Database.MinConns
	dbAdapter, err := database.NewPostgreSQLAdapter(ctx, dbCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	shutdownMgr.RegisterNoErr("postgres", dbAdapter.Close)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	dbAdapter.StartPoolMonitoring(monitorCtx, 30*time.Second)
	shutdownMgr.RegisterNoErr("pool-monitor", stopMonitor)

	monitor := resourcemgmt.NewGoroutineMonitor(logger, nil)
	monitorWorker := shutdown.NewPeriodicWorker("goroutine-monitor", 30*time.Second, logger)
	monitorWorker.Start(func(ctx context.Context) { monitor.Check(ctx) })
	shutdownMgr.Register("goroutine-monitor", monitorWorker.Shutdown)

	db := postgres.NewDBExecutor(dbAdapter.Pool())
	txLogs := postgres.NewTransactionLogRepository(db)
	retailers := postgres.NewRetailerRepository(db)

	// Redis balance cache, optional
	var (
		balances    ports.BalanceSnapshotStore = retailers
		redisClient *goredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = rediscache.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, serving balances from Postgres", zap.Error(err))
		} else {
			balances = rediscache.NewBalanceCache(redisClient, retailers, cfg.Redis.TTL, portLogger)
			shutdownMgr.RegisterCloser("redis", redisClient)
			logger.Info("Redis balance cache enabled", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// Attempt traces
	traces, err := tracelog.Open(cfg.Trace.Path)
	if err != nil {
		return nil, fmt.Errorf("trace store: %w", err)
	}
	shutdownMgr.RegisterCloser("trace-store", traces)
	startTracePruner(cfg.Trace, traces, logger, shutdownMgr)

	// Gateways
	evAdapter := ev.NewAdapter(ev.ConfigFrom(cfg.EV), nil, logger)
	irisAdapter := iris.NewAdapter(iris.ConfigFrom(cfg.IRIS), nil, portLogger)

	interp, err := interpreter.New(cfg.Recharge, map[domain.Gateway]string{
		domain.GatewayEV:   cfg.EV.SuccessCode,
		domain.GatewayIRIS: cfg.IRIS.SuccessCode,
	})
	if err != nil {
		return nil, fmt.Errorf("interpreter: %w", err)
	}

	// Services
	rechargeSvc := recharge.NewService(
		[]ports.RechargeGateway{evAdapter, irisAdapter},
		interp,
		txLogs,
		balances,
		traces,
		retailers,
		recharge.Options{
			Recharge: cfg.Recharge,
			Reconcile: map[domain.Gateway]bool{
				domain.GatewayEV:   cfg.EV.ReconcileBalance,
				domain.GatewayIRIS: cfg.IRIS.ReconcileBalance,
			},
		},
		portLogger,
	)
	balanceSvc := recharge.NewBalanceService(evAdapter, interp, balances, traces, retailers, portLogger)
	catalogSvc := offer.NewCatalogService(
		irisAdapter,
		offer.NewNormalizer(cfg.Recharge),
		interp,
		cfg.Recharge.NoOfferMessage,
		portLogger,
	)

	health := observability.NewHealthChecker(dbAdapter.Pool(), redisClient)
	health.AddCircuit(string(domain.GatewayEV), func() string { return evAdapter.CircuitState().String() })
	health.AddCircuit(string(domain.GatewayIRIS), func() string { return irisAdapter.CircuitState().String() })

	return &Dependencies{
		rechargeHandler: rechargeHandler.NewHandler(rechargeSvc, catalogSvc, balanceSvc, logger),
		traceHandler:    rechargeHandler.NewTraceHandler(traces, logger),
		health:          health,
	}, nil
}

// startTracePruner drops attempt traces older than the retention window,
// measured from the start of the current day.
func startTracePruner(cfg config.TraceConfig, traces *tracelog.Store, logger *zap.Logger, shutdownMgr *shutdown.Manager) {
	if cfg.Retention <= 0 || cfg.PruneInterval <= 0 {
		logger.Info("Trace pruning disabled")
		return
	}

	pruner := shutdown.NewPeriodicWorker("trace-pruner", cfg.PruneInterval, logger)
	pruner.Start(func(ctx context.Context) {
		cutoff := timeutil.StartOfDay(timeutil.Now()).Add(-cfg.Retention)
		removed, err := traces.Prune(cutoff)
		if err != nil {
			logger.Error("Trace prune failed", zap.Error(err))
			return
		}
		if removed > 0 {
			logger.Info("Pruned attempt traces",
				zap.Int("removed", removed),
				zap.Time("cutoff", cutoff),
			)
		}
	})
	shutdownMgr.Register("trace-pruner", pruner.Shutdown)
}
