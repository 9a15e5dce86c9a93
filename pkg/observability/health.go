package observability

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/recharge-service/pkg/encoding"
	"github.com/redis/go-redis/v9"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker manages health checks for the service
type HealthChecker struct {
	dbPool *pgxpool.Pool
	redis  *redis.Client

	mu       sync.RWMutex
	circuits map[string]func() string
}

// NewHealthChecker creates a new HealthChecker. Either dependency may be nil.
func NewHealthChecker(dbPool *pgxpool.Pool, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		dbPool:   dbPool,
		redis:    redisClient,
		circuits: make(map[string]func() string),
	}
}

// AddCircuit reports a gateway breaker. An open breaker degrades health.
func (h *HealthChecker) AddCircuit(gateway string, state func() string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.circuits[gateway] = state
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	checks := make(map[string]string)
	overallStatus := "healthy"

	// Database health check
	if h.dbPool != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.dbPool.Ping(dbCtx); err != nil {
			checks["database"] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// The balance cache is advisory, so a failing redis degrades but does not fail readiness
	if h.redis != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := h.redis.Ping(redisCtx).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			if overallStatus == "healthy" {
				overallStatus = "degraded"
			}
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.circuits))
	for name := range h.circuits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := h.circuits[name]()
		checks["gateway_"+name] = "circuit " + state
		if state == "open" && overallStatus == "healthy" {
			overallStatus = "degraded"
		}
	}
	h.mu.RUnlock()

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = encoding.WriteJSON(w, status)
	}
}
