package shutdown

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var inFlightGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "recharge_inflight_work",
	Help: "Units of work admitted and not yet finished",
}, []string{"tracker"})

// InFlightTracker admits work until shutdown starts and then lets the
// admitted work drain. A recharge that reached the gateway must finish its
// bookkeeping, so it is never cut off by the tracker itself.
type InFlightTracker struct {
	name   string
	logger *zap.Logger
	gauge  prometheus.Gauge

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	drained  chan struct{}
	stopOnce sync.Once
}

// NewInFlightTracker creates a tracker reported under name
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{
		name:    name,
		logger:  logger,
		gauge:   inFlightGauge.WithLabelValues(name),
		drained: make(chan struct{}),
	}
}

// Add admits one unit of work. It reports false once draining has begun.
func (t *InFlightTracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.draining {
		return false
	}
	t.wg.Add(1)
	t.gauge.Inc()
	return true
}

// Done releases a unit admitted by Add
func (t *InFlightTracker) Done() {
	t.gauge.Dec()
	t.wg.Done()
}

// IsShuttingDown reports whether draining has begun
func (t *InFlightTracker) IsShuttingDown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draining
}

// Shutdown stops admitting work and waits for admitted work or ctx
func (t *InFlightTracker) Shutdown(ctx context.Context) error {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.draining = true
		t.mu.Unlock()

		go func() {
			t.wg.Wait()
			close(t.drained)
		}()
	})

	t.logger.Info("Draining in-flight work", zap.String("tracker", t.name))
	select {
	case <-t.drained:
		t.logger.Info("In-flight work drained", zap.String("tracker", t.name))
		return nil
	case <-ctx.Done():
		t.logger.Warn("Drain timed out with work still running", zap.String("tracker", t.name))
		return ctx.Err()
	}
}

// Middleware answers 503 once draining has begun
func (t *InFlightTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Add() {
			w.Header().Set("Connection", "close")
			http.Error(w, "service is shutting down", http.StatusServiceUnavailable)
			return
		}
		defer t.Done()
		next.ServeHTTP(w, r)
	})
}
