package resourcemgmt

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	goroutineCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recharge_goroutines_count",
		Help: "Current number of goroutines in the process",
	})

	goroutineLeakDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recharge_goroutine_leaks_detected_total",
		Help: "Total number of potential goroutine leak detections",
	})
)

// Config holds configuration for the goroutine monitor
type Config struct {
	LeakThreshold int // Goroutines above baseline to alert
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{LeakThreshold: 100}
}

// GoroutineMonitor compares the live goroutine count with the count taken at
// startup. Every gateway call holds one goroutine for at most the gateway
// timeout, so a count that keeps climbing points at a stuck connection.
type GoroutineMonitor struct {
	logger        *zap.Logger
	baselineCount int
	leakThreshold int
	count         func() int
}

// NewGoroutineMonitor records the current goroutine count as the baseline
func NewGoroutineMonitor(logger *zap.Logger, cfg *Config) *GoroutineMonitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &GoroutineMonitor{
		logger:        logger,
		leakThreshold: cfg.LeakThreshold,
		count:         runtime.NumGoroutine,
	}
	m.baselineCount = m.count()

	logger.Info("Goroutine monitor initialized",
		zap.Int("baseline_goroutines", m.baselineCount),
		zap.Int("leak_threshold", m.leakThreshold),
	)
	return m
}

// Check samples the goroutine count. It reports whether the count is above
// baseline by more than the threshold. The ctx parameter lets Check run
// directly under shutdown.PeriodicWorker.
func (m *GoroutineMonitor) Check(_ context.Context) bool {
	current := m.count()
	goroutineCount.Set(float64(current))

	increase := current - m.baselineCount
	if increase > m.leakThreshold {
		m.logger.Warn("Potential goroutine leak detected",
			zap.Int("current_count", current),
			zap.Int("baseline_count", m.baselineCount),
			zap.Int("increase", increase),
			zap.Int("threshold", m.leakThreshold),
		)
		goroutineLeakDetected.Inc()
		return true
	}

	m.logger.Debug("Goroutine status",
		zap.Int("total_goroutines", current),
		zap.Int("increase", increase),
	)
	return false
}

// Stats is a snapshot of the monitor's view
type Stats struct {
	TotalGoroutines    int
	BaselineGoroutines int
	Increase           int
}

// GetStats returns current goroutine statistics
func (m *GoroutineMonitor) GetStats() Stats {
	current := m.count()
	return Stats{
		TotalGoroutines:    current,
		BaselineGoroutines: m.baselineCount,
		Increase:           current - m.baselineCount,
	}
}
