package shutdown

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PeriodicWorker runs housekeeping (trace pruning, goroutine sampling) on a
// fixed interval. The first run happens on Start.
type PeriodicWorker struct {
	name     string
	interval time.Duration
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewPeriodicWorker creates a worker that is idle until Start
func NewPeriodicWorker(name string, interval time.Duration, logger *zap.Logger) *PeriodicWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &PeriodicWorker{
		name:     name,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. work receives a context cancelled by Shutdown.
// Calling Start more than once has no effect.
func (w *PeriodicWorker) Start(work func(ctx context.Context)) {
	w.once.Do(func() {
		go w.loop(work)
	})
}

func (w *PeriodicWorker) loop(work func(ctx context.Context)) {
	defer close(w.done)

	w.logger.Info("Periodic worker started",
		zap.String("worker", w.name),
		zap.Duration("interval", w.interval),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	work(w.ctx)
	for {
		select {
		case <-w.ctx.Done():
			w.logger.Info("Periodic worker stopped", zap.String("worker", w.name))
			return
		case <-ticker.C:
			work(w.ctx)
		}
	}
}

// Shutdown cancels the worker and waits for the current run or ctx
func (w *PeriodicWorker) Shutdown(ctx context.Context) error {
	w.cancel()
	// a worker that was never started has nothing to wait for
	w.once.Do(func() { close(w.done) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("Periodic worker did not stop in time", zap.String("worker", w.name))
		return ctx.Err()
	}
}
