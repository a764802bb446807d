package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redbco/redb-anchor/pkg/health"
	"github.com/redbco/redb-anchor/pkg/logger"
	"github.com/redbco/redb-anchor/services/anchor/internal/engine"
)

// DefaultInterval is used when a watcher is created with a zero interval.
const DefaultInterval = 30 * time.Second

// Checker runs one round of health checks.
type Checker interface {
	Health(ctx context.Context) engine.Report
}

// HealthWatcher checks connected data sources on a fixed interval until its
// context is cancelled.
type HealthWatcher struct {
	checker  Checker
	interval time.Duration
	logger   *logger.Logger
	onReport func(engine.Report)
	runs     int64
	last     atomic.Value
}

// NewHealthWatcher creates a watcher. onReport, when set, receives every
// report.
func NewHealthWatcher(checker Checker, interval time.Duration, logger *logger.Logger, onReport func(engine.Report)) *HealthWatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &HealthWatcher{
		checker:  checker,
		interval: interval,
		logger:   logger,
		onReport: onReport,
	}
}

// Start blocks until ctx is done.
func (w *HealthWatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Infof("Health watcher starting (interval %s)", w.interval)
	defer w.logger.Info("Health watcher shutdown complete")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			w.check(ctx)
		}
	}
}

func (w *HealthWatcher) check(ctx context.Context) {
	report := w.checker.Health(ctx)
	atomic.AddInt64(&w.runs, 1)

	previous, _ := w.last.Load().(health.Status)
	if previous != "" && previous != report.Status {
		w.logger.Warnf("Overall health changed from %s to %s", previous, report.Status)
	}
	w.last.Store(report.Status)

	if w.onReport != nil && ctx.Err() == nil {
		w.onReport(report)
	}
}

// Runs returns how many rounds have completed.
func (w *HealthWatcher) Runs() int64 {
	return atomic.LoadInt64(&w.runs)
}

// LastStatus returns the overall status of the most recent round, or "" if
// none has run.
func (w *HealthWatcher) LastStatus() health.Status {
	status, _ := w.last.Load().(health.Status)
	return status
}
