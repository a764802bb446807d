package engine

import (
	"context"
	"time"

	"github.com/redbco/redb-anchor/pkg/health"
	"github.com/redbco/redb-anchor/services/anchor/internal/catalog"
)

// Report is the result of Health.
type Report struct {
	Status      health.Status    `json:"status" yaml:"status"`
	Checks      []health.Check   `json:"checks" yaml:"checks"`
	Metrics     map[string]int64 `json:"metrics" yaml:"metrics"`
	LastHealthy time.Time        `json:"lastHealthy" yaml:"lastHealthy"`
}

// HealthChecks returns a check per connected data source, keyed by name.
func (e *Engine) HealthChecks() map[string]health.CheckFunc {
	checks := map[string]health.CheckFunc{}
	connected, err := e.catalog.Filter(catalog.Filter{Status: catalog.StatusConnected})
	if err != nil {
		return checks
	}
	for _, d := range connected {
		name, id := d.Name, *d.ConnectionID
		checks[name] = func(ctx context.Context) error {
			_, err := e.registry.TestConnection(ctx, id)
			if err != nil {
				e.catalog.Reconcile(name, err)
			}
			return err
		}
	}
	return checks
}

// Health pings every connected data source. Sources whose connection was
// lost are marked disconnected and reported unhealthy.
func (e *Engine) Health(ctx context.Context) Report {
	checks := e.HealthChecks()
	for name, fn := range checks {
		check := e.health.RunCheck(ctx, name, fn)
		if check.Status != health.StatusHealthy {
			e.logger.Warnf("Health check of %s failed: %s", name, check.Message)
		}
	}
	for _, c := range e.health.GetAllChecks() {
		if _, ok := checks[c.Name]; !ok {
			e.health.Remove(c.Name)
		}
	}

	return e.report()
}

// CheckAll connects every data source that is not connected yet and checks
// all of them. Connect failures are reported as unhealthy checks.
func (e *Engine) CheckAll(ctx context.Context) Report {
	for _, d := range e.catalog.List() {
		if d.IsConnected() {
			continue
		}
		name := d.Name
		check := e.health.RunCheck(ctx, name, func(ctx context.Context) error {
			_, err := e.Connect(ctx, name)
			return err
		})
		if check.Status != health.StatusHealthy {
			e.logger.Warnf("Data source %s is unreachable: %s", name, check.Message)
		}
	}

	checks := e.HealthChecks()
	for name, fn := range checks {
		e.health.RunCheck(ctx, name, fn)
	}
	return e.report()
}

func (e *Engine) report() Report {
	return Report{
		Status:      e.health.GetOverallStatus(),
		Checks:      e.health.GetAllChecks(),
		Metrics:     e.GetMetrics(),
		LastHealthy: e.health.GetLastHealthyTime(),
	}
}
