package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status is the health of one check or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckFunc is a function that performs a health check
type CheckFunc func(ctx context.Context) error

// Check represents a single health check result
type Check struct {
	Name        string        `json:"name" yaml:"name"`
	Status      Status        `json:"status" yaml:"status"`
	Message     string        `json:"message" yaml:"message"`
	Latency     time.Duration `json:"latency" yaml:"latency"`
	LastChecked time.Time     `json:"lastChecked" yaml:"lastChecked"`
}

// Checker manages health checks for a service
type Checker struct {
	mu          sync.RWMutex
	checks      map[string]*Check
	lastHealthy time.Time
}

// NewChecker creates a new health checker
func NewChecker() *Checker {
	return &Checker{
		checks:      make(map[string]*Check),
		lastHealthy: time.Now(),
	}
}

// RunCheck executes a health check and updates the status
func (c *Checker) RunCheck(ctx context.Context, name string, checkFunc CheckFunc) Check {
	status := StatusHealthy
	message := "OK"

	start := time.Now()
	if err := checkFunc(ctx); err != nil {
		status = StatusUnhealthy
		message = err.Error()
	}
	latency := time.Since(start)

	c.mu.Lock()
	defer c.mu.Unlock()

	check := &Check{
		Name:        name,
		Status:      status,
		Message:     message,
		Latency:     latency,
		LastChecked: time.Now(),
	}
	c.checks[name] = check

	// Update last healthy time if all checks pass
	if c.isHealthy() {
		c.lastHealthy = check.LastChecked
	}
	return *check
}

// Remove forgets a check, e.g. after its connection was closed.
func (c *Checker) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// GetOverallStatus returns the overall health status
func (c *Checker) GetOverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.checks) == 0 {
		return StatusHealthy
	}

	unhealthyCount := 0
	for _, check := range c.checks {
		if check.Status == StatusUnhealthy {
			unhealthyCount++
		}
	}

	if unhealthyCount == 0 {
		return StatusHealthy
	} else if unhealthyCount < len(c.checks) {
		return StatusDegraded
	}

	return StatusUnhealthy
}

// GetAllChecks returns all health check results sorted by name
func (c *Checker) GetAllChecks() []Check {
	c.mu.RLock()
	defer c.mu.RUnlock()

	checks := make([]Check, 0, len(c.checks))
	for _, check := range c.checks {
		checks = append(checks, *check)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	return checks
}

// GetLastHealthyTime returns the last time all checks were healthy
func (c *Checker) GetLastHealthyTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHealthy
}

func (c *Checker) isHealthy() bool {
	for _, check := range c.checks {
		if check.Status != StatusHealthy {
			return false
		}
	}
	return true
}
