package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redbco/redb-anchor/pkg/logger"
)

// Service is a component with an explicit lifecycle.
type Service interface {
	// Name identifies the service in logs and errors
	Name() string

	// Initialize acquires resources. It is called once, in registration order.
	Initialize(ctx context.Context) error

	// Shutdown releases resources. It is called in reverse registration order.
	Shutdown(ctx context.Context) error
}

// Group starts and stops a set of services in dependency order.
type Group struct {
	logger   *logger.Logger
	mu       sync.Mutex
	services []Service
	started  int
}

// NewGroup creates a group. Services are initialized in the order given.
func NewGroup(logger *logger.Logger, services ...Service) *Group {
	return &Group{logger: logger, services: services}
}

// Add appends a service to the group. It must be called before Start.
func (g *Group) Add(svc Service) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.services = append(g.services, svc)
}

// Start initializes every service. If one fails, the ones already started
// are shut down in reverse order and the failure is returned.
func (g *Group) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := g.started; i < len(g.services); i++ {
		svc := g.services[i]
		g.logger.Debugf("Initializing service %s", svc.Name())
		if err := svc.Initialize(ctx); err != nil {
			g.rollback(ctx)
			return fmt.Errorf("failed to initialize %s: %w", svc.Name(), err)
		}
		g.started = i + 1
	}
	return nil
}

func (g *Group) rollback(ctx context.Context) {
	for i := g.started - 1; i >= 0; i-- {
		svc := g.services[i]
		if err := svc.Shutdown(ctx); err != nil {
			g.logger.Warnf("Failed to shut down %s during rollback: %v", svc.Name(), err)
		}
	}
	g.started = 0
}

// Stop shuts down the started services in reverse order. Every service is
// given the chance to stop; errors are joined.
func (g *Group) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for i := g.started - 1; i >= 0; i-- {
		svc := g.services[i]
		g.logger.Debugf("Shutting down service %s", svc.Name())
		if err := svc.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", svc.Name(), err))
		}
	}
	g.started = 0
	return errors.Join(errs...)
}

// Running reports whether Start completed and Stop has not been called.
func (g *Group) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started > 0 && g.started == len(g.services)
}
