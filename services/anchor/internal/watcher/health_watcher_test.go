package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-anchor/pkg/health"
	"github.com/redbco/redb-anchor/pkg/logger"
	"github.com/redbco/redb-anchor/services/anchor/internal/engine"
)

type scriptedChecker struct {
	mu       sync.Mutex
	statuses []health.Status
	calls    int
}

func (p *scriptedChecker) Health(context.Context) engine.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := p.statuses[len(p.statuses)-1]
	if p.calls < len(p.statuses) {
		status = p.statuses[p.calls]
	}
	p.calls++
	return engine.Report{Status: status}
}

func TestHealthWatcherReportsEveryRound(t *testing.T) {
	checker := &scriptedChecker{statuses: []health.Status{health.StatusHealthy, health.StatusDegraded}}

	var mu sync.Mutex
	var seen []health.Status
	w := NewHealthWatcher(checker, 5*time.Millisecond, logger.NewNop(), func(r engine.Report) {
		mu.Lock()
		seen = append(seen, r.Status)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return w.Runs() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, health.StatusHealthy, seen[0])
	assert.Equal(t, health.StatusDegraded, seen[1])
	assert.Equal(t, health.StatusDegraded, w.LastStatus())
}

func TestHealthWatcherDefaults(t *testing.T) {
	w := NewHealthWatcher(&scriptedChecker{statuses: []health.Status{health.StatusHealthy}}, 0, nil, nil)
	assert.Equal(t, DefaultInterval, w.interval)
	assert.Equal(t, health.Status(""), w.LastStatus())
	assert.Zero(t, w.Runs())
}

func TestHealthWatcherStopsOnCancelledContext(t *testing.T) {
	checker := &scriptedChecker{statuses: []health.Status{health.StatusHealthy}}
	w := NewHealthWatcher(checker, time.Hour, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)
	assert.Zero(t, w.Runs())
}
