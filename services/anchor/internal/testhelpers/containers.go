package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/redbco/redb-anchor/pkg/anchor/adapter"
)

// Engine is a disposable database server started for integration tests.
type Engine struct {
	Container testcontainers.Container
	Config    adapter.ConnectionConfig
}

type engineSpec struct {
	image   string
	port    nat.Port
	env     map[string]string
	wait    wait.Strategy
	config  func(host string, port int) adapter.ConnectionConfig
	started *Engine
	err     error
	once    sync.Once
}

var (
	mysqlSpec = &engineSpec{
		image: "mysql:8.4",
		port:  "3306/tcp",
		env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "anchor",
			"MYSQL_DATABASE":      "anchor_test",
		},
		wait: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(120 * time.Second),
		config: func(host string, port int) adapter.ConnectionConfig {
			return adapter.ConnectionConfig{Host: host, Port: port, User: "root", Password: "anchor", Database: "anchor_test"}
		},
	}
	postgresSpec = &engineSpec{
		image: "postgres:16-alpine",
		port:  "5432/tcp",
		env: map[string]string{
			"POSTGRES_DB":       "anchor_test",
			"POSTGRES_USER":     "anchor",
			"POSTGRES_PASSWORD": "anchor",
		},
		wait: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
		config: func(host string, port int) adapter.ConnectionConfig {
			return adapter.ConnectionConfig{Host: host, Port: port, User: "anchor", Password: "anchor", Database: "anchor_test"}
		},
	}
	mongoSpec = &engineSpec{
		image: "mongo:7",
		port:  "27017/tcp",
		wait:  wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		config: func(host string, port int) adapter.ConnectionConfig {
			return adapter.ConnectionConfig{
				URL:      fmt.Sprintf("mongodb://%s:%d", host, port),
				Database: "anchor_test",
			}
		},
	}
	redisSpec = &engineSpec{
		image: "redis:7-alpine",
		port:  "6379/tcp",
		wait:  wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		config: func(host string, port int) adapter.ConnectionConfig {
			return adapter.ConnectionConfig{Host: host, Port: port}
		},
	}
)

// MySQL returns a shared MySQL server, started on first use.
func MySQL(t *testing.T) *Engine { return get(t, mysqlSpec) }

// Postgres returns a shared PostgreSQL server, started on first use.
func Postgres(t *testing.T) *Engine { return get(t, postgresSpec) }

// Mongo returns a shared MongoDB server, started on first use.
func Mongo(t *testing.T) *Engine { return get(t, mongoSpec) }

// Redis returns a shared Redis server, started on first use.
func Redis(t *testing.T) *Engine { return get(t, redisSpec) }

func get(t *testing.T, spec *engineSpec) *Engine {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	spec.once.Do(func() {
		spec.started, spec.err = start(spec)
	})
	if spec.err != nil {
		t.Fatalf("Failed to start %s: %v", spec.image, spec.err)
	}
	return spec.started
}

func start(spec *engineSpec) (*Engine, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        spec.image,
			ExposedPorts: []string{string(spec.port)},
			Env:          spec.env,
			WaitingFor:   spec.wait,
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, spec.port)
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}

	return &Engine{Container: container, Config: spec.config(host, port)}, nil
}

// Connect opens a session on the engine and closes it when the test ends.
// Connecting is retried briefly while the server finishes starting.
func (e *Engine) Connect(t *testing.T, a adapter.Adapter) adapter.Session {
	t.Helper()

	var lastErr error
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		session, err := a.Connect(ctx, e.Config)
		cancel()
		if err == nil {
			t.Cleanup(func() { _ = session.Close() })
			return session
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("Failed to connect to %s: %v", a.Type(), lastErr)
	return nil
}
