package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/questweaver/internal/config"
)

// RedisContainer wraps a testcontainers Redis instance.
type RedisContainer struct {
	container testcontainers.Container
	Config    config.RedisConfig
}

// NewRedisContainer starts a Redis test container.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container whose Config.Addr accepts
// connections, or fails the test.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mappedPort, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	t.Logf("redis container started [%s]", time.Since(start))

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	return &RedisContainer{
		container: container,
		Config:    config.RedisConfig{Addr: fmt.Sprintf("%s:%d", host, mappedPort.Int())},
	}
}
