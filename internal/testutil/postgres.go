// Package testutil starts throwaway storage servers for backend tests.
package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/questweaver/internal/config"
)

// GameStateDB is an empty PostgreSQL database in a container.
type GameStateDB struct {
	Config config.DatabaseConfig
	// Inspect is a pool for assertions made beside the code under test.
	Inspect *pgxpool.Pool
}

// NewGameStateDB starts PostgreSQL with no schema applied.
//
// Precondition: Docker must be available.
// Postcondition: Returns a reachable database, or fails the test. The
// container is terminated on cleanup.
func NewGameStateDB(t *testing.T) *GameStateDB {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "questweaver",
				"POSTGRES_PASSWORD": "questweaver",
				"POSTGRES_DB":       "questweaver",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres: %v [%s]", err, time.Since(start))
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "questweaver",
		Password:        "questweaver",
		Name:            "questweaver",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}
	inspect, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(inspect.Close)

	t.Logf("postgres started on %s:%d [%s]", host, port.Int(), time.Since(start))
	return &GameStateDB{Config: cfg, Inspect: inspect}
}

// Migrate applies the repository's migrations/ directory, the same files
// cmd/migrate runs.
//
// Postcondition: The game_states table exists, or the test fails.
func (db *GameStateDB) Migrate(t *testing.T) {
	t.Helper()
	m, err := migrate.New("file://"+migrationsDir(t), db.Config.DSN())
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("applying migrations: %v", err)
	}
}

// migrationsDir locates migrations/ relative to this source file.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("locating testutil source")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
