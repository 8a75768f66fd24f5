//go:build integration

// Package containers starts throwaway Postgres and Redis instances for
// integration tests (go test -tags integration ./...).
package containers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/aura-events/backend/pkg/database"
)

// NewPostgres starts Postgres, applies the embedded migrations and returns a pool.
func NewPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("aura_test"),
		tcpostgres.WithUsername("aura"),
		tcpostgres.WithPassword("aura"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	pool, err := database.NewPostgresPool(ctx, dsn, 60, zap.NewNop())
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

// Truncate empties the given tables between tests.
func Truncate(t *testing.T, pool *pgxpool.Pool, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := pool.Exec(context.Background(), "TRUNCATE "+table+" CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

// SeedUser inserts a user with the given role and returns its id.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (email, full_name, role) VALUES ($1, $2, $3) RETURNING id`,
		uuid.NewString()+"@test.local", "Test "+role, role,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

// SeedEvent inserts an event running from start to end at (lat, lon).
func SeedEvent(t *testing.T, pool *pgxpool.Pool, start, end time.Time, lat, lon float64) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO events (title, starts_at, ends_at, latitude, longitude) VALUES ('Seeded event', $1, $2, $3, $4) RETURNING id`,
		start, end, lat, lon,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return id
}

// SeedPresentation inserts an oral presentation for eventID.
func SeedPresentation(t *testing.T, pool *pgxpool.Pool, eventID, authorID uuid.UUID) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO presentations (event_id, title, author_id, modality) VALUES ($1, 'Seeded talk', $2, 'oral') RETURNING id`,
		eventID, authorID,
	).Scan(&id)
	if err != nil {
		t.Fatalf("seed presentation: %v", err)
	}
	return id
}
