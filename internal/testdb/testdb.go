// Package testdb starts a disposable Postgres for repository integration tests.
package testdb

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"raices-verdes/internal/migrate"
)

// Pool returns a migrated pool. TEST_DB_DSN points the tests at an existing
// database; otherwise a postgres container is started. Skipped under -short.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = startContainer(ctx, t)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}
	if _, err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(ctx, t, pool)
	return pool
}

// Reset truncates every table.
func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE article_reactions, medicinal_articles, payment_details, payments, cart_lines, comments, products, clients, producers, revoked_sessions RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func startContainer(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
}

// Fixture inserts the rows most repository tests need.
type Fixture struct {
	ProducerID string
	ClientID   string
}

func Seed(ctx context.Context, t *testing.T, pool *pgxpool.Pool) Fixture {
	t.Helper()
	var f Fixture
	if err := pool.QueryRow(ctx, `
INSERT INTO producers (id, business_name, email_confirmed, document_verified)
VALUES (gen_random_uuid(), 'Cooperativa Wayuu', true, true)
RETURNING id::text`).Scan(&f.ProducerID); err != nil {
		t.Fatalf("insert producer: %v", err)
	}
	if err := pool.QueryRow(ctx, `
INSERT INTO clients (id, name, email)
VALUES (gen_random_uuid(), 'Ana', 'ana@example.com')
RETURNING id::text`).Scan(&f.ClientID); err != nil {
		t.Fatalf("insert client: %v", err)
	}
	return f
}

// InsertProduct adds a product owned by producerID and returns its id.
func InsertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, producerID, name, price string, stock int, createdAt time.Time) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO products (producer_id, name, price, community, stock, created_at)
VALUES ($1, $2, $3::numeric, 'Wayuu', $4, $5)
RETURNING id::text`, producerID, name, price, stock, createdAt).Scan(&id)
	if err != nil {
		t.Fatalf("insert product %s: %v", name, err)
	}
	return id
}
