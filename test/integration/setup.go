package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"plumbstore/internal/config"
	"plumbstore/internal/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SeededCatalog holds the ids created by SeedCatalog.
type SeededCatalog struct {
	CategoryID int64
	TapID      int64 // 100.00
	WasherID   int64 // 50.00
	WrenchID   int64 // 35.50
}

// SetupTestDB starts a PostgreSQL container, applies migrations and opens a pool through database.NewPool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	if err := database.Migrate(connStr, logger); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get mapped port: %v", err)
	}

	pool, err := database.NewPool(ctx, config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "testuser",
		Password:        "testpass",
		Database:        "testdb",
		MaxConnections:  10,
		MinConnections:  2,
		MaxConnLifetime: 300,
		ConnectAttempts: 3,
	}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedCatalog inserts one category with three products.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) SeededCatalog {
	t.Helper()

	ctx := context.Background()
	var seeded SeededCatalog

	err := pool.QueryRow(ctx,
		`INSERT INTO categories (name, description, image, icon) VALUES ('Taps', 'Kitchen and bath', '', 'tap') RETURNING id`,
	).Scan(&seeded.CategoryID)
	if err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}

	products := []struct {
		dst   *int64
		name  string
		price string
	}{
		{&seeded.TapID, "Mixer Tap", "100.00"},
		{&seeded.WasherID, "Rubber Washer Pack", "50.00"},
		{&seeded.WrenchID, "Basin Wrench", "35.50"},
	}
	for _, p := range products {
		err := pool.QueryRow(ctx,
			`INSERT INTO products (category_id, name, description, price, stock, image)
			 VALUES ($1, $2, '', $3::numeric, 10, '') RETURNING id`,
			seeded.CategoryID, p.name, p.price,
		).Scan(p.dst)
		if err != nil {
			t.Fatalf("failed to seed product %s: %v", p.name, err)
		}
	}

	return seeded
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"order_items", "orders", "cart_items", "plumber_requests", "products", "categories"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}
