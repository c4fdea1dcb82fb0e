// Package testutil provides testing utilities for the Tillsup backend.
// It includes a PostgreSQL testcontainer with the shared multi-tenant
// schema, fixture factories and sqlmock helpers.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "tillsup_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "tillsup_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateSchema creates the shared multi-tenant tables. Every table carries a
// business_id column; the owner linkage is deliberately nullable so repair
// scenarios can be reproduced in tests.
func (c *PostgresContainer) CreateSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS businesses (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS branches (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id),
			name TEXT NOT NULL,
			location TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id),
			branch_id UUID REFERENCES branches(id),
			role TEXT NOT NULL,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			must_change_password BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deactivated_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_profiles_business ON profiles(business_id);
		CREATE INDEX IF NOT EXISTS idx_profiles_business_role ON profiles(business_id, role);

		CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			business_id UUID NOT NULL REFERENCES businesses(id),
			branch_id UUID REFERENCES branches(id),
			sku TEXT NOT NULL,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (business_id, sku)
		);

		CREATE INDEX IF NOT EXISTS idx_items_business_branch ON items(business_id, branch_id);

		CREATE TABLE IF NOT EXISTS stock_adjustments (
			id UUID PRIMARY KEY,
			item_id UUID NOT NULL REFERENCES items(id),
			business_id UUID NOT NULL REFERENCES businesses(id),
			branch_id UUID REFERENCES branches(id),
			actor_id UUID NOT NULL,
			delta INTEGER NOT NULL,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Truncate empties all tables between tests
func (c *PostgresContainer) Truncate(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE stock_adjustments, items, profiles, branches, businesses CASCADE
	`)
	return err
}
