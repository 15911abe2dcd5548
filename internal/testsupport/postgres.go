package testsupport

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"stockwatch/internal/adapters/config"
	"stockwatch/internal/adapters/postgres"
	"stockwatch/migrations"
)

// PostgresTestHelper manages a transactional connection for integration tests.
// The schema is applied inside the transaction, so every test sees a clean database.
type PostgresTestHelper struct {
	client     *postgres.Client
	tx         *sqlx.Tx
	rolledBack bool
}

// NewPostgresTestHelper opens a connection and begins a transaction that is always rolled back.
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	ctx := context.Background()
	client, err := postgres.NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to create postgres client: %v", err)
	}

	tx, err := client.DB().BeginTxx(ctx, nil)
	if err != nil {
		_ = client.Close()
		t.Fatalf("failed to start transaction: %v", err)
	}

	helper := &PostgresTestHelper{client: client, tx: tx}
	t.Cleanup(func() {
		helper.Rollback()
		_ = client.Close()
	})

	if err := migrations.Apply(ctx, tx); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	return helper
}

// Tx returns the active transaction for the test.
func (h *PostgresTestHelper) Tx() *sqlx.Tx {
	return h.tx
}

// DB returns the underlying database handle, outside the test transaction.
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.client.DB()
}

// Rollback rolls back the transaction once.
func (h *PostgresTestHelper) Rollback() {
	if h.rolledBack {
		return
	}
	_ = h.tx.Rollback()
	h.rolledBack = true
}

// Close is an alias for Rollback
func (h *PostgresTestHelper) Close() {
	h.Rollback()
}

// NewTestPostgres skips unless POSTGRES_HOST is set and short mode is off
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	RequireEnv(t, "POSTGRES_HOST")

	return NewPostgresTestHelper(t, LoadDatabaseConfigsFromEnv(t).Postgres)
}
