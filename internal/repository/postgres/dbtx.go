package postgres

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sqlx.DB and *sqlx.Tx, so repositories run inside
// a test transaction the same way they run against the pool
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
