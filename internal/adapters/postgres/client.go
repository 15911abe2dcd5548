package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"stockwatch/internal/adapters/config"
	"stockwatch/pkg/errors"
)

// Client wraps sqlx.DB for the stocks, tracked positions and alerts tables
type Client struct {
	db *sqlx.DB
}

// NewClient connects with pooling and verifies the connection
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(errors.Join(errors.ErrUnavailable, err), "connect to postgres")
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.Join(errors.ErrUnavailable, err), "ping postgres")
	}

	return &Client{db: db}, nil
}

// DB returns the underlying sqlx.DB instance
func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Health checks database connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
