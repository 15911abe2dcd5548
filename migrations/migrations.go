// Package migrations holds the Postgres schema. Statements are idempotent so
// Apply can run on every start.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"sort"

	"stockwatch/pkg/errors"
)

//go:embed postgres/*.sql
var files embed.FS

// Execer is satisfied by *sqlx.DB and *sqlx.Tx
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Apply runs every schema file in name order
func Apply(ctx context.Context, db Execer) error {
	names, err := fs.Glob(files, "postgres/*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return errors.Wrapf(err, "apply %s", name)
		}
	}
	return nil
}
