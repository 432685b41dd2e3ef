package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// RunSqliteMigrations applies the embedded SQLite schema. Each file runs
// inside its own transaction.
func RunSqliteMigrations(ctx context.Context, db *sql.DB) error {
	return apply(ctx, SqliteFS, "sqlite", func(ctx context.Context, file string, stmts []string) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}
