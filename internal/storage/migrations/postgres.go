package migrations

import (
	"context"

	"diffusion-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded PostgreSQL schema, one
// statement at a time.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return apply(ctx, PostgresFS, "postgres", func(ctx context.Context, _ string, stmts []string) error {
		for _, stmt := range stmts {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
