// Package postgres stores simulation run records in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"diffusion-lab/internal/storage"
)

// Pool is the pgx pool shared by the run store and the migrator.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings the server before returning.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// SQLSTATE codes the run store maps onto storage errors.
const (
	codeUniqueViolation    = "23505"
	codeNotNullViolation   = "23502"
	codeCheckViolation     = "23514"
	codeNumericOutOfRange  = "22003"
	codeInvalidTextRepr    = "22P02"
	codeInvalidJSONText    = "22032"
	codeStringRightTrunc   = "22001"
	codeInvalidParamValue  = "22023"
	codeDatetimeFieldRange = "22008"
)

// classify maps a driver error onto the storage sentinel errors. Rejected
// rows keep the server message after the sentinel; anything unrecognised
// is wrapped with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return storage.ErrDuplicateKey
	case codeNotNullViolation, codeCheckViolation, codeNumericOutOfRange,
		codeInvalidTextRepr, codeInvalidJSONText, codeStringRightTrunc,
		codeInvalidParamValue, codeDatetimeFieldRange:
		detail := pgErr.Message
		if pgErr.ConstraintName != "" {
			detail += " (" + pgErr.ConstraintName + ")"
		} else if pgErr.ColumnName != "" {
			detail += " (" + pgErr.ColumnName + ")"
		}
		return fmt.Errorf("%s: %w: %s", op, storage.ErrInvalidInput, detail)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Seeds use the whole uint64 range, which BIGINT cannot hold. They are
// written as decimal text into NUMERIC(20,0) and read back with seed::text.

func encodeSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func decodeSeed(text string) (uint64, error) {
	seed, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: stored seed %q: %v", storage.ErrInvalidInput, text, err)
	}
	return seed, nil
}
