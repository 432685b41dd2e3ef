package migrations

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	chstore "diffusion-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the analytics database named in dsn if
// needed, applies the embedded schema and returns a connection to it.
// The ClickHouse driver executes one statement per call.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureClickhouseDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}

	err = apply(ctx, ClickhouseFS, "clickhouse", func(ctx context.Context, _ string, stmts []string) error {
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// ensureClickhouseDatabase connects without a database and creates dbName.
func ensureClickhouseDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse server: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// databaseFromDSN returns the path component of a clickhouse:// DSN.
func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn %q names no database", u.Redacted())
	}
	if strings.ContainsAny(db, "/` ;") {
		return "", fmt.Errorf("clickhouse database name %q is not a plain identifier", db)
	}
	return db, nil
}
