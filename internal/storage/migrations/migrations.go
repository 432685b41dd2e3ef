// Package migrations holds the embedded schema of every store backend and
// applies it at startup. All migrations are idempotent.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// applyFunc executes the statements of one migration file.
type applyFunc func(ctx context.Context, file string, stmts []string) error

// apply runs every .sql file under dir of fsys, in lexical order, through
// fn. Files are split into statements first so backends whose drivers reject
// multi-statement queries share one code path with those that accept them.
func apply(ctx context.Context, fsys fs.FS, dir string, fn applyFunc) error {
	files, err := sqlFiles(fsys, dir)
	if err != nil {
		return fmt.Errorf("read embedded %s migrations: %w", dir, err)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, dir+"/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if err := validateNoSemicolonInStrings(string(data)); err != nil {
			return fmt.Errorf("validate migration %s: %w", file, err)
		}
		stmts := splitStatements(string(data))
		if len(stmts) == 0 {
			continue
		}
		if err := fn(ctx, file, stmts); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// sqlFiles lists the .sql files of dir in lexical order.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// splitStatements drops blank and "--" comment lines and splits the rest on
// semicolons. Migrations must therefore keep semicolons out of string
// literals and block comments; apply enforces the first rule through
// validateNoSemicolonInStrings.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a
// single-quoted literal. Doubled quotes are treated as escapes.
func validateNoSemicolonInStrings(sql string) error {
	quoted := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if quoted && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			quoted = !quoted
		case ';':
			if quoted {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
