package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func TestSplitStatements(t *testing.T) {
	input := `-- header
CREATE TABLE a (x Int32);

-- second
CREATE TABLE b (y String);
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings(`SELECT 'a;b'`); err == nil {
		t.Error("expected error for semicolon inside string")
	}
	if err := validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1`); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestApply_OrderAndSplit(t *testing.T) {
	fsys := fstest.MapFS{
		"db/002_second.sql": {Data: []byte("CREATE TABLE b (y Int32);\nCREATE INDEX ib ON b (y);\n")},
		"db/001_first.sql":  {Data: []byte("-- only a table\nCREATE TABLE a (x Int32);\n")},
		"db/003_empty.sql":  {Data: []byte("-- nothing yet\n")},
		"db/README.md":      {Data: []byte("not sql;")},
	}

	var files []string
	var stmts []string
	err := apply(context.Background(), fsys, "db", func(_ context.Context, file string, s []string) error {
		files = append(files, file)
		stmts = append(stmts, s...)
		return nil
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if strings.Join(files, ",") != "001_first.sql,002_second.sql" {
		t.Errorf("unexpected files %v", files)
	}
	if len(stmts) != 3 || stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("unexpected statements %q", stmts)
	}
}

func TestApply_Errors(t *testing.T) {
	ctx := context.Background()
	noop := func(context.Context, string, []string) error { return nil }

	bad := fstest.MapFS{"db/001_bad.sql": {Data: []byte("INSERT INTO t VALUES ('a;b');")}}
	if err := apply(ctx, bad, "db", noop); err == nil || !strings.Contains(err.Error(), "001_bad.sql") {
		t.Errorf("expected validation error naming the file, got %v", err)
	}

	boom := errors.New("boom")
	good := fstest.MapFS{"db/001_ok.sql": {Data: []byte("SELECT 1;")}}
	err := apply(ctx, good, "db", func(context.Context, string, []string) error { return boom })
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "apply migration 001_ok.sql") {
		t.Errorf("expected wrapped exec error, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := apply(cancelled, good, "db", noop); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	for dir, fsys := range map[string]embed.FS{"clickhouse": ClickhouseFS, "sqlite": SqliteFS, "postgres": PostgresFS} {
		files, err := sqlFiles(fsys, dir)
		if err != nil {
			t.Fatalf("list %s: %v", dir, err)
		}
		if len(files) == 0 {
			t.Errorf("no %s migrations embedded", dir)
		}
		for _, f := range files {
			data, _ := fsys.ReadFile(dir + "/" + f)
			if err := validateNoSemicolonInStrings(string(data)); err != nil {
				t.Errorf("%s/%s: %v", dir, f, err)
			}
		}
	}
}

func TestRunSqliteMigrations_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := RunSqliteMigrations(ctx, db); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='simulation_runs'`).Scan(&name)
	if err != nil {
		t.Fatalf("simulation_runs missing: %v", err)
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/lab")
	if err != nil || db != "lab" {
		t.Errorf("got %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000/lab;drop"); err == nil {
		t.Error("expected error for a database name that is not an identifier")
	}
}
