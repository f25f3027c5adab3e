package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	database, err := Open("sqlite://" + filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	if _, err := Open("mysql://localhost/state"); err == nil {
		t.Error("expected error for mysql scheme")
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		wantDriver string
		wantDSN    string
		wantErr    bool
	}{
		{"sqlite://state.db", "sqlite3", "state.db", false},
		{"sqlite://data/state.db", "sqlite3", "data/state.db", false},
		{"sqlite:///var/lib/wk/state.db", "sqlite3", "/var/lib/wk/state.db", false},
		{"postgres://wk:pw@db:5432/wk?sslmode=disable", "postgres", "postgres://wk:pw@db:5432/wk?sslmode=disable", false},
		{"postgresql://db/wk", "postgres", "postgresql://db/wk", false},
		{"redis://localhost:6379", "", "", true},
		{"://bad", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, err := parseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("parseURL() = (%q, %q), want (%q, %q)", driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestMigrateUp(t *testing.T) {
	database := openTestDB(t)

	ctx := context.Background()

	pending, err := Pending(ctx, database)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) == 0 {
		t.Fatal("expected pending migrations on a fresh database")
	}

	n, err := MigrateUp(ctx, database)
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if n != len(pending) {
		t.Errorf("applied %d migrations, want %d", n, len(pending))
	}
	// Second run applies nothing and validates checksums
	if n, err := MigrateUp(ctx, database); err != nil || n != 0 {
		t.Fatalf("second MigrateUp = %d, %v", n, err)
	}

	statuses, err := MigrateStatus(ctx, database)
	if err != nil {
		t.Fatalf("MigrateStatus failed: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected at least one migration")
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("migration %s not applied", s.ID)
		}
	}

	var rows int
	if err := database.Get(&rows, "SELECT COUNT(*) FROM condition_state"); err != nil {
		t.Errorf("condition_state table missing: %v", err)
	}
}

func TestMigrateUp_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	if _, err := MigrateUp(ctx, database); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	if _, err := database.Exec("UPDATE migrations SET checksum = 'tampered'"); err != nil {
		t.Fatal(err)
	}
	if _, err := MigrateUp(ctx, database); err == nil {
		t.Error("expected checksum mismatch error")
	}
}

func TestSplitStatements(t *testing.T) {
	sql := `-- leading comment
CREATE TABLE a (id INTEGER);
  -- indented comment
CREATE INDEX idx_a ON a (id);

`
	got := splitStatements(sql)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INTEGER)" {
		t.Errorf("statement 0 = %q", got[0])
	}
	if got[1] != "CREATE INDEX idx_a ON a (id)" {
		t.Errorf("statement 1 = %q", got[1])
	}
}

func TestQueries(t *testing.T) {
	database := openTestDB(t)
	if _, err := MigrateUp(context.Background(), database); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	queries, err := LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries failed: %v", err)
	}
	ctx := context.Background()

	for ts, v := range map[int64]float64{10: 1.5, 20: 2.5, 30: 3.5} {
		if _, err := queries.Exec(ctx, "upsert-observation", "temp-1", ts, v); err != nil {
			t.Fatalf("upsert-observation failed: %v", err)
		}
	}
	if _, err := queries.Exec(ctx, "upsert-observation", "temp-1", int64(20), 9.0); err != nil {
		t.Fatalf("upsert-observation overwrite failed: %v", err)
	}

	var values []float64
	if err := queries.Select(ctx, "select-observation-values", &values, "temp-1", int64(10), int64(30)); err != nil {
		t.Fatalf("select-observation-values failed: %v", err)
	}
	if len(values) != 2 || values[0] != 1.5 || values[1] != 9.0 {
		t.Errorf("values = %v, want [1.5 9]", values)
	}

	if _, err := queries.Exec(ctx, "no-such-query"); err == nil {
		t.Error("expected error for unknown query name")
	}
}

func TestLoadQueries_RebindsForDriver(t *testing.T) {
	names := []string{
		"get-condition-state",
		"upsert-condition-state",
		"list-condition-states-by-rule",
		"delete-condition-states-by-rule",
		"upsert-observation",
		"select-observation-values",
		"delete-observations-before",
	}

	database := openTestDB(t)
	tests := []struct {
		driver      string
		placeholder string
		foreign     string
	}{
		{"sqlite3", "?", "$1"},
		{"postgres", "$1", "?"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			queries, err := LoadQueries(sqlx.NewDb(database.DB, tt.driver))
			if err != nil {
				t.Fatalf("LoadQueries failed: %v", err)
			}
			if len(queries.queries) != len(names) {
				t.Errorf("loaded %d queries, want %d", len(queries.queries), len(names))
			}
			for _, name := range names {
				query, err := queries.lookup(name)
				if err != nil {
					t.Fatalf("lookup(%s) failed: %v", name, err)
				}
				if !strings.Contains(query, tt.placeholder) || strings.Contains(query, tt.foreign) {
					t.Errorf("query %s = %q, want %s placeholders", name, query, tt.placeholder)
				}
			}
		})
	}
}
