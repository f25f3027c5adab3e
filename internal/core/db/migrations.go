// internal/core/db/migrations.go
package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/windowkeeper/internal/core/logging"
	embeddedmigrations "github.com/solatis/windowkeeper/migrations"
)

/*
 * Schema migrations.
 *
 * Migration files are embedded per dialect and applied in file name order.
 * Each file runs in its own transaction together with its row in the
 * migrations table, so a failed file leaves no trace. The table records a
 * SHA-256 of every applied file; an applied file whose embedded content
 * changed, or that vanished from the binary, stops MigrateUp before anything
 * new runs.
 */

// MigrationStatus represents the state of a single migration.
type MigrationStatus struct {
	ID          string
	Checksum    string
	Applied     bool
	AppliedAt   *time.Time
	ExecutionMs int64
}

type migration struct {
	id       string
	checksum string
	body     string
}

type appliedRow struct {
	ID          string    `db:"migration_id"`
	Checksum    string    `db:"checksum"`
	AppliedAt   time.Time `db:"applied_at"`
	ExecutionMs int64     `db:"execution_ms"`
}

// dialect locates the migration files of a driver and the column type of
// migrations.applied_at.
type dialect struct {
	files         fs.FS
	dir           string
	appliedAtType string
}

var dialects = map[string]dialect{
	"sqlite3":  {files: embeddedmigrations.SqliteMigrations, dir: "sqlite", appliedAtType: "TIMESTAMP"},
	"postgres": {files: embeddedmigrations.PostgresMigrations, dir: "postgres", appliedAtType: "TIMESTAMP WITHOUT TIME ZONE"},
}

// MigrateUp applies every pending migration and returns how many ran.
func MigrateUp(ctx context.Context, db *sqlx.DB) (int, error) {
	log := logging.FromContext(ctx)

	embedded, applied, err := inspect(ctx, db)
	if err != nil {
		return 0, err
	}
	if err := verifyChecksums(embedded, applied); err != nil {
		return 0, fmt.Errorf("migration checksum validation failed: %w", err)
	}

	count := 0
	for _, m := range embedded {
		if _, done := applied[m.id]; done {
			continue
		}
		took, err := apply(ctx, db, m)
		if err != nil {
			return count, fmt.Errorf("failed to apply migration %s: %w", m.id, err)
		}
		count++
		log.Infow("Applied migration", "migration", m.id, "duration_ms", took.Milliseconds())
	}
	return count, nil
}

// MigrateStatus lists every embedded migration with its applied state.
func MigrateStatus(ctx context.Context, db *sqlx.DB) ([]MigrationStatus, error) {
	embedded, applied, err := inspect(ctx, db)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(embedded))
	for _, m := range embedded {
		status := MigrationStatus{ID: m.id, Checksum: m.checksum}
		if row, ok := applied[m.id]; ok {
			at := row.AppliedAt
			status.Applied = true
			status.AppliedAt = &at
			status.Checksum = row.Checksum
			status.ExecutionMs = row.ExecutionMs
		}
		out = append(out, status)
	}
	return out, nil
}

// Pending returns the ids of migrations not applied yet, in order.
func Pending(ctx context.Context, db *sqlx.DB) ([]string, error) {
	statuses, err := MigrateStatus(ctx, db)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, s := range statuses {
		if !s.Applied {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

// inspect ensures the tracking table exists and returns the embedded
// migrations of the connection's dialect along with the applied rows.
func inspect(ctx context.Context, db *sqlx.DB) ([]migration, map[string]appliedRow, error) {
	d, ok := dialects[db.DriverName()]
	if !ok {
		return nil, nil, fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	ddl := `CREATE TABLE IF NOT EXISTS migrations (
		migration_id TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at ` + d.appliedAtType + ` NOT NULL,
		execution_ms INTEGER NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	embedded, err := readMigrations(d.files, d.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse migrations: %w", err)
	}

	var rows []appliedRow
	if err := db.SelectContext(ctx, &rows, "SELECT migration_id, checksum, applied_at, execution_ms FROM migrations"); err != nil {
		return nil, nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]appliedRow, len(rows))
	for _, r := range rows {
		applied[r.ID] = r
	}
	return embedded, applied, nil
}

func readMigrations(files fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, err
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		body, err := fs.ReadFile(files, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(body)
		out = append(out, migration{id: e.Name(), checksum: hex.EncodeToString(sum[:]), body: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out, nil
}

func verifyChecksums(embedded []migration, applied map[string]appliedRow) error {
	want := make(map[string]string, len(embedded))
	for _, m := range embedded {
		want[m.id] = m.checksum
	}
	ids := make([]string, 0, len(applied))
	for id := range applied {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		expected, ok := want[id]
		if !ok {
			return fmt.Errorf("migration %s exists in database but not in embedded files", id)
		}
		if got := applied[id].Checksum; got != expected {
			return fmt.Errorf("checksum mismatch for migration %s: expected %s, got %s", id, expected, got)
		}
	}
	return nil
}

// apply runs one migration and records it in the same transaction.
// lib/pq runs one statement per Exec, so the file is split first.
func apply(ctx context.Context, db *sqlx.DB, m migration) (time.Duration, error) {
	start := time.Now()
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(m.body) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("statement failed: %w", err)
		}
	}

	took := time.Since(start)
	_, err = tx.ExecContext(ctx,
		tx.Rebind("INSERT INTO migrations (migration_id, checksum, applied_at, execution_ms) VALUES (?, ?, ?, ?)"),
		m.id, m.checksum, time.Now().UTC(), took.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record migration: %w", err)
	}
	return took, tx.Commit()
}

// splitStatements drops "--" comment lines and returns the non-empty
// semicolon-separated statements.
func splitStatements(sql string) []string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			kept = append(kept, line)
		}
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
