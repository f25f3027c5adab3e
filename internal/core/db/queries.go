package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/qustavo/dotsql"
)

//go:embed queries/*.sql
var queriesFS embed.FS

// Queries runs the named statements of queries/*.sql.
// Statements are written with ? placeholders and rebound once, at load time,
// to the driver's placeholder style.
type Queries struct {
	db      *sqlx.DB
	queries map[string]string
}

// LoadQueries parses the embedded query files for db.
// Names are the dotsql "-- name:" tags, e.g. "get-condition-state".
func LoadQueries(db *sqlx.DB) (*Queries, error) {
	files, err := fs.Glob(queriesFS, "queries/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list query files: %w", err)
	}

	var combined strings.Builder
	for _, name := range files {
		content, err := queriesFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		combined.Write(content)
		combined.WriteByte('\n')
	}

	dot, err := dotsql.LoadFromString(combined.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse queries: %w", err)
	}

	named := dot.QueryMap()
	rebound := make(map[string]string, len(named))
	for name := range named {
		raw, err := dot.Raw(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read query %s: %w", name, err)
		}
		rebound[name] = db.Rebind(raw)
	}
	return &Queries{db: db, queries: rebound}, nil
}

func (q *Queries) lookup(name string) (string, error) {
	query, ok := q.queries[name]
	if !ok {
		return "", fmt.Errorf("query not found: %s", name)
	}
	return query, nil
}

// Exec runs a named statement.
func (q *Queries) Exec(ctx context.Context, name string, args ...interface{}) (sql.Result, error) {
	query, err := q.lookup(name)
	if err != nil {
		return nil, err
	}
	return q.db.ExecContext(ctx, query, args...)
}

// Get scans a single row into dest. Returns sql.ErrNoRows when nothing matches.
func (q *Queries) Get(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	query, err := q.lookup(name)
	if err != nil {
		return err
	}
	return q.db.GetContext(ctx, dest, query, args...)
}

// Select scans every row into the dest slice.
func (q *Queries) Select(ctx context.Context, name string, dest interface{}, args ...interface{}) error {
	query, err := q.lookup(name)
	if err != nil {
		return err
	}
	return q.db.SelectContext(ctx, dest, query, args...)
}
