// Package migrations embeds the schema files applied by db.MigrateUp.
package migrations

import "embed"

// SqliteMigrations holds the sqlite dialect of the condition state schema.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds the postgres dialect of the condition state schema.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
