package store

import (
	"database/sql"
	"fmt"
	"time"
)

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// migrations is an ordered list of idempotent schema changes. Never
// modify an existing entry, only append.
var migrations = []func(*sql.Tx) error{
	migrateV0,
}

func migrateV0(tx *sql.Tx) error {
	const schema = `
CREATE TABLE IF NOT EXISTS monitored_file (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    modified INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitored_file_modified ON monitored_file(modified);

CREATE TABLE IF NOT EXISTS word_stem (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    stem TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS file_reverse_index (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file INTEGER NOT NULL REFERENCES monitored_file(id) ON DELETE CASCADE,
    stem INTEGER NOT NULL REFERENCES word_stem(id) ON DELETE CASCADE,
    offset INTEGER NOT NULL,
    word TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_file_reverse_index_file ON file_reverse_index(file);
CREATE INDEX IF NOT EXISTS idx_file_reverse_index_stem ON file_reverse_index(stem);
`
	_, err := tx.Exec(schema)
	return err
}

// ensureSchema creates schema_migrations if absent and applies any
// migration beyond the recorded version.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	row := db.QueryRow("SELECT COALESCE(MAX(version), -1) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for v := current + 1; v < len(migrations); v++ {
		if err := runMigration(db, v); err != nil {
			return fmt.Errorf("run migration %d: %w", v, err)
		}
	}
	return nil
}

func runMigration(db *sql.DB, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := migrations[version](tx); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)", version, now); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}
