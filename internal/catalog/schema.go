package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one forward-only, idempotent DDL step applied in order
// against a fresh or existing catalog database, tracked by version number
// in fbox_schema_migrations. Modeled after the versioned-migration-list
// pattern (name + ordered application, no down migrations) rather than a
// single monolithic schema string, so future schema changes append rather
// than rewrite.
type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "reserved_tables", `
CREATE TABLE IF NOT EXISTS fbox_graphs (
	graph_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS fbox_nodes (
	graph_id    INTEGER NOT NULL REFERENCES fbox_graphs(graph_id),
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	PRIMARY KEY (graph_id, name)
);

CREATE TABLE IF NOT EXISTS fbox_edges (
	graph_id  INTEGER NOT NULL REFERENCES fbox_graphs(graph_id),
	from_name TEXT NOT NULL,
	to_name   TEXT NOT NULL,
	PRIMARY KEY (graph_id, from_name, to_name)
);

CREATE TABLE IF NOT EXISTS fbox_pipelines (
	pipeline_id TEXT PRIMARY KEY,
	graph_id    INTEGER NOT NULL REFERENCES fbox_graphs(graph_id),
	status      TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS fbox_pipeline_actions (
	action_id       TEXT PRIMARY KEY,
	pipeline_id     TEXT NOT NULL REFERENCES fbox_pipelines(pipeline_id),
	node_name       TEXT NOT NULL,
	kind            TEXT NOT NULL,
	execution_order INTEGER NOT NULL,
	status          TEXT NOT NULL,
	since           TEXT,
	until           TEXT,
	attempt         INTEGER NOT NULL DEFAULT 0,
	reason          TEXT,
	error_message   TEXT,
	started_at      TEXT,
	finished_at     TEXT,
	UNIQUE (pipeline_id, execution_order)
);

CREATE TABLE IF NOT EXISTS fbox_saved_queries (
	name       TEXT PRIMARY KEY,
	sql        TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`},
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS fbox_schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := s.applyOne(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fbox_schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) applyOne(ctx context.Context, m migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO fbox_schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
		m.version, m.name, nowFunc().UTC().Format(timeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

func tableIdentifier(name string) string {
	return `"` + name + `"`
}
