package catalog

import (
	"context"
	"fmt"
	"strings"

	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// ColumnSpec is a declared-schema column translated to a concrete SQL type,
// used by CreateTable when materializing an adapter's output (as opposed to
// CreateOrReplaceTable, which derives its schema from a model's SELECT).
type ColumnSpec struct {
	Name    string
	SQLType string
}

// CreateTable drops any existing table named name and recreates it with the
// given column list, for adapter actions that load declared-schema data
// rather than a SQL query result.
func (s *Store) CreateTable(ctx context.Context, name string, columns []ColumnSpec) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", tableIdentifier(name))); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf("%s %s", c.Name, c.SQLType)
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", tableIdentifier(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}

	if err := tx.Commit(); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	return nil
}

// InsertRows appends rows to an existing table inside one transaction, so a
// failing chunk never leaves a partially-applied chunk committed (spec
// §4.6 item 1: prior committed chunks stay, a failing chunk fails cleanly).
func (s *Store) InsertRows(ctx context.Context, name string, columnNames []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, len(columnNames))
	for i := range columnNames {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableIdentifier(name), strings.Join(columnNames, ", "), strings.Join(placeholders, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return streamyerrors.NewCatalogWriteError(name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return streamyerrors.NewCatalogWriteError(name, err)
	}
	return nil
}
