package executor

import (
	"context"
	"database/sql"

	"github.com/alexisbeaulieu97/featherbox/internal/catalog"
)

// Engine is the catalog surface C6 drives. internal/catalog.Store satisfies
// this directly; it exists as its own interface so the executor's tests can
// substitute a fake without spinning up sqlite.
type Engine interface {
	CreateTable(ctx context.Context, name string, columns []catalog.ColumnSpec) error
	InsertRows(ctx context.Context, name string, columnNames []string, rows [][]interface{}) error
	CreateOrReplaceTable(ctx context.Context, name, selectSQL string) error
	DropTable(ctx context.Context, name string) error
	Query(ctx context.Context, sqlText string) (*sql.Rows, error)
}
