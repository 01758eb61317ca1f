package executor

import "context"

// DatabaseRows is the minimal cursor a DatabaseSource must return, enough
// for the executor to stream rows into the catalog without knowing the
// concrete driver.
type DatabaseRows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// DatabaseSource issues a read against an external RDBMS connection. The
// core ships no concrete implementation — connections are opaque per
// spec.md §3 — only this interface, which the executor drives for
// adapter-database actions.
type DatabaseSource interface {
	Query(ctx context.Context, connection, tableName string, columnNames []string) (DatabaseRows, error)
}
