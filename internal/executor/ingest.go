package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/featherbox/internal/catalog"
	"github.com/alexisbeaulieu97/featherbox/internal/config"
	"github.com/alexisbeaulieu97/featherbox/internal/executor/format"
	"github.com/alexisbeaulieu97/featherbox/internal/scheduler"
	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// runFileAdapter implements spec §4.6's adapter-file action: expand the
// path pattern over the action's window, decode each object in the
// declared format, and load the result into node.name, chunked by
// max_batch_size when set.
func (e *Executor) runFileAdapter(ctx context.Context, a config.AdapterConfig, win scheduler.Window) error {
	f := a.Source.File

	refs, err := e.Files.List(ctx, f.PathPattern, win.Since, win.Until, a.Source.IsTimePartitioned())
	if err != nil {
		return streamyerrors.NewSourceObjectMissing(a.Name, f.PathPattern)
	}

	decoder, ok := format.ForKind(f.Format.Kind)
	if !ok {
		return streamyerrors.NewSchemaMismatch(a.Name, fmt.Sprintf("unsupported format %q", f.Format.Kind))
	}

	if err := e.Engine.CreateTable(ctx, a.Name, columnSpecs(a.Columns)); err != nil {
		return err
	}

	columnNames := columnNames(a.Columns)
	batchSize := f.MaxBatchSize

	for _, ref := range refs {
		if ctx.Err() != nil {
			return streamyerrors.NewCancelled(a.Name)
		}

		rc, err := e.Files.Open(ctx, ref)
		if err != nil {
			return streamyerrors.NewSourceObjectMissing(a.Name, ref.Path)
		}

		reader, err := format.WrapCompression(rc, f.Compression)
		if err != nil {
			rc.Close()
			return streamyerrors.NewSchemaMismatch(a.Name, fmt.Sprintf("decompress %s: %v", ref.Path, err))
		}

		rows, err := decoder.Decode(reader, f.Format, a.Columns)
		rc.Close()
		if err != nil {
			return streamyerrors.NewSchemaMismatch(a.Name, fmt.Sprintf("decode %s: %v", ref.Path, err))
		}

		if batchSize <= 0 {
			if err := e.Engine.InsertRows(ctx, a.Name, columnNames, rows); err != nil {
				return err
			}
			continue
		}

		for start := 0; start < len(rows); start += batchSize {
			end := start + batchSize
			if end > len(rows) {
				end = len(rows)
			}
			if err := e.Engine.InsertRows(ctx, a.Name, columnNames, rows[start:end]); err != nil {
				return err
			}
		}
	}

	return nil
}

// runDatabaseAdapter implements spec §4.6's adapter-database action.
func (e *Executor) runDatabaseAdapter(ctx context.Context, a config.AdapterConfig) error {
	if e.Databases == nil {
		return streamyerrors.NewConnectionUnavailable(a.Name, fmt.Errorf("no database source configured"))
	}

	columnNames := columnNames(a.Columns)
	rows, err := e.Databases.Query(ctx, a.Connection, a.Source.Database.TableName, columnNames)
	if err != nil {
		return streamyerrors.NewConnectionUnavailable(a.Name, err)
	}
	defer rows.Close()

	if err := e.Engine.CreateTable(ctx, a.Name, columnSpecs(a.Columns)); err != nil {
		return err
	}

	var batch [][]interface{}
	for rows.Next() {
		dest := make([]interface{}, len(columnNames))
		ptrs := make([]interface{}, len(dest))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return streamyerrors.NewSchemaMismatch(a.Name, err.Error())
		}
		batch = append(batch, dest)
	}
	if err := rows.Err(); err != nil {
		return streamyerrors.NewConnectionUnavailable(a.Name, err)
	}

	return e.Engine.InsertRows(ctx, a.Name, columnNames, batch)
}

func columnNames(cols []config.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func columnSpecs(cols []config.Column) []catalog.ColumnSpec {
	specs := make([]catalog.ColumnSpec, len(cols))
	for i, c := range cols {
		specs[i] = catalog.ColumnSpec{Name: c.Name, SQLType: sqlType(c.Type)}
	}
	return specs
}

func sqlType(declared string) string {
	switch strings.ToLower(declared) {
	case "integer", "int", "bigint":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "boolean", "bool":
		return "INTEGER"
	case "timestamp", "datetime", "date":
		return "TEXT"
	default:
		return "TEXT"
	}
}
