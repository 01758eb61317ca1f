package format

import (
	"bytes"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

type parquetDecoder struct{}

// Decode reads a parquet file's row groups column-by-column. Parquet
// requires a seekable, sized reader, so the whole object is buffered in
// memory first — acceptable for the catalog-sized files this core targets;
// a streaming variant would need a real io.ReaderAt over the object store.
func (parquetDecoder) Decode(r io.Reader, f config.Format, columns []config.Column) ([][]interface{}, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffer parquet object: %w", err)
	}

	pf, err := parquet.OpenFile(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	schema := pf.Schema()
	leafIndex := make(map[string]int, len(columns))
	for _, col := range columns {
		leaf, ok := schema.Lookup(col.Name)
		if !ok {
			continue
		}
		leafIndex[col.Name] = leaf.ColumnIndex
	}

	reader := parquet.NewReader(pf, schema)
	defer reader.Close()

	var rows [][]interface{}
	row := make(parquet.Row, 0, len(columns))
	for {
		row, err = reader.ReadRow(row[:0])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet row: %w", err)
		}

		out := make([]interface{}, len(columns))
		for i, col := range columns {
			idx, ok := leafIndex[col.Name]
			if !ok || idx >= len(row) {
				out[i] = nil
				continue
			}
			out[i] = valueOf(row[idx])
		}
		rows = append(rows, out)
	}
	return rows, nil
}

func valueOf(v parquet.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
