package format

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

type csvDecoder struct{}

// Decode reads csv records and reorders/coerces fields to match columns. If
// a header row is present, field names map to columns by name; otherwise
// fields are assumed to be in declared column order.
func (csvDecoder) Decode(r io.Reader, f config.Format, columns []config.Column) ([][]interface{}, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if f.Delimiter != "" {
		reader.Comma = rune(f.Delimiter[0])
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	dataStart := 0
	index := make(map[string]int, len(columns))
	if f.HeaderPresent() {
		for i, h := range records[0] {
			index[h] = i
		}
		dataStart = 1
	} else {
		for i, col := range columns {
			index[col.Name] = i
		}
	}

	rows := make([][]interface{}, 0, len(records)-dataStart)
	for _, rec := range records[dataStart:] {
		row := make([]interface{}, len(columns))
		for i, col := range columns {
			srcIdx, ok := index[col.Name]
			if !ok || srcIdx >= len(rec) {
				row[i] = nil
				continue
			}
			val := rec[srcIdx]
			if f.NullValue != "" && val == f.NullValue {
				row[i] = nil
				continue
			}
			row[i] = coerce(val, col.Type)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// coerce converts a raw csv field to a Go value matching the column's
// declared type; sqlite's dynamic typing would accept the raw string
// either way, but coercing here keeps inserted values consistent with
// json/parquet-sourced rows for the same declared type.
func coerce(raw string, declaredType string) interface{} {
	if raw == "" {
		return nil
	}
	switch strings.ToLower(declaredType) {
	case "integer", "int", "bigint":
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	case "float", "double", "real":
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case "boolean", "bool":
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return raw
}
