package format

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

type jsonDecoder struct{}

// Decode reads newline-delimited JSON objects, projecting each onto the
// declared column list by key. Values already carry their own JSON type,
// unlike csv's flat strings.
func (jsonDecoder) Decode(r io.Reader, f config.Format, columns []config.Column) ([][]interface{}, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows [][]interface{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record map[string]interface{}
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("decode json line: %w", err)
		}

		row := make([]interface{}, len(columns))
		for i, col := range columns {
			v, ok := record[col.Name]
			if !ok {
				row[i] = nil
				continue
			}
			if f.NullValue != "" {
				if s, isStr := v.(string); isStr && s == f.NullValue {
					row[i] = nil
					continue
				}
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return rows, nil
}
