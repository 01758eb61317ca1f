// Package format decodes adapter-file sources in the formats spec.md §3
// allows (csv, json, parquet) into rows ordered to match a declared column
// list, for the executor to insert into the catalog.
package format

import (
	"compress/gzip"
	"io"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

// Decoder reads every record from r in declaration order, coercing values to
// match columns' declared types where the format doesn't already imply one
// (csv fields are always strings until coerced; json/parquet carry typed
// values natively).
type Decoder interface {
	Decode(r io.Reader, f config.Format, columns []config.Column) ([][]interface{}, error)
}

// ForKind returns the Decoder for a declared format kind.
func ForKind(kind config.FormatKind) (Decoder, bool) {
	switch kind {
	case config.FormatCSV:
		return csvDecoder{}, true
	case config.FormatJSON:
		return jsonDecoder{}, true
	case config.FormatParquet:
		return parquetDecoder{}, true
	default:
		return nil, false
	}
}

// WrapCompression wraps r in a gzip reader when compression is "gzip",
// returning r unchanged for "none" or "" (spec §4.6 item 1).
func WrapCompression(r io.Reader, compression string) (io.Reader, error) {
	if compression != "gzip" {
		return r, nil
	}
	return gzip.NewReader(r)
}
