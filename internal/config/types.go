// Package config holds FeatherBox's in-memory configuration model (spec
// §4.2, component C2). Nothing here reads a file: callers are expected to
// have already parsed project YAML (or whatever format they choose)
// upstream and construct these values directly, the way the teacher's
// internal/config structs were the unmarshal target of a YAML document but
// are validated independently of the decoding step.
package config

import "fmt"

// ProjectConfig is the root configuration object threaded through migrate,
// run, and query (spec §6).
type ProjectConfig struct {
	Storage     StorageConfig             `validate:"required"`
	Database    DatabaseConfig            `validate:"required"`
	Connections map[string]ConnectionSpec `validate:"required,min=1,dive"`
}

// StorageConfig identifies where the lake catalog's data files live. The
// core never interprets Root beyond passing it to the embedded engine; the
// concrete object-store/local-disk distinction is an external collaborator
// (spec §1).
type StorageConfig struct {
	Root string `validate:"required"`
}

// DatabaseConfig identifies the embedded analytical engine's metadata file.
type DatabaseConfig struct {
	Path string `validate:"required"`
}

// ConnectionSpec is an opaque named binding to an external system (spec
// §3). The core only ever looks up a connection by name; it never inspects
// Properties.
type ConnectionSpec struct {
	Name       string            `validate:"required"`
	Kind       string            `validate:"required,oneof=filesystem object_store database"`
	Properties map[string]string `validate:"-"`
}

// FormatKind enumerates the file formats an adapter may declare.
type FormatKind string

const (
	FormatCSV     FormatKind = "csv"
	FormatJSON    FormatKind = "json"
	FormatParquet FormatKind = "parquet"
)

// Format describes how to decode a file-backed adapter's source.
type Format struct {
	Kind      FormatKind `validate:"required,oneof=csv json parquet"`
	Delimiter string     `validate:"omitempty,len=1"`
	NullValue string     `validate:"-"`
	HasHeader *bool      `validate:"-"`
}

// HeaderPresent reports whether the source has a header row, defaulting to
// true for csv/json-lines sources when unset.
func (f Format) HeaderPresent() bool {
	if f.HasHeader == nil {
		return true
	}
	return *f.HasHeader
}

// FileSource describes a file-backed ingestion source (spec §3).
type FileSource struct {
	PathPattern  string `validate:"required"`
	Compression  string `validate:"omitempty,oneof=gzip none"`
	MaxBatchSize int    `validate:"omitempty,min=1"`
	Format       Format `validate:"required"`
}

// DatabaseSource describes a remote-table ingestion source.
type DatabaseSource struct {
	TableName string `validate:"required"`
}

// SourceDescriptor is the discriminated union {File | Database} from spec
// §3. Exactly one field must be set; ValidateSourceDescriptor enforces
// that, since go-playground/validator has no native oneof-struct-field tag.
type SourceDescriptor struct {
	File     *FileSource     `validate:"-"`
	Database *DatabaseSource `validate:"-"`
}

// IsTimePartitioned reports whether the file path pattern contains a
// time-granularity placeholder, which drives the scheduler's since/until
// window computation (spec §4.5).
func (s SourceDescriptor) IsTimePartitioned() bool {
	if s.File == nil {
		return false
	}
	return finestGranularity(s.File.PathPattern) != GranularityNone
}

// Column describes one column in an adapter's declared schema.
type Column struct {
	Name        string `validate:"required"`
	Type        string `validate:"required"`
	Description string `validate:"-"`
}

// AdapterConfig is the in-memory representation of an AdapterNode's
// configuration (spec §3, §4.2).
type AdapterConfig struct {
	Name        string           `validate:"required,fbox_name"`
	Connection  string           `validate:"required"`
	Description string           `validate:"-"`
	Source      SourceDescriptor `validate:"required"`
	Columns     []Column         `validate:"required,min=1,dive"`
}

// Validate performs the cross-field checks validator tags cannot express:
// exactly one of Source.File/Source.Database must be set.
func (a AdapterConfig) Validate() error {
	hasFile := a.Source.File != nil
	hasDB := a.Source.Database != nil
	if hasFile == hasDB {
		return fmt.Errorf("adapter %q: source must set exactly one of file or database", a.Name)
	}
	return nil
}

// ModelConfig is the in-memory representation of a ModelNode's
// configuration (spec §3, §4.2).
type ModelConfig struct {
	Name        string   `validate:"required,fbox_name"`
	Path        string   `validate:"-"`
	Description string   `validate:"-"`
	SQL         string   `validate:"required"`
	MaxAge      *int     `validate:"omitempty,min=0"`
	Depends     []string `validate:"-"`
}
