// Package differ implements FeatherBox's graph differ (spec §4.4, component
// C4): classifying every node in a newly resolved graph relative to the
// previously committed one so the scheduler (C5) can plan a minimal set of
// actions.
package differ

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

// Fingerprint is a deterministic hash of a node's configuration, excluding
// documentation fields, used to detect a "modified" node even when its
// dependency edges are unchanged.
type Fingerprint string

// FingerprintAdapter hashes the fields of an adapter config that affect its
// materialized output: connection, source descriptor, and column list in
// declared order. Description is intentionally excluded (spec §4.4).
func FingerprintAdapter(a config.AdapterConfig) Fingerprint {
	var b strings.Builder
	fmt.Fprintf(&b, "connection=%s\n", a.Connection)

	if a.Source.File != nil {
		f := a.Source.File
		fmt.Fprintf(&b, "file.path=%s\n", f.PathPattern)
		fmt.Fprintf(&b, "file.compression=%s\n", f.Compression)
		fmt.Fprintf(&b, "file.max_batch_size=%d\n", f.MaxBatchSize)
		fmt.Fprintf(&b, "file.format.kind=%s\n", f.Format.Kind)
		fmt.Fprintf(&b, "file.format.delimiter=%s\n", f.Format.Delimiter)
		fmt.Fprintf(&b, "file.format.null_value=%s\n", f.Format.NullValue)
		fmt.Fprintf(&b, "file.format.header=%v\n", f.Format.HeaderPresent())
	}
	if a.Source.Database != nil {
		fmt.Fprintf(&b, "database.table=%s\n", a.Source.Database.TableName)
	}

	for _, c := range a.Columns {
		fmt.Fprintf(&b, "column=%s:%s\n", c.Name, c.Type)
	}

	return hashString(b.String())
}

// FingerprintModel hashes a model's normalized SQL text and max_age. Depends
// is excluded: it is advisory only and never becomes an edge, since the
// resolver derives every edge from the SQL, and the differ compares those
// edges separately.
func FingerprintModel(m config.ModelConfig) Fingerprint {
	var b strings.Builder
	fmt.Fprintf(&b, "sql=%s\n", NormalizeSQL(m.SQL))
	if m.MaxAge != nil {
		fmt.Fprintf(&b, "max_age=%d\n", *m.MaxAge)
	} else {
		b.WriteString("max_age=none\n")
	}
	return hashString(b.String())
}

func hashString(s string) Fingerprint {
	sum := sha256.Sum256([]byte(s))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// NormalizeSQL trims and collapses whitespace runs outside quoted string
// literals, so cosmetic reformatting of a model's sql does not register as
// a change while literal content inside quotes is preserved verbatim.
func NormalizeSQL(sql string) string {
	var b strings.Builder
	inQuote := rune(0)
	lastWasSpace := false

	for _, r := range strings.TrimSpace(sql) {
		if inQuote != 0 {
			b.WriteRune(r)
			if r == inQuote {
				inQuote = 0
			}
			continue
		}
		if r == '\'' || r == '"' || r == '`' {
			inQuote = r
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		lastWasSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// FingerprintAll builds a name → Fingerprint map for a full config set,
// keyed the same way resolver.BuildGraph names its nodes.
func FingerprintAll(adapters []config.AdapterConfig, models []config.ModelConfig) map[string]Fingerprint {
	out := make(map[string]Fingerprint, len(adapters)+len(models))
	for _, a := range adapters {
		out[a.Name] = FingerprintAdapter(a)
	}
	for _, m := range models {
		out[m.Name] = FingerprintModel(m)
	}
	return out
}

// sortedCopy returns a sorted copy of ss, used when comparing edge sets
// where insertion order isn't semantically meaningful.
func sortedCopy(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}
