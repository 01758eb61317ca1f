package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
)

// ObjectRef identifies one concrete file backing a file-adapter read, along
// with the timestamp inferred from its path when the source is
// time-partitioned.
type ObjectRef struct {
	Path      string
	Timestamp time.Time
}

// FileSource lists and opens the concrete objects behind a file adapter's
// path pattern. The core ships only a local-filesystem implementation;
// object-store backends (S3, GCS, ...) are an external collaborator per
// spec.md §1.
type FileSource interface {
	List(ctx context.Context, pattern string, since, until time.Time, partitioned bool) ([]ObjectRef, error)
	Open(ctx context.Context, ref ObjectRef) (io.ReadCloser, error)
}

// LocalFileSource resolves path patterns against a local directory root.
type LocalFileSource struct {
	Root string
}

// List expands pattern into concrete paths. For a non-partitioned pattern
// it returns the single literal path if present. For a partitioned
// pattern it steps from since up to (not including) until by the pattern's
// finest granularity (one minute, one hour, or one day for day, month and
// year patterns), substitutes each timestamp into the pattern, and keeps
// the distinct paths that exist on disk.
func (l LocalFileSource) List(ctx context.Context, pattern string, since, until time.Time, partitioned bool) ([]ObjectRef, error) {
	if !partitioned {
		full := filepath.Join(l.Root, pattern)
		if _, err := os.Stat(full); err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, err
		}
		return []ObjectRef{{Path: full}}, nil
	}

	gran := config.FinestGranularity(pattern)
	step := stepFor(gran)
	if step <= 0 {
		return nil, fmt.Errorf("pattern %q has no recognizable time placeholder", pattern)
	}

	var refs []ObjectRef
	seen := make(map[string]bool)
	for t := since; t.Before(until); t = t.Add(step) {
		path := expandPattern(pattern, t)
		full := filepath.Join(l.Root, path)
		if seen[full] {
			continue
		}
		if _, err := os.Stat(full); err == nil {
			seen[full] = true
			refs = append(refs, ObjectRef{Path: full, Timestamp: t})
		} else if !os.IsNotExist(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return refs, nil
}

// Open opens a concrete local path.
func (l LocalFileSource) Open(ctx context.Context, ref ObjectRef) (io.ReadCloser, error) {
	return os.Open(ref.Path)
}

func stepFor(g config.Granularity) time.Duration {
	switch g {
	case config.GranularityMinute:
		return time.Minute
	case config.GranularityHour:
		return time.Hour
	case config.GranularityDay:
		return 24 * time.Hour
	case config.GranularityMonth:
		return 24 * time.Hour // conservative: iterate daily, dedupe by month substitution
	case config.GranularityYear:
		return 24 * time.Hour
	default:
		return 0
	}
}

func expandPattern(pattern string, t time.Time) string {
	t = t.UTC()
	replacer := strings.NewReplacer(
		"{year}", fmt.Sprintf("%04d", t.Year()),
		"{month}", fmt.Sprintf("%02d", t.Month()),
		"{day}", fmt.Sprintf("%02d", t.Day()),
		"{hour}", fmt.Sprintf("%02d", t.Hour()),
		"{minute}", fmt.Sprintf("%02d", t.Minute()),
	)
	return replacer.Replace(pattern)
}
