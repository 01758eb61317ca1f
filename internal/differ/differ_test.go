package differ

import (
	"testing"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
	"github.com/stretchr/testify/require"
)

func adapter(name, pattern string) config.AdapterConfig {
	return config.AdapterConfig{
		Name:       name,
		Connection: "local",
		Source: config.SourceDescriptor{
			File: &config.FileSource{PathPattern: pattern, Format: config.Format{Kind: config.FormatCSV}},
		},
		Columns: []config.Column{{Name: "id", Type: "integer"}},
	}
}

func TestFingerprintAdapterStableAcrossDescriptionChange(t *testing.T) {
	t.Parallel()

	a1 := adapter("events", "raw/events.csv")
	a2 := a1
	a2.Description = "now documented"

	require.Equal(t, FingerprintAdapter(a1), FingerprintAdapter(a2))
}

func TestFingerprintAdapterChangesWithPathPattern(t *testing.T) {
	t.Parallel()

	a1 := adapter("events", "raw/events.csv")
	a2 := adapter("events", "raw/events_v2.csv")

	require.NotEqual(t, FingerprintAdapter(a1), FingerprintAdapter(a2))
}

func TestFingerprintModelStableUnderWhitespaceReformatting(t *testing.T) {
	t.Parallel()

	m1 := config.ModelConfig{Name: "m", SQL: "SELECT   *\nFROM events"}
	m2 := config.ModelConfig{Name: "m", SQL: "select * from events"}

	require.NotEqual(t, FingerprintModel(m1), FingerprintModel(m2))

	m3 := config.ModelConfig{Name: "m", SQL: "SELECT * FROM events"}
	m4 := config.ModelConfig{Name: "m", SQL: "SELECT   *  \n  FROM   events"}
	require.Equal(t, FingerprintModel(m3), FingerprintModel(m4))
}

func TestNormalizeSQLPreservesQuotedWhitespace(t *testing.T) {
	t.Parallel()

	in := `SELECT 'a   b' AS x`
	out := NormalizeSQL(in)
	require.Contains(t, out, "'a   b'")
}

func TestClassifyFirstMigrateMarksAllAdded(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{adapter("events", "raw/events.csv")}
	models := []config.ModelConfig{{Name: "summary", SQL: "SELECT * FROM events"}}

	g, err := resolver.BuildGraph(adapters, models)
	require.NoError(t, err)

	c := Classify(g, nil, nil, FingerprintAll(adapters, models))
	require.Len(t, c.Added, 2)
	require.Empty(t, c.Modified)
	require.Empty(t, c.Unchanged)
	require.Empty(t, c.Removed)
}

func TestClassifyDetectsModifiedBySQLChangeAndUnchangedByDefault(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{adapter("events", "raw/events.csv")}
	prevModels := []config.ModelConfig{{Name: "summary", SQL: "SELECT * FROM events"}}
	prevGraph, err := resolver.BuildGraph(adapters, prevModels)
	require.NoError(t, err)
	prevFP := FingerprintAll(adapters, prevModels)

	newModels := []config.ModelConfig{{Name: "summary", SQL: "SELECT id FROM events"}}
	newGraph, err := resolver.BuildGraph(adapters, newModels)
	require.NoError(t, err)
	newFP := FingerprintAll(adapters, newModels)

	c := Classify(newGraph, prevGraph, prevFP, newFP)
	require.True(t, c.Unchanged["events"])
	require.True(t, c.Modified["summary"])
}

func TestClassifyDetectsRemoved(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{adapter("events", "raw/events.csv"), adapter("legacy", "raw/legacy.csv")}
	prevModels := []config.ModelConfig{{Name: "summary", SQL: "SELECT * FROM events"}}
	prevGraph, err := resolver.BuildGraph(adapters, prevModels)
	require.NoError(t, err)
	prevFP := FingerprintAll(adapters, prevModels)

	newAdapters := []config.AdapterConfig{adapters[0]}
	newGraph, err := resolver.BuildGraph(newAdapters, prevModels)
	require.NoError(t, err)
	newFP := FingerprintAll(newAdapters, prevModels)

	c := Classify(newGraph, prevGraph, prevFP, newFP)
	require.True(t, c.Removed["legacy"])
	require.True(t, c.Unchanged["events"])
	require.True(t, c.Unchanged["summary"])
}

func TestClassifyMarksDownstreamModifiedWhenEdgesChange(t *testing.T) {
	t.Parallel()

	prevAdapters := []config.AdapterConfig{adapter("events", "raw/events.csv")}
	prevModels := []config.ModelConfig{{Name: "summary", SQL: "SELECT * FROM events"}}
	prevGraph, err := resolver.BuildGraph(prevAdapters, prevModels)
	require.NoError(t, err)
	prevFP := FingerprintAll(prevAdapters, prevModels)

	newAdapters := []config.AdapterConfig{adapter("events", "raw/events.csv"), adapter("users", "raw/users.csv")}
	newModels := []config.ModelConfig{{Name: "summary", SQL: "SELECT * FROM events JOIN users ON true"}}
	newGraph, err := resolver.BuildGraph(newAdapters, newModels)
	require.NoError(t, err)
	newFP := FingerprintAll(newAdapters, newModels)

	c := Classify(newGraph, prevGraph, prevFP, newFP)
	require.True(t, c.Added["users"])
	require.True(t, c.Modified["summary"])
}
