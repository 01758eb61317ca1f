package resolver

import (
	"testing"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
	"github.com/stretchr/testify/require"
)

func fileAdapter(name string) config.AdapterConfig {
	return config.AdapterConfig{
		Name:       name,
		Connection: "local",
		Source: config.SourceDescriptor{
			File: &config.FileSource{PathPattern: "raw/" + name + ".csv", Format: config.Format{Kind: config.FormatCSV}},
		},
		Columns: []config.Column{{Name: "id", Type: "integer"}},
	}
}

func TestBuildGraphSimpleChain(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("events")}
	models := []config.ModelConfig{
		{Name: "daily_events", SQL: "SELECT * FROM events WHERE day = 1"},
	}

	g, err := BuildGraph(adapters, models)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2)
	require.Equal(t, []string{"daily_events"}, g.Dependents("events"))
	require.Equal(t, []string{"events"}, g.Dependencies("daily_events"))
}

func TestBuildGraphJoinProducesTwoEdges(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("orders"), fileAdapter("customers")}
	models := []config.ModelConfig{
		{Name: "enriched_orders", SQL: "SELECT o.id FROM orders o JOIN customers c ON o.customer_id = c.id"},
	}

	g, err := BuildGraph(adapters, models)
	require.NoError(t, err)
	deps := g.Dependencies("enriched_orders")
	require.ElementsMatch(t, []string{"orders", "customers"}, deps)
}

func TestBuildGraphDuplicateReferenceYieldsOneEdge(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("events")}
	models := []config.ModelConfig{
		{Name: "self_join", SQL: "SELECT a.id FROM events a JOIN events b ON a.id = b.id"},
	}

	g, err := BuildGraph(adapters, models)
	require.NoError(t, err)
	require.Equal(t, []string{"events"}, g.Dependencies("self_join"))
}

func TestBuildGraphCTEIsNotADependency(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("events")}
	models := []config.ModelConfig{
		{Name: "summary", SQL: `WITH filtered AS (SELECT * FROM events WHERE day = 1) SELECT * FROM filtered`},
	}

	g, err := BuildGraph(adapters, models)
	require.NoError(t, err)
	require.Equal(t, []string{"events"}, g.Dependencies("summary"))
}

func TestBuildGraphRefCallSyntax(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("events")}
	models := []config.ModelConfig{
		{Name: "summary", SQL: `SELECT * FROM ref("events")`},
	}

	g, err := BuildGraph(adapters, models)
	require.NoError(t, err)
	require.Equal(t, []string{"events"}, g.Dependencies("summary"))
}

func TestBuildGraphUnknownReferenceFails(t *testing.T) {
	t.Parallel()

	models := []config.ModelConfig{
		{Name: "summary", SQL: "SELECT * FROM does_not_exist"},
	}

	_, err := BuildGraph(nil, models)
	require.Error(t, err)

	var fbe *streamyerrors.FeatherBoxError
	require.ErrorAs(t, err, &fbe)
	require.Equal(t, streamyerrors.CodeUnknownReference, fbe.Code)
}

func TestBuildGraphCyclicDependencyFails(t *testing.T) {
	t.Parallel()

	models := []config.ModelConfig{
		{Name: "a", SQL: "SELECT * FROM b"},
		{Name: "b", SQL: "SELECT * FROM a"},
	}

	_, err := BuildGraph(nil, models)
	require.Error(t, err)

	var fbe *streamyerrors.FeatherBoxError
	require.ErrorAs(t, err, &fbe)
	require.Equal(t, streamyerrors.CodeCyclicDependency, fbe.Code)
}

func TestBuildGraphNameCollisionFails(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("shared")}
	models := []config.ModelConfig{{Name: "shared", SQL: "SELECT 1"}}

	_, err := BuildGraph(adapters, models)
	require.Error(t, err)
}

func TestBuildGraphIsPureUnderInputPermutation(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("a"), fileAdapter("b")}
	models := []config.ModelConfig{
		{Name: "m1", SQL: "SELECT * FROM a"},
		{Name: "m2", SQL: "SELECT * FROM b JOIN m1 ON true"},
	}

	g1, err := BuildGraph(adapters, models)
	require.NoError(t, err)

	reversedAdapters := []config.AdapterConfig{adapters[1], adapters[0]}
	reversedModels := []config.ModelConfig{models[1], models[0]}
	g2, err := BuildGraph(reversedAdapters, reversedModels)
	require.NoError(t, err)

	require.ElementsMatch(t, g1.Edges, g2.Edges)
	require.Equal(t, len(g1.Nodes), len(g2.Nodes))
}

func TestBuildGraphIgnoresDependsAdvisoryField(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("events"), fileAdapter("other")}
	models := []config.ModelConfig{
		{Name: "summary", SQL: "SELECT 1", Depends: []string{"events", "other"}},
	}

	g, err := BuildGraph(adapters, models)
	require.NoError(t, err)
	require.Empty(t, g.Dependencies("summary"))
}
