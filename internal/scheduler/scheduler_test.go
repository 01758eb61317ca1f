package scheduler

import (
	"testing"
	"time"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
	"github.com/alexisbeaulieu97/featherbox/internal/differ"
	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
	"github.com/stretchr/testify/require"
)

func fileAdapter(name, pattern string) config.AdapterConfig {
	return config.AdapterConfig{
		Name:       name,
		Connection: "local",
		Source: config.SourceDescriptor{
			File: &config.FileSource{PathPattern: pattern, Format: config.Format{Kind: config.FormatCSV}},
		},
		Columns: []config.Column{{Name: "id", Type: "integer"}},
	}
}

func noWindow(string) (time.Time, bool) { return time.Time{}, false }

func TestBuildPlanS1FirstMigrateProducesLeveledPlan(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("A", "data/a.csv"), fileAdapter("B", "data/b.csv")}
	models := []config.ModelConfig{
		{Name: "C", SQL: "SELECT a.id, a.x+b.y AS s FROM A a JOIN B b USING(id)"},
		{Name: "D", SQL: "SELECT COUNT(*) AS n FROM C"},
	}

	g, err := resolver.BuildGraph(adapters, models)
	require.NoError(t, err)

	fp := differ.FingerprintAll(adapters, models)
	classification := differ.Classify(g, nil, nil, fp)

	byName := map[string]config.AdapterConfig{"A": adapters[0], "B": adapters[1]}
	plan := BuildPlan(g, nil, classification, byName, noWindow, time.Time{}, time.Now())

	require.Empty(t, plan.Drops)
	require.Len(t, plan.Levels, 3)
	require.ElementsMatch(t, []string{"A", "B"}, namesOf(plan.Levels[0]))
	require.ElementsMatch(t, []string{"C"}, namesOf(plan.Levels[1]))
	require.ElementsMatch(t, []string{"D"}, namesOf(plan.Levels[2]))
}

func TestBuildPlanS2UnchangedReRunIsEmpty(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("A", "data/a.csv"), fileAdapter("B", "data/b.csv")}
	models := []config.ModelConfig{
		{Name: "C", SQL: "SELECT a.id, a.x+b.y AS s FROM A a JOIN B b USING(id)"},
		{Name: "D", SQL: "SELECT COUNT(*) AS n FROM C"},
	}

	g, err := resolver.BuildGraph(adapters, models)
	require.NoError(t, err)
	fp := differ.FingerprintAll(adapters, models)

	classification := differ.Classify(g, g, fp, fp)
	byName := map[string]config.AdapterConfig{"A": adapters[0], "B": adapters[1]}
	plan := BuildPlan(g, g, classification, byName, noWindow, time.Time{}, time.Now())

	require.True(t, plan.IsEmpty())
}

func TestBuildPlanDifferentialMinimality(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("A", "data/a.csv"), fileAdapter("B", "data/b.csv")}
	prevModels := []config.ModelConfig{
		{Name: "C", SQL: "SELECT * FROM A"},
		{Name: "D", SQL: "SELECT * FROM C"},
		{Name: "E", SQL: "SELECT * FROM B"},
	}
	prevGraph, err := resolver.BuildGraph(adapters, prevModels)
	require.NoError(t, err)
	prevFP := differ.FingerprintAll(adapters, prevModels)

	newModels := []config.ModelConfig{
		{Name: "C", SQL: "SELECT id FROM A"},
		{Name: "D", SQL: "SELECT * FROM C"},
		{Name: "E", SQL: "SELECT * FROM B"},
	}
	newGraph, err := resolver.BuildGraph(adapters, newModels)
	require.NoError(t, err)
	newFP := differ.FingerprintAll(adapters, newModels)

	classification := differ.Classify(newGraph, prevGraph, prevFP, newFP)
	byName := map[string]config.AdapterConfig{"A": adapters[0], "B": adapters[1]}
	plan := BuildPlan(newGraph, prevGraph, classification, byName, noWindow, time.Time{}, time.Now())

	var live []string
	for _, lvl := range plan.Levels {
		live = append(live, namesOf(lvl)...)
	}
	require.ElementsMatch(t, []string{"C", "D"}, live)
	require.Empty(t, plan.Drops)
}

func TestBuildPlanDifferentialLevelsMatchFullGraphDepth(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("A", "data/a.csv"), fileAdapter("B", "data/b.csv")}
	prevModels := []config.ModelConfig{
		{Name: "C", SQL: "SELECT * FROM A"},
		{Name: "D", SQL: "SELECT * FROM C"},
		{Name: "E", SQL: "SELECT * FROM B"},
	}
	prevGraph, err := resolver.BuildGraph(adapters, prevModels)
	require.NoError(t, err)
	prevFP := differ.FingerprintAll(adapters, prevModels)

	newModels := []config.ModelConfig{
		{Name: "C", SQL: "SELECT id FROM A"},
		{Name: "D", SQL: "SELECT * FROM C"},
		{Name: "E", SQL: "SELECT * FROM B"},
	}
	newGraph, err := resolver.BuildGraph(adapters, newModels)
	require.NoError(t, err)
	newFP := differ.FingerprintAll(adapters, newModels)

	classification := differ.Classify(newGraph, prevGraph, prevFP, newFP)
	byName := map[string]config.AdapterConfig{"A": adapters[0], "B": adapters[1]}
	plan := BuildPlan(newGraph, prevGraph, classification, byName, noWindow, time.Time{}, time.Now())

	// A (C's adapter ancestor) is not itself live here, but C's level must
	// still reflect its true depth in the full graph: A=0, C=1, D=2.
	require.Len(t, plan.Levels, 3)
	require.Empty(t, plan.Levels[0])
	require.Equal(t, []string{"C"}, namesOf(plan.Levels[1]))
	require.Equal(t, []string{"D"}, namesOf(plan.Levels[2]))
}

func TestBuildPlanDropOrderingIsReverseTopological(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("A", "data/a.csv")}
	prevModels := []config.ModelConfig{
		{Name: "C", SQL: "SELECT * FROM A"},
		{Name: "D", SQL: "SELECT * FROM C"},
	}
	prevGraph, err := resolver.BuildGraph(adapters, prevModels)
	require.NoError(t, err)
	prevFP := differ.FingerprintAll(adapters, prevModels)

	newGraph, err := resolver.BuildGraph(nil, nil)
	require.NoError(t, err)
	newFP := differ.FingerprintAll(nil, nil)

	classification := differ.Classify(newGraph, prevGraph, prevFP, newFP)
	plan := BuildPlan(newGraph, prevGraph, classification, nil, noWindow, time.Time{}, time.Now())

	require.Len(t, plan.Drops, 3)
	order := make(map[string]int, len(plan.Drops))
	for i, d := range plan.Drops {
		order[d.NodeName] = i
	}
	require.Less(t, order["D"], order["C"])
	require.Less(t, order["C"], order["A"])
}

func TestAssignLevelsHasNoIntraLevelEdges(t *testing.T) {
	t.Parallel()

	adapters := []config.AdapterConfig{fileAdapter("A", "data/a.csv")}
	models := []config.ModelConfig{
		{Name: "C", SQL: "SELECT * FROM A"},
		{Name: "D", SQL: "SELECT * FROM C"},
		{Name: "E", SQL: "SELECT * FROM C"},
	}
	g, err := resolver.BuildGraph(adapters, models)
	require.NoError(t, err)

	live := map[string]bool{"A": true, "C": true, "D": true, "E": true}
	levels := assignLevels(g, live)

	require.Equal(t, []string{"A"}, levels[0])
	require.Equal(t, []string{"C"}, levels[1])
	require.ElementsMatch(t, []string{"D", "E"}, levels[2])
}

func namesOf(actions []CreateAction) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.NodeName
	}
	return out
}
