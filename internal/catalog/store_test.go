package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenAppliesMigrationsIdempotently(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	first, err := Open(ctx, path, nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, found, err := s.LatestGraphID(ctx)
	require.NoError(t, err)
	require.False(t, found)
}

func TestWriteAndLoadGraphRoundTrips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := resolver.FromStored(
		[]resolver.Node{{Name: "A", Kind: resolver.NodeAdapter}, {Name: "C", Kind: resolver.NodeModel}},
		[]resolver.Edge{{From: "A", To: "C"}},
	)
	fps := map[string]string{"A": "fp-a", "C": "fp-c"}

	graphID, err := s.WriteGraph(ctx, g, fps)
	require.NoError(t, err)
	require.Equal(t, int64(1), graphID)

	latest, found, err := s.LatestGraphID(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, graphID, latest)

	loaded, loadedFPs, err := s.LoadGraph(ctx, graphID)
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 2)
	require.Equal(t, []string{"C"}, loaded.Dependents("A"))
	require.Equal(t, "fp-a", loadedFPs["A"])
}

func TestWriteGraphIncrementsGraphID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := resolver.FromStored([]resolver.Node{{Name: "A", Kind: resolver.NodeAdapter}}, nil)
	id1, err := s.WriteGraph(ctx, g, map[string]string{"A": "fp"})
	require.NoError(t, err)
	id2, err := s.WriteGraph(ctx, g, map[string]string{"A": "fp"})
	require.NoError(t, err)
	require.Greater(t, id2, id1)
}

func TestPipelineAndActionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := resolver.FromStored([]resolver.Node{{Name: "A", Kind: resolver.NodeAdapter}}, nil)
	graphID, err := s.WriteGraph(ctx, g, map[string]string{"A": "fp"})
	require.NoError(t, err)

	pipelineID, err := s.OpenPipeline(ctx, graphID)
	require.NoError(t, err)
	require.NotEmpty(t, pipelineID)

	actionID, err := s.EmitAction(ctx, pipelineID, "A", "create_or_replace", 1, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.MarkRunning(ctx, actionID, 1))
	require.NoError(t, s.MarkTerminal(ctx, actionID, ActionCompleted, "", ""))

	actions, err := s.ActionsForPipeline(ctx, pipelineID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, ActionCompleted, actions[0].Status)
	require.Equal(t, 1, actions[0].ExecutionOrder)

	require.NoError(t, s.ClosePipeline(ctx, pipelineID, PipelineCompleted))
}

func TestLastCompletedWindowUntilTracksMostRecentCompletedAction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	g := resolver.FromStored([]resolver.Node{{Name: "events", Kind: resolver.NodeAdapter}}, nil)
	graphID, err := s.WriteGraph(ctx, g, map[string]string{"events": "fp"})
	require.NoError(t, err)

	pipelineID, err := s.OpenPipeline(ctx, graphID)
	require.NoError(t, err)

	_, _, err = s.LastCompletedWindowUntil(ctx, "events")
	require.NoError(t, err)

	firstUntil := "2026-01-01T00:00:00Z"
	firstSince := "2026-01-01T00:00:00Z"
	actionID, err := s.EmitAction(ctx, pipelineID, "events", "create_or_replace", 1, &firstSince, &firstUntil)
	require.NoError(t, err)
	require.NoError(t, s.MarkTerminal(ctx, actionID, ActionCompleted, "", ""))

	got, found, err := s.LastCompletedWindowUntil(ctx, "events")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.Equal(mustParseRFC3339(t, firstUntil)))

	secondUntil := "2026-01-02T00:00:00Z"
	secondSince := "2026-01-01T00:00:00Z"
	actionID2, err := s.EmitAction(ctx, pipelineID, "events", "create_or_replace", 2, &secondSince, &secondUntil)
	require.NoError(t, err)
	require.NoError(t, s.MarkTerminal(ctx, actionID2, ActionCompleted, "", ""))

	got, found, err = s.LastCompletedWindowUntil(ctx, "events")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, got.Equal(mustParseRFC3339(t, secondUntil)))
}

func mustParseRFC3339(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestCreateOrReplaceAndDropTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.CreateOrReplaceTable(ctx, "events", "SELECT 1 AS id"))

	rows, err := s.Query(ctx, "SELECT id FROM events")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var id int
	require.NoError(t, rows.Scan(&id))
	require.Equal(t, 1, id)

	require.NoError(t, s.DropTable(ctx, "events"))
}

func TestSavedQueryRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.SaveQuery(ctx, "top_events", "SELECT * FROM events LIMIT 10"))

	got, err := s.GetSavedQuery(ctx, "top_events")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM events LIMIT 10", got)

	require.NoError(t, s.SaveQuery(ctx, "top_events", "SELECT * FROM events LIMIT 20"))
	got, err = s.GetSavedQuery(ctx, "top_events")
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM events LIMIT 20", got)

	list, err := s.ListSavedQueries(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestGetSavedQueryMissingFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.GetSavedQuery(ctx, "does_not_exist")
	require.Error(t, err)
}
