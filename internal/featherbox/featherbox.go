// Package featherbox wires C1–C6 together behind the four operations spec
// §6 defines: Migrate, Run, Query, and DropNodeData. Nothing here
// implements pipeline logic itself; it orchestrates the resolver, differ,
// scheduler, executor, and catalog store in the order §2 prescribes.
package featherbox

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/featherbox/internal/catalog"
	"github.com/alexisbeaulieu97/featherbox/internal/config"
	"github.com/alexisbeaulieu97/featherbox/internal/differ"
	"github.com/alexisbeaulieu97/featherbox/internal/executor"
	"github.com/alexisbeaulieu97/featherbox/internal/logger"
	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
	"github.com/alexisbeaulieu97/featherbox/internal/scheduler"
	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// App bundles the dependencies every operation needs: the catalog store and
// the collaborators the executor drives (file/database sources). Construct
// one per project and call Migrate/Run/Query/DropNodeData on it.
type App struct {
	Store     *catalog.Store
	Files     executor.FileSource
	Databases executor.DatabaseSource
	Log       logger.Logger

	// LowerBound is the configured floor for a time-partitioned adapter's
	// first window when no prior action exists.
	LowerBound time.Time
}

// Migrate implements spec §6's migrate(project_config, adapters, models) →
// graph_id: runs C3 then writes the result to C1.
func (app *App) Migrate(ctx context.Context, adapters []config.AdapterConfig, models []config.ModelConfig) (int64, error) {
	ctx = withCorrelationID(ctx)

	graph, err := resolver.BuildGraph(adapters, models)
	if err != nil {
		return 0, err
	}

	fingerprints := differ.FingerprintAll(adapters, models)
	stringFPs := make(map[string]string, len(fingerprints))
	for name, fp := range fingerprints {
		stringFPs[name] = string(fp)
	}

	graphID, err := app.Store.WriteGraph(ctx, graph, stringFPs)
	if err != nil {
		return 0, err
	}

	if app.Log != nil {
		app.Log.Info(ctx, "committed graph", "graph_id", graphID, "nodes", len(graph.Nodes))
	}
	return graphID, nil
}

// RunOptions is an alias of executor.Options, kept distinct at the facade
// boundary so callers don't need to import internal/executor directly.
type RunOptions = executor.Options

// Run implements spec §6's run(project_config, opts) → pipeline_id: reads
// the latest graph, runs C4→C5→C6, and writes a pipeline row.
func (app *App) Run(
	ctx context.Context,
	adapters []config.AdapterConfig,
	models []config.ModelConfig,
	opts RunOptions,
) (string, *executor.Summary, error) {
	ctx = withCorrelationID(ctx)

	if opts.DeadlineS != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*opts.DeadlineS)*time.Second)
		defer cancel()
	}

	latestGraphID, found, err := app.Store.LatestGraphID(ctx)
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, streamyerrors.NewNoGraph()
	}

	previousGraph, previousFPsRaw, err := app.Store.LoadGraph(ctx, latestGraphID)
	if err != nil {
		return "", nil, err
	}
	previousFPs := make(map[string]differ.Fingerprint, len(previousFPsRaw))
	for name, fp := range previousFPsRaw {
		previousFPs[name] = differ.Fingerprint(fp)
	}

	newGraph, err := resolver.BuildGraph(adapters, models)
	if err != nil {
		return "", nil, err
	}
	newFPs := differ.FingerprintAll(adapters, models)

	classification := differ.Classify(newGraph, previousGraph, previousFPs, newFPs)

	adaptersByName := make(map[string]config.AdapterConfig, len(adapters))
	for _, a := range adapters {
		adaptersByName[a.Name] = a
	}
	modelsByName := make(map[string]config.ModelConfig, len(models))
	for _, m := range models {
		modelsByName[m.Name] = m
	}

	plan := scheduler.BuildPlan(newGraph, previousGraph, classification, adaptersByName, app.lastWindowFor(ctx), app.LowerBound, time.Now())

	pipelineID, err := app.Store.OpenPipeline(ctx, latestGraphID)
	if err != nil {
		return "", nil, err
	}

	ex := &executor.Executor{Engine: app.Store, Files: app.Files, Databases: app.Databases, Store: app.Store, Log: app.Log}
	summary, err := ex.RunPlan(ctx, pipelineID, plan, newGraph, adaptersByName, modelsByName, opts)
	if err != nil {
		return pipelineID, summary, err
	}
	return pipelineID, summary, nil
}

// Query implements spec §6's query(sql) → result_set by passing sql through
// to C6's read path.
func (app *App) Query(ctx context.Context, sqlText string) (*sql.Rows, error) {
	return app.Store.Query(ctx, sqlText)
}

// DropNodeData implements spec §6's drop_node_data(node_name) for explicit
// calls; Run's own drop phase goes through the executor, not this method.
func (app *App) DropNodeData(ctx context.Context, nodeName string) error {
	return app.Store.DropTable(ctx, nodeName)
}

// lastWindowFor returns a windowLookup closure bound to ctx: the last
// completed action's `until` for nodeName across every prior pipeline, used
// as the next run's `since` for a time-partitioned adapter (spec §4.5).
func (app *App) lastWindowFor(ctx context.Context) func(string) (time.Time, bool) {
	return func(nodeName string) (time.Time, bool) {
		until, found, err := app.Store.LastCompletedWindowUntil(ctx, nodeName)
		if err != nil {
			if app.Log != nil {
				app.Log.Warn(ctx, "last completed window lookup failed", "node", nodeName, "error", err)
			}
			return time.Time{}, false
		}
		return until, found
	}
}

func withCorrelationID(ctx context.Context) context.Context {
	if logger.CorrelationID(ctx) != "" {
		return ctx
	}
	return logger.WithCorrelationID(ctx, uuid.NewString())
}
