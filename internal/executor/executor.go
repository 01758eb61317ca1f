// Package executor implements FeatherBox's ELT executor (spec §4.6,
// component C6): it drives each action in a scheduler.Plan against the
// catalog engine, applying the retry, concurrency, and dependency-skip
// policies from spec §4.6 and §5.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/alexisbeaulieu97/featherbox/internal/catalog"
	"github.com/alexisbeaulieu97/featherbox/internal/config"
	"github.com/alexisbeaulieu97/featherbox/internal/logger"
	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
	"github.com/alexisbeaulieu97/featherbox/internal/scheduler"
	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// Options configures one run, matching spec §6's `run` options verbatim.
type Options struct {
	Parallelism       int
	ContinueOnFailure bool
	Only              []string
	RetryAttempts     int
	RetryDelayMs      int
	DeadlineS         *int
}

// Executor drives a Plan's actions against an Engine, recording every
// transition through a catalog.Store.
type Executor struct {
	Engine    Engine
	Files     FileSource
	Databases DatabaseSource
	Store     *catalog.Store
	Log       logger.Logger
}

// ActionOutcome summarizes one executed action for the pipeline-level
// summary returned by run (spec §4.6 "Dependency skip policy").
type ActionOutcome struct {
	NodeName string
	Status   catalog.ActionStatus
	Reason   string
}

// Summary is the aggregate result of one RunPlan call.
type Summary struct {
	PipelineStatus catalog.PipelineStatus
	Outcomes       []ActionOutcome
}

// RunPlan executes plan's drops then its create levels in order, applying
// the options' parallelism, retry, continue-on-failure, and deadline
// policy. graph supplies dependency edges for the skip policy.
func (e *Executor) RunPlan(
	ctx context.Context,
	pipelineID string,
	plan *scheduler.Plan,
	graph *resolver.Graph,
	adaptersByName map[string]config.AdapterConfig,
	modelsByName map[string]config.ModelConfig,
	opts Options,
) (*Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	retryPolicy := RetryPolicy{MaxAttempts: opts.RetryAttempts, BaseDelay: time.Duration(opts.RetryDelayMs) * time.Millisecond}
	if retryPolicy.MaxAttempts <= 0 {
		retryPolicy = DefaultRetryPolicy()
	}

	only := toSet(opts.Only)

	var mu sync.Mutex
	status := make(map[string]catalog.ActionStatus)
	var outcomes []ActionOutcome
	cancelled := false
	halted := false
	var orderCounter atomic.Int64

	record := func(name string, st catalog.ActionStatus, reason string) {
		mu.Lock()
		status[name] = st
		outcomes = append(outcomes, ActionOutcome{NodeName: name, Status: st, Reason: reason})
		mu.Unlock()
	}

	statusSnapshot := func() map[string]catalog.ActionStatus {
		mu.Lock()
		defer mu.Unlock()
		snap := make(map[string]catalog.ActionStatus, len(status))
		for k, v := range status {
			snap[k] = v
		}
		return snap
	}

	for _, drop := range plan.Drops {
		if !includedIn(only, drop.NodeName) {
			continue
		}
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if e.runDrop(ctx, pipelineID, drop.NodeName, int(orderCounter.Add(1)), retryPolicy) {
			record(drop.NodeName, catalog.ActionCompleted, "")
		} else {
			record(drop.NodeName, catalog.ActionFailed, "")
			if !opts.ContinueOnFailure {
				cancelled = ctx.Err() != nil
				halted = true
				break
			}
		}
	}

	for _, level := range plan.Levels {
		if halted {
			break
		}
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		workers := opts.Parallelism
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		sem := semaphore.NewWeighted(int64(workers))
		group, gctx := errgroup.WithContext(ctx)

		for _, action := range level {
			action := action
			if !includedIn(only, action.NodeName) {
				continue
			}

			upstreamFailed, failedDep := upstreamBlocked(graph, action.NodeName, statusSnapshot(), only)
			if upstreamFailed {
				record(action.NodeName, catalog.ActionSkipped, "upstream_failed")
				if e.Store != nil {
					if id, err := e.Store.EmitAction(ctx, pipelineID, action.NodeName, string(action.Kind), int(orderCounter.Add(1)), nil, nil); err == nil {
						_ = e.Store.MarkTerminal(ctx, id, catalog.ActionSkipped, "upstream_failed", failedDep)
					}
				}
				continue
			}

			if err := sem.Acquire(gctx, 1); err != nil {
				break
			}

			order := int(orderCounter.Add(1))
			group.Go(func() error {
				defer sem.Release(1)

				ok, reason := e.runCreate(gctx, pipelineID, action, order, adaptersByName, modelsByName, retryPolicy)
				if ok {
					record(action.NodeName, catalog.ActionCompleted, "")
					return nil
				}
				record(action.NodeName, catalog.ActionFailed, reason)
				if !opts.ContinueOnFailure {
					return streamyerrors.NewSqlExecutionError(action.NodeName, fmt.Errorf("%s", reason))
				}
				return nil
			})
		}

		if err := group.Wait(); err != nil && !opts.ContinueOnFailure {
			// ctx.Err() is only non-nil here if the caller's context was
			// itself cancelled or hit its deadline; an action failure alone
			// (the injected SqlExecutionError from the group) never sets it,
			// so this break yields "failed", not "cancelled" (spec §7).
			if ctx.Err() != nil {
				cancelled = true
			}
			break
		}
	}

	finalStatus := catalog.PipelineCompleted
	switch {
	case cancelled:
		finalStatus = catalog.PipelineCancelled
	case anyFailed(outcomes):
		finalStatus = catalog.PipelineFailed
	}

	if e.Store != nil {
		_ = e.Store.ClosePipeline(ctx, pipelineID, finalStatus)
	}

	return &Summary{PipelineStatus: finalStatus, Outcomes: outcomes}, nil
}

func (e *Executor) runDrop(ctx context.Context, pipelineID, nodeName string, executionOrder int, policy RetryPolicy) bool {
	var actionID string
	if e.Store != nil {
		id, err := e.Store.EmitAction(ctx, pipelineID, nodeName, "drop", executionOrder, nil, nil)
		if err != nil {
			return false
		}
		actionID = id
		_ = e.Store.MarkRunning(ctx, actionID, 1)
	}

	err := withRetry(ctx, policy, func(attempt int) {
		if e.Log != nil && attempt > 1 {
			e.Log.Warn(ctx, "retrying drop action", "node", nodeName, "attempt", attempt)
		}
	}, func() error {
		return e.Engine.DropTable(ctx, nodeName)
	})

	if e.Store != nil && actionID != "" {
		if err != nil {
			_ = e.Store.MarkTerminal(ctx, actionID, catalog.ActionFailed, "", err.Error())
		} else {
			_ = e.Store.MarkTerminal(ctx, actionID, catalog.ActionCompleted, "", "")
		}
	}
	return err == nil
}

func (e *Executor) runCreate(
	ctx context.Context,
	pipelineID string,
	action scheduler.CreateAction,
	executionOrder int,
	adaptersByName map[string]config.AdapterConfig,
	modelsByName map[string]config.ModelConfig,
	policy RetryPolicy,
) (bool, string) {
	var since, until *string
	if action.Window.Set {
		s, u := action.Window.Since.UTC().Format(time.RFC3339), action.Window.Until.UTC().Format(time.RFC3339)
		since, until = &s, &u
	}

	var actionID string
	if e.Store != nil {
		id, err := e.Store.EmitAction(ctx, pipelineID, action.NodeName, string(scheduler.ActionCreateOrReplace), executionOrder, since, until)
		if err != nil {
			return false, err.Error()
		}
		actionID = id
	}

	attempt := 0
	err := withRetry(ctx, policy, func(a int) {
		attempt = a
		if e.Store != nil && actionID != "" {
			_ = e.Store.MarkRunning(ctx, actionID, a)
		}
		if e.Log != nil && a > 1 {
			e.Log.Warn(ctx, "retrying action", "node", action.NodeName, "attempt", a)
		}
	}, func() error {
		return e.runCreateOnce(ctx, action, adaptersByName, modelsByName)
	})
	_ = attempt

	if e.Store != nil && actionID != "" {
		if err != nil {
			reason := "failed"
			if ctx.Err() == context.DeadlineExceeded {
				reason = "deadline_exceeded"
			} else if ctx.Err() == context.Canceled {
				reason = "cancelled"
			}
			_ = e.Store.MarkTerminal(ctx, actionID, catalog.ActionFailed, reason, err.Error())
		} else {
			_ = e.Store.MarkTerminal(ctx, actionID, catalog.ActionCompleted, "", "")
		}
	}

	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (e *Executor) runCreateOnce(
	ctx context.Context,
	action scheduler.CreateAction,
	adaptersByName map[string]config.AdapterConfig,
	modelsByName map[string]config.ModelConfig,
) error {
	if action.Kind == resolver.NodeModel {
		m, ok := modelsByName[action.NodeName]
		if !ok {
			return streamyerrors.NewConfigInvalid(fmt.Sprintf("model %q not found", action.NodeName), nil)
		}
		sql := resolver.SubstituteRefCalls(m.SQL)
		return e.Engine.CreateOrReplaceTable(ctx, action.NodeName, sql)
	}

	a, ok := adaptersByName[action.NodeName]
	if !ok {
		return streamyerrors.NewConfigInvalid(fmt.Sprintf("adapter %q not found", action.NodeName), nil)
	}
	if a.Source.File != nil {
		return e.runFileAdapter(ctx, a, action.Window)
	}
	return e.runDatabaseAdapter(ctx, a)
}

func toSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func includedIn(only map[string]bool, name string) bool {
	if only == nil {
		return true
	}
	return only[name]
}

func upstreamBlocked(g *resolver.Graph, name string, status map[string]catalog.ActionStatus, only map[string]bool) (bool, string) {
	for _, dep := range g.Dependencies(name) {
		if !includedIn(only, dep) {
			continue
		}
		st, tracked := status[dep]
		if !tracked {
			continue
		}
		if st == catalog.ActionFailed || st == catalog.ActionSkipped {
			return true, dep
		}
	}
	return false, ""
}

func anyFailed(outcomes []ActionOutcome) bool {
	for _, o := range outcomes {
		if o.Status == catalog.ActionFailed {
			return true
		}
	}
	return false
}

