// Package scheduler implements FeatherBox's differential scheduler (spec
// §4.5, component C5): turning a node classification into an ordered action
// plan, computing levels for bounded-parallel execution, and deriving each
// action's data time window.
package scheduler

import (
	"time"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
	"github.com/alexisbeaulieu97/featherbox/internal/differ"
	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
)

// ActionKind distinguishes the executor actions a plan may contain.
type ActionKind string

const (
	ActionCreateOrReplace ActionKind = "create_or_replace"
	ActionDrop            ActionKind = "drop"
)

// Window is an action's data time window, populated only for time-partitioned
// file adapters (spec §4.5).
type Window struct {
	Since time.Time
	Until time.Time
	Set   bool
}

// CreateAction is one CREATE-OR-REPLACE-TABLE unit of work for a live node.
type CreateAction struct {
	NodeName string
	Kind     resolver.NodeKind
	Level    int
	Window   Window
}

// DropAction is one DROP-TABLE unit of work for a removed node.
type DropAction struct {
	NodeName string
}

// Plan is the scheduler's output: drops ordered reverse-topologically,
// followed by creates grouped into levels safe to run in parallel.
type Plan struct {
	Drops  []DropAction
	Levels [][]CreateAction
}

// IsEmpty reports whether the plan contains no work at all (spec §8's
// "run idempotence on unchanged configs" property).
func (p *Plan) IsEmpty() bool {
	return len(p.Drops) == 0 && len(p.Levels) == 0
}

// BuildPlan implements spec §4.5 steps 1-5. previousGraph is nil on the
// first migrate. windowLookup supplies the last completed `until` for a
// time-partitioned adapter node, or the zero time if none exists yet;
// lowerBound is the configured floor used when no prior action exists.
func BuildPlan(
	newGraph *resolver.Graph,
	previousGraph *resolver.Graph,
	classification *differ.Classification,
	adaptersByName map[string]config.AdapterConfig,
	windowLookup func(nodeName string) (time.Time, bool),
	lowerBound time.Time,
	now time.Time,
) *Plan {
	affected := computeAffectedSet(newGraph, classification)

	live := make(map[string]bool)
	dead := make(map[string]bool)
	for name := range affected {
		if classification.Removed[name] {
			dead[name] = true
		} else {
			live[name] = true
		}
	}

	drops := orderDrops(previousGraph, dead)

	levels := assignLevels(newGraph, live)
	createLevels := make([][]CreateAction, len(levels))
	for i, names := range levels {
		actions := make([]CreateAction, 0, len(names))
		for _, name := range names {
			node := newGraph.Nodes[name]
			win := Window{}
			if node.Kind == resolver.NodeAdapter {
				if a, ok := adaptersByName[name]; ok && a.Source.IsTimePartitioned() {
					since := lowerBound
					if last, found := windowLookup(name); found {
						since = last
					}
					win = Window{Since: since, Until: roundDown(now, config.FinestGranularity(a.Source.File.PathPattern)), Set: true}
				}
			}
			actions = append(actions, CreateAction{NodeName: name, Kind: node.Kind, Level: i, Window: win})
		}
		createLevels[i] = actions
	}

	return &Plan{Drops: drops, Levels: createLevels}
}

// computeAffectedSet implements spec §4.5's affected-set definition:
// added ∪ modified ∪ downstream(added ∪ modified) ∪ removed.
func computeAffectedSet(newGraph *resolver.Graph, classification *differ.Classification) map[string]bool {
	changed := make(map[string]bool, len(classification.Added)+len(classification.Modified))
	for name := range classification.Added {
		changed[name] = true
	}
	for name := range classification.Modified {
		changed[name] = true
	}

	downstream := newGraph.Downstream(changed)

	affected := make(map[string]bool, len(changed)+len(downstream)+len(classification.Removed))
	for name := range changed {
		affected[name] = true
	}
	for name := range downstream {
		affected[name] = true
	}
	for name := range classification.Removed {
		affected[name] = true
	}
	return affected
}

func roundDown(t time.Time, g config.Granularity) time.Time {
	t = t.UTC()
	switch g {
	case config.GranularityYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case config.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case config.GranularityDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case config.GranularityHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case config.GranularityMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
	default:
		return t
	}
}
