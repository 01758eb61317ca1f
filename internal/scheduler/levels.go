package scheduler

import (
	"sort"

	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
)

// orderDrops emits dead nodes in reverse topological order within the
// previous graph restricted to dead: if removed node X depends on removed
// node Y, X is dropped before Y (spec §4.5 step 3).
func orderDrops(previousGraph *resolver.Graph, dead map[string]bool) []DropAction {
	if len(dead) == 0 {
		return nil
	}

	indegree := make(map[string]int, len(dead))
	dependents := make(map[string][]string, len(dead))
	for name := range dead {
		indegree[name] = 0
	}
	for name := range dead {
		for _, dep := range previousGraph.Dependencies(name) {
			if dead[dep] {
				indegree[name]++
				dependents[dep] = append(dependents[dep], name)
			}
		}
	}

	var queue []string
	for name := range dead {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)

		var next []string
		for _, d := range dependents[n] {
			indegree[d]--
			if indegree[d] == 0 {
				next = append(next, d)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	// order is dependency-before-dependent (topological); reverse it so a
	// node is dropped before whatever it itself depends on.
	drops := make([]DropAction, len(order))
	for i, name := range order {
		drops[len(order)-1-i] = DropAction{NodeName: name}
	}
	return drops
}

// assignLevels assigns each live node a level equal to the longest path from
// any adapter ancestor (adapters are level 0), per spec §4.5 step 4. The
// longest path is computed over the full graph — not just live — so a live
// node's level reflects its true depth even when one or more of its
// ancestors are not part of this run's live set; only the output is then
// filtered down to live nodes.
func assignLevels(g *resolver.Graph, live map[string]bool) [][]string {
	if len(live) == 0 {
		return nil
	}

	level := make(map[string]int, len(g.Nodes))

	var computeLevel func(string) int
	computeLevel = func(name string) int {
		if lv, ok := level[name]; ok {
			return lv
		}
		node := g.Nodes[name]
		if node.Kind == resolver.NodeAdapter {
			level[name] = 0
			return 0
		}

		best := 0
		for _, dep := range g.Dependencies(name) {
			best = max(best, computeLevel(dep)+1)
		}
		level[name] = best
		return best
	}

	maxLevel := 0
	names := make([]string, 0, len(live))
	for name := range live {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lv := computeLevel(name)
		if lv > maxLevel {
			maxLevel = lv
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, name := range names {
		lv := level[name]
		levels[lv] = append(levels[lv], name)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
