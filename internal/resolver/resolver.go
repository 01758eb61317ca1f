package resolver

import (
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/featherbox/internal/config"
	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// BuildGraph implements spec §4.3 exactly: it unions adapter and model
// names into a node set, parses every model's SQL to collect table
// references, links each reference to its source node, and rejects the
// result if it contains an unknown reference or a dependency cycle.
//
// BuildGraph is pure: the same inputs always produce the same graph.
func BuildGraph(adapters []config.AdapterConfig, models []config.ModelConfig) (*Graph, error) {
	g := newGraph()

	for _, a := range adapters {
		if existing, ok := g.Nodes[a.Name]; ok {
			return nil, streamyerrors.NewConfigInvalid(
				fmt.Sprintf("name %q is used by both an adapter and a %s", a.Name, existing.Kind), nil)
		}
		g.Nodes[a.Name] = Node{Name: a.Name, Kind: NodeAdapter}
	}
	for _, m := range models {
		if existing, ok := g.Nodes[m.Name]; ok {
			return nil, streamyerrors.NewConfigInvalid(
				fmt.Sprintf("name %q is used by both a model and an %s", m.Name, existing.Kind), nil)
		}
		g.Nodes[m.Name] = Node{Name: m.Name, Kind: NodeModel}
	}

	for _, m := range models {
		refs, err := extractReferences(m.SQL)
		if err != nil {
			return nil, streamyerrors.NewConfigInvalid(
				fmt.Sprintf("model %q: failed to parse sql: %v", m.Name, err), err)
		}
		for _, r := range sortedNames(refs) {
			r = unqualify(r)
			if r == m.Name {
				continue
			}
			if _, ok := g.Nodes[r]; !ok {
				return nil, streamyerrors.NewUnknownReference(m.Name, r)
			}
			g.addEdge(r, m.Name)
		}
	}

	if cycle := detectCycle(g); cycle != nil {
		return nil, streamyerrors.NewCyclicDependency(cycle)
	}

	return g, nil
}

// unqualify returns the tail identifier of a schema-qualified name
// ("schema.table" → "table"), and strips surrounding quote characters the
// parser may have preserved around quoted identifiers.
func unqualify(name string) string {
	name = strings.Trim(name, "`\"")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.Trim(name, "`\"")
}
