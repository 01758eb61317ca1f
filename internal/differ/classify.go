package differ

import (
	"reflect"

	"github.com/alexisbeaulieu97/featherbox/internal/resolver"
)

// Classification is the disjoint partition of every node in the new graph
// (plus removed nodes from the previous graph) per spec §4.4.
type Classification struct {
	Added     map[string]bool
	Removed   map[string]bool
	Modified  map[string]bool
	Unchanged map[string]bool
}

func newClassification() *Classification {
	return &Classification{
		Added:     map[string]bool{},
		Removed:   map[string]bool{},
		Modified:  map[string]bool{},
		Unchanged: map[string]bool{},
	}
}

// Classify compares the newly resolved graph against the previously
// committed one (nil if this is the first migrate) using per-node config
// fingerprints, implementing spec §4.4.
func Classify(
	newGraph *resolver.Graph,
	previousGraph *resolver.Graph,
	previousFingerprints map[string]Fingerprint,
	newFingerprints map[string]Fingerprint,
) *Classification {
	c := newClassification()

	if previousGraph == nil {
		for name := range newGraph.Nodes {
			c.Added[name] = true
		}
		return c
	}

	for name := range newGraph.Nodes {
		_, existedBefore := previousGraph.Nodes[name]
		if !existedBefore {
			c.Added[name] = true
			continue
		}

		sameFingerprint := previousFingerprints[name] == newFingerprints[name]
		sameEdges := reflect.DeepEqual(
			sortedCopy(previousGraph.Dependencies(name)),
			sortedCopy(newGraph.Dependencies(name)),
		)

		if sameFingerprint && sameEdges {
			c.Unchanged[name] = true
		} else {
			c.Modified[name] = true
		}
	}

	for name := range previousGraph.Nodes {
		if _, stillExists := newGraph.Nodes[name]; !stillExists {
			c.Removed[name] = true
		}
	}

	return c
}
