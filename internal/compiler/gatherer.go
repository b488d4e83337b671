// Package compiler turns a loaded flow-definition tree into a compiled
// manifest: flattening the hierarchy (Gatherer), collapsing boundary-
// crossing connections (Connector), eliminating dead code (Optimizer),
// indexing surviving functions and building route tables (Tables), checking
// invariants (Checker), and emitting the manifest (Emitter) — spec
// components C through H.
package compiler

import (
	"github.com/flowforge/flowcore/internal/model"
)

// Gathered is the flattener's output: a flat connection table, a flat
// function table, and the union of every library reference found anywhere
// in the tree.
type Gathered struct {
	Connections []model.Connection
	Functions   []*model.Function
	Libs        map[model.LibraryRef]bool
}

// Gather walks the loaded tree depth-first. For each flow node it appends
// the flow's internal connections to the global connection table and
// recurses into sub-flows; for each leaf function it appends a clone of the
// function to the global function table. Library references are unioned.
func Gather(root *model.Flow) *Gathered {
	g := &Gathered{Libs: make(map[model.LibraryRef]bool)}
	gatherFlow(root, g)
	return g
}

func gatherFlow(flow *model.Flow, g *Gathered) {
	g.Connections = append(g.Connections, flow.Connection...)
	for lib := range flow.LibRefs {
		g.Libs[lib] = true
	}

	// Process entries are visited in declaration order for determinism:
	// sub-flows first recurse, bare functions (including lib/context refs)
	// are appended as leaves.
	for _, ref := range flow.Process {
		if sub, ok := flow.Subflows[ref.Alias]; ok {
			gatherFlow(sub, g)
			continue
		}
		if fn, ok := flow.Functions[ref.Alias]; ok {
			clone := *fn
			g.Functions = append(g.Functions, &clone)
		}
	}
}
