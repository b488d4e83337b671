package compiler

import "github.com/flowforge/flowcore/internal/model"

// Collapse replaces every chain of connections that traverses a flow
// boundary with a single leaf-to-leaf connection (spec.md §4.D). Boundary
// flags on the *input* table are preserved by the caller for diagnostic
// dumps (§9 open question); Collapse itself only returns the rewritten
// table.
func Collapse(in []model.Connection) []model.Connection {
	table := append([]model.Connection(nil), in...)

	for {
		rewrote := false
		var next []model.Connection

		for _, l := range table {
			if !l.EndsAtFlow {
				next = append(next, l)
				continue
			}
			matched := false
			for _, r := range table {
				if r.From == l.To {
					matched = true
					next = append(next, model.Connection{
						Name:         l.Name,
						From:         l.From,
						To:           r.To,
						DataType:     chooseDataType(l, r),
						StartsAtFlow: l.StartsAtFlow,
						EndsAtFlow:   r.EndsAtFlow,
					})
					rewrote = true
				}
			}
			if !matched {
				// Dangling boundary connection: drop it, nothing receives it.
				rewrote = true
			}
		}

		if !rewrote {
			break
		}
		table = next
	}

	// Drop every connection whose From or To still references a flow
	// boundary — these are intermediary "pipes" representing no real
	// delivery.
	var leafOnly []model.Connection
	for _, c := range table {
		if c.StartsAtFlow || c.EndsAtFlow {
			continue
		}
		leafOnly = append(leafOnly, c)
	}

	return RemoveDuplicates(leafOnly)
}

func chooseDataType(l, r model.Connection) model.DataType {
	if l.DataType != "" {
		return l.DataType
	}
	return r.DataType
}

// RemoveDuplicates keeps one connection per distinct (From, To) pair.
// Idempotent: RemoveDuplicates(RemoveDuplicates(c)) == RemoveDuplicates(c).
func RemoveDuplicates(in []model.Connection) []model.Connection {
	seen := make(map[[2]model.Route]bool, len(in))
	var out []model.Connection
	for _, c := range in {
		key := [2]model.Route{c.From, c.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
