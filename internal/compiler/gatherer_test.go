package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/flowcore/internal/model"
)

func buildNestedFlow() *model.Flow {
	leaf := &model.Function{Name: "add", Alias: "add", Route: "/top/sub/add"}

	sub := &model.Flow{
		Name:      "sub",
		Alias:     "sub",
		Route:     "/top/sub",
		Process:   []model.ProcessRef{{Alias: "add", Source: "add.json"}},
		Functions: map[string]*model.Function{"add": leaf},
		Connection: []model.Connection{
			{From: "/top/sub/in", To: "/top/sub/add/i1"},
		},
		LibRefs: map[model.LibraryRef]bool{"lib://math/mul": true},
	}

	top := &model.Flow{
		Name:      "top",
		Route:     "/top",
		Process:   []model.ProcessRef{{Alias: "sub", Source: "sub.json"}},
		Subflows:  map[string]*model.Flow{"sub": sub},
		Functions: map[string]*model.Function{},
		Connection: []model.Connection{
			{From: "/top/start", To: "/top/sub/in", EndsAtFlow: true},
		},
	}
	return top
}

func TestGatherFlattensTree(t *testing.T) {
	g := Gather(buildNestedFlow())

	assert.Len(t, g.Functions, 1)
	assert.Equal(t, model.Route("/top/sub/add"), g.Functions[0].Route)

	assert.Len(t, g.Connections, 2)
	assert.True(t, g.Libs["lib://math/mul"])
}

func TestGatherClonesFunctions(t *testing.T) {
	tree := buildNestedFlow()
	g := Gather(tree)

	g.Functions[0].Impure = true

	original := tree.Subflows["sub"].Functions["add"]
	assert.False(t, original.Impure, "Gather must clone leaf functions, not alias them")
}
