package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/flowcore/internal/model"
)

func TestOptimizeRemovesPureFunctionWithNoConsumer(t *testing.T) {
	functions := []*model.Function{
		{Name: "add", Route: "/top/add"},
		{Name: "unused", Route: "/top/unused"},
	}
	connections := []model.Connection{
		{From: "/top/start", To: "/top/add/i1"},
		{From: "/top/add/out", To: "/top/sink/i1"},
	}
	functions = append(functions, &model.Function{Name: "sink", Route: "/top/sink", Impure: true})

	fns, conns := Optimize(functions, connections)

	routes := make([]model.Route, len(fns))
	for i, fn := range fns {
		routes[i] = fn.Route
	}
	assert.ElementsMatch(t, []model.Route{"/top/add", "/top/sink"}, routes)
	assert.Equal(t, connections, conns)
}

func TestOptimizeKeepsImpureFunctionEvenWithoutConsumer(t *testing.T) {
	functions := []*model.Function{
		{Name: "print", Route: "/top/print", Impure: true},
	}
	fns, _ := Optimize(functions, nil)
	assert.Len(t, fns, 1)
}

func TestOptimizeCascades(t *testing.T) {
	// a -> b -> c, c has no consumer: removing c should strand b, then a.
	functions := []*model.Function{
		{Name: "a", Route: "/top/a"},
		{Name: "b", Route: "/top/b"},
		{Name: "c", Route: "/top/c"},
	}
	connections := []model.Connection{
		{From: "/top/a/out", To: "/top/b/i1"},
		{From: "/top/b/out", To: "/top/c/i1"},
	}

	fns, conns := Optimize(functions, connections)
	assert.Empty(t, fns)
	assert.Empty(t, conns)
}

func TestOptimizeIsIdempotent(t *testing.T) {
	functions := []*model.Function{
		{Name: "a", Route: "/top/a"},
		{Name: "b", Route: "/top/b"},
	}
	connections := []model.Connection{
		{From: "/top/a/out", To: "/top/b/i1"},
	}
	fns1, conns1 := Optimize(functions, connections)
	fns2, conns2 := Optimize(fns1, conns1)
	assert.Equal(t, fns1, fns2)
	assert.Equal(t, conns1, conns2)
}
