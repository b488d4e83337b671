package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/model"
)

func TestCompileEndToEnd(t *testing.T) {
	leaf := &model.Function{
		Name:   "mul",
		Route:  "/top/sub/mul",
		Impure: true,
		Inputs: []model.IO{
			{Name: "i1", Route: "/top/sub/mul/i1", Types: []model.DataType{model.TypeValue}},
		},
	}
	sub := &model.Flow{
		Name:      "sub",
		Route:     "/top/sub",
		Process:   []model.ProcessRef{{Alias: "mul", Source: "mul.json"}},
		Functions: map[string]*model.Function{"mul": leaf},
		Connection: []model.Connection{
			{From: "/top/sub/in", To: "/top/sub/mul/i1", StartsAtFlow: true},
		},
	}
	top := &model.Flow{
		Name:      "top",
		Route:     "/top",
		Process:   []model.ProcessRef{{Alias: "sub", Source: "sub.json"}},
		Subflows:  map[string]*model.Flow{"sub": sub},
		Functions: map[string]*model.Function{},
		Connection: []model.Connection{
			{From: "/top/add/out", To: "/top/sub/in", EndsAtFlow: true},
		},
	}
	top.Functions["add"] = &model.Function{
		Name:    "add",
		Route:   "/top/add",
		Outputs: []model.IO{{Name: "out", Route: "/top/add/out", Types: []model.DataType{model.TypeValue}}},
	}
	top.Process = append([]model.ProcessRef{{Alias: "add", Source: "add.json"}}, top.Process...)

	result := Compile(model.Metadata{Name: "top"}, top)

	require.Empty(t, result.Errors)
	require.NotNil(t, result.Manifest)
	assert.Len(t, result.Manifest.Functions, 2)
}

func TestCompileReportsCheckFailures(t *testing.T) {
	add := &model.Function{
		Name:   "add",
		Route:  "/top/add",
		Impure: true,
		Inputs: []model.IO{
			{Name: "i1", Route: "/top/add/i1", Types: []model.DataType{model.TypeValue}},
		},
	}
	srcA := &model.Function{
		Name: "a", Route: "/top/a", Impure: true,
		Outputs: []model.IO{{Name: "out", Route: "/top/a/out", Types: []model.DataType{model.TypeValue}}},
	}
	srcB := &model.Function{
		Name: "b", Route: "/top/b", Impure: true,
		Outputs: []model.IO{{Name: "out", Route: "/top/b/out", Types: []model.DataType{model.TypeValue}}},
	}
	top := &model.Flow{
		Name:  "top",
		Route: "/top",
		Process: []model.ProcessRef{
			{Alias: "add", Source: "add.json"},
			{Alias: "a", Source: "a.json"},
			{Alias: "b", Source: "b.json"},
		},
		Functions: map[string]*model.Function{"add": add, "a": srcA, "b": srcB},
		Subflows:  map[string]*model.Flow{},
		Connection: []model.Connection{
			{From: "/top/a/out", To: "/top/add/i1"},
			{From: "/top/b/out", To: "/top/add/i1"},
		},
	}

	result := Compile(model.Metadata{}, top)

	assert.Nil(t, result.Manifest)
	assert.NotEmpty(t, result.Errors)
}
