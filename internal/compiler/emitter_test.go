package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/model"
)

func TestEmitProducesRuntimeFunctionsWithOutputConnections(t *testing.T) {
	functions := []*model.Function{
		{
			Route:   "/top/add",
			Outputs: []model.IO{{Name: "out", Route: "/top/add/out"}},
		},
		{
			Route:  "/top/mul",
			Inputs: []model.IO{{Name: "i1", Route: "/top/mul/i1"}},
		},
	}
	connections := []model.Connection{
		{From: "/top/add/out", To: "/top/mul/i1"},
	}

	manifest := Emit(model.Metadata{Name: "test"}, functions, connections, nil, nil)

	require.Len(t, manifest.Functions, 2)
	add := manifest.Functions[0]
	require.Len(t, add.OutputConns, 1)
	assert.Equal(t, 1, add.OutputConns[0].DestFunction)
	assert.Equal(t, 0, add.OutputConns[0].DestInput)
	assert.Equal(t, model.Route("/top/mul/i1"), add.OutputConns[0].DestRoute)

	mul := manifest.Functions[1]
	require.Len(t, mul.Inputs, 1)
	assert.Equal(t, 1, mul.Inputs[0].Capacity)
}

func TestEmitResolvesArrayIndexSubRoutedOutputConnection(t *testing.T) {
	functions := []*model.Function{
		{
			Route:   "/top/split",
			Outputs: []model.IO{{Name: "out", Route: "/top/split/out", Types: []model.DataType{"Array/Number"}}},
		},
		{
			Route:  "/top/first",
			Inputs: []model.IO{{Name: "i1", Route: "/top/first/i1", Types: []model.DataType{"Number"}}},
		},
	}
	// The connection is sourced from element 0 of "split"'s output, not the
	// whole output value (spec.md §3's array-index route selector).
	connections := []model.Connection{
		{From: "/top/split/out/0", To: "/top/first/i1"},
	}

	manifest := Emit(model.Metadata{Name: "test"}, functions, connections, nil, nil)

	split := manifest.Functions[0]
	require.Len(t, split.OutputConns, 1)
	oc := split.OutputConns[0]
	assert.Equal(t, "0", oc.Source.OutputPath)
	assert.False(t, oc.Source.IsInputCopy)
	assert.Equal(t, 1, oc.DestFunction)
	assert.Equal(t, 0, oc.DestInput)
	assert.Equal(t, model.Route("/top/first/i1"), oc.DestRoute)
}

func TestEmitSortsLibrariesForStableOutput(t *testing.T) {
	libs := map[model.LibraryRef]bool{"lib://b": true, "lib://a": true}
	manifest := Emit(model.Metadata{}, nil, nil, libs, nil)
	assert.Equal(t, []model.LibraryRef{"lib://a", "lib://b"}, manifest.Libraries)
}

func TestEmitUsesLibraryRefAsImplementationWhenPresent(t *testing.T) {
	functions := []*model.Function{
		{Route: "/top/print", Source: "print.json", LibraryRef: "context://stdio/print"},
	}
	manifest := Emit(model.Metadata{}, functions, nil, nil, nil)
	require.Len(t, manifest.Functions, 1)
	assert.Equal(t, "context://stdio/print", manifest.Functions[0].Implementation)
}
