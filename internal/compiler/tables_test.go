package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/flowcore/internal/model"
)

func TestIndexAssignsDenseIDsAndTables(t *testing.T) {
	functions := []*model.Function{
		{Route: "/top/add", Outputs: []model.IO{{Name: "out", Route: "/top/add/out"}}},
		{Route: "/top/mul", Inputs: []model.IO{{Name: "i1", Route: "/top/mul/i1"}}},
	}

	flowIDs := map[model.Route]int{"/top": 0}
	tables := Index(functions, flowIDs)

	assert.Equal(t, 0, tables.IDByRoute["/top/add"])
	assert.Equal(t, 1, tables.IDByRoute["/top/mul"])

	src, ok := tables.Sources["/top/add/out"]
	assert.True(t, ok)
	assert.Equal(t, SourceOutput, src.Kind)
	assert.Equal(t, 0, src.FunctionID)

	dst, ok := tables.Destinations["/top/mul/i1"]
	assert.True(t, ok)
	assert.Equal(t, 1, dst.FunctionID)
	assert.Equal(t, 0, dst.InputIndex)
	assert.Equal(t, 0, dst.FlowID)
}
