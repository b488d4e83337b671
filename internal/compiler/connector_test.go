package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowforge/flowcore/internal/model"
)

func TestCollapseRewritesBoundaryChain(t *testing.T) {
	in := []model.Connection{
		{From: "/top/add/out", To: "/top/sub/in", StartsAtFlow: false, EndsAtFlow: true},
		{From: "/top/sub/in", To: "/top/sub/mul/i1", StartsAtFlow: true, EndsAtFlow: false},
	}

	out := Collapse(in)

	assert.Equal(t, []model.Connection{
		{From: "/top/add/out", To: "/top/sub/mul/i1"},
	}, out)
}

func TestCollapseDropsDanglingBoundaryConnection(t *testing.T) {
	in := []model.Connection{
		{From: "/top/add/out", To: "/top/sub/in", EndsAtFlow: true},
	}
	out := Collapse(in)
	assert.Empty(t, out)
}

func TestCollapseLeavesLeafConnectionsUntouched(t *testing.T) {
	in := []model.Connection{
		{From: "/top/add/out", To: "/top/mul/i1"},
	}
	out := Collapse(in)
	assert.Equal(t, in, out)
}

func TestCollapseIsIdempotent(t *testing.T) {
	in := []model.Connection{
		{From: "/top/add/out", To: "/top/sub/in", EndsAtFlow: true},
		{From: "/top/sub/in", To: "/top/sub/mul/i1", StartsAtFlow: true},
	}
	once := Collapse(in)
	twice := Collapse(once)
	assert.Equal(t, once, twice)
}

func TestRemoveDuplicatesKeepsOneConnectionPerPair(t *testing.T) {
	in := []model.Connection{
		{From: "/top/a", To: "/top/b"},
		{From: "/top/a", To: "/top/b"},
		{From: "/top/a", To: "/top/c"},
	}
	out := RemoveDuplicates(in)
	assert.Len(t, out, 2)
}
