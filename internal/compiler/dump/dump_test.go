package dump

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/model"
)

func TestBuildDiffsConsecutiveStages(t *testing.T) {
	before := Stage{
		Name:        "gathered",
		Connections: []model.Connection{{From: "/top/a", To: "/top/b", EndsAtFlow: true}},
	}
	after := Stage{
		Name:        "collapsed",
		Connections: []model.Connection{{From: "/top/a", To: "/top/c"}},
	}

	d, err := Build(before, after)
	require.NoError(t, err)
	require.Len(t, d.Diffs, 1)
	assert.Equal(t, "gathered", d.Diffs[0].From)
	assert.Equal(t, "collapsed", d.Diffs[0].To)
	assert.NotEmpty(t, d.Diffs[0].Patch)
}

func TestBuildWithSingleStageProducesNoDiffs(t *testing.T) {
	d, err := Build(Stage{Name: "only"})
	require.NoError(t, err)
	assert.Empty(t, d.Diffs)
}

func TestDumpJSON(t *testing.T) {
	d, err := Build(Stage{Name: "a"}, Stage{Name: "b"})
	require.NoError(t, err)
	out, err := d.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"stages"`)
}
