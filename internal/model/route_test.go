package model

import "testing"

import "github.com/stretchr/testify/assert"

func TestRouteIsSubRouteOf(t *testing.T) {
	cases := []struct {
		name string
		r    Route
		p    Route
		want bool
	}{
		{"exact match", "/top/add", "/top/add", true},
		{"proper sub-route", "/top/add/i1", "/top/add", true},
		{"unrelated", "/top/sub", "/top/add", false},
		{"prefix but different segment", "/top/add2", "/top/add", true}, // documented string-prefix behavior
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.r.IsSubRouteOf(tc.p))
		})
	}
}

func TestRouteJoin(t *testing.T) {
	assert.Equal(t, Route("/top"), Route("").Join("top"))
	assert.Equal(t, Route("/top/add"), Route("/top").Join("add"))
}

func TestRouteSplitIndex(t *testing.T) {
	parent, idx, ok := Route("/top/array/2").SplitIndex()
	assert.True(t, ok)
	assert.Equal(t, Route("/top/array"), parent)
	assert.Equal(t, 2, idx)

	_, _, ok = Route("/top/add").SplitIndex()
	assert.False(t, ok)
}

func TestIsValidName(t *testing.T) {
	assert.True(t, IsValidName("add"))
	assert.False(t, IsValidName(""))
	assert.False(t, IsValidName("42"))
}
