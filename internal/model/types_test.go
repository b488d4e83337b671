package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializerRoundTrip(t *testing.T) {
	raw := []byte(`{"once": 42}`)
	var init Initializer
	require.NoError(t, json.Unmarshal(raw, &init))
	assert.Equal(t, InitOnce, init.Kind)
	assert.JSONEq(t, "42", string(init.Value))

	out, err := json.Marshal(init)
	require.NoError(t, err)
	assert.JSONEq(t, `{"once": 42}`, string(out))
}

func TestInitializerAlways(t *testing.T) {
	var init Initializer
	require.NoError(t, json.Unmarshal([]byte(`{"always": "x"}`), &init))
	assert.Equal(t, InitAlways, init.Kind)
}

func TestInitializerMissingKey(t *testing.T) {
	var init Initializer
	err := json.Unmarshal([]byte(`{"sometimes": 1}`), &init)
	assert.Error(t, err)
}

func TestIOUnmarshalBareStringType(t *testing.T) {
	var io IO
	require.NoError(t, json.Unmarshal([]byte(`{"name": "i1", "type": "Number"}`), &io))
	assert.Equal(t, []DataType{TypeNumber}, io.Types)
}

func TestIOUnmarshalArrayType(t *testing.T) {
	var io IO
	require.NoError(t, json.Unmarshal([]byte(`{"name": "i1", "type": ["Number", "String"]}`), &io))
	assert.Equal(t, []DataType{TypeNumber, TypeString}, io.Types)
}

func TestIOMarshalSingleTypeIsBareString(t *testing.T) {
	io := IO{Name: "i1", Types: []DataType{TypeNumber}}
	out, err := json.Marshal(io)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "i1", "type": "Number"}`, string(out))
}

func TestIOMarshalMultipleTypesIsArray(t *testing.T) {
	io := IO{Name: "i1", Types: []DataType{TypeNumber, TypeString}}
	out, err := json.Marshal(io)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "i1", "type": ["Number", "String"]}`, string(out))
}

func TestIOAcceptsType(t *testing.T) {
	io := IO{Types: []DataType{TypeNumber, TypeString}}
	assert.True(t, io.AcceptsType(TypeNumber))
	assert.True(t, io.AcceptsType(TypeString))
	assert.False(t, io.AcceptsType(TypeBool))

	any := IO{Types: []DataType{TypeValue}}
	assert.True(t, any.AcceptsType(TypeBool))
}

func TestFlowAddLibRef(t *testing.T) {
	var f Flow
	f.AddLibRef("lib://math/add")
	assert.True(t, f.LibRefs["lib://math/add"])
}
