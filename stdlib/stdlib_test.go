package stdlib

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestAdd(t *testing.T) {
	out, runAgain, err := add(context.Background(), []json.RawMessage{raw(t, 2), raw(t, 3.5)})
	require.NoError(t, err)
	assert.True(t, runAgain)

	var sum float64
	require.NoError(t, json.Unmarshal(out, &sum))
	assert.Equal(t, 5.5, sum)
}

func TestAddWrongArity(t *testing.T) {
	_, _, err := add(context.Background(), []json.RawMessage{raw(t, 1)})
	assert.Error(t, err)
}

func TestToString(t *testing.T) {
	out, _, err := toString(context.Background(), []json.RawMessage{raw(t, 42)})
	require.NoError(t, err)

	var s string
	require.NoError(t, json.Unmarshal(out, &s))
	assert.Equal(t, "42", s)
}

func TestToJSONIsIdentity(t *testing.T) {
	in := raw(t, map[string]interface{}{"a": 1})
	out, runAgain, err := toJSON(context.Background(), []json.RawMessage{in})
	require.NoError(t, err)
	assert.True(t, runAgain)
	assert.JSONEq(t, string(in), string(out))
}

func TestRangeSplitEvenly(t *testing.T) {
	out, _, err := rangeSplit(context.Background(), []json.RawMessage{raw(t, 0), raw(t, 10), raw(t, 5)})
	require.NoError(t, err)

	var spans []struct{ Start, End int }
	require.NoError(t, json.Unmarshal(out, &spans))
	require.Len(t, spans, 5)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 10, spans[len(spans)-1].End)

	for i := 1; i < len(spans); i++ {
		assert.Equal(t, spans[i-1].End, spans[i].Start)
	}
}

func TestRangeSplitMoreChunksThanItems(t *testing.T) {
	out, _, err := rangeSplit(context.Background(), []json.RawMessage{raw(t, 0), raw(t, 3), raw(t, 10)})
	require.NoError(t, err)

	var spans []struct{ Start, End int }
	require.NoError(t, json.Unmarshal(out, &spans))
	assert.Len(t, spans, 3)
}

func TestRangeSplitEmptyRange(t *testing.T) {
	out, _, err := rangeSplit(context.Background(), []json.RawMessage{raw(t, 5), raw(t, 5), raw(t, 4)})
	require.NoError(t, err)

	var spans []struct{ Start, End int }
	require.NoError(t, json.Unmarshal(out, &spans))
	assert.Empty(t, spans)
}

func TestNativesKeyedByLibraryPath(t *testing.T) {
	n := Natives()
	for _, key := range []string{"stdlib/add", "stdlib/to_string", "stdlib/to_json", "stdlib/range_split"} {
		_, ok := n[key]
		assert.True(t, ok, "missing native %q", key)
	}
}
