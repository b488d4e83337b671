package runtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/model"
)

func TestCoerceArraySerializesOneElementPerDelivery(t *testing.T) {
	values, err := coerce(json.RawMessage(`[1,2,3]`), model.DataType("Array/Number"), model.TypeNumber)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.JSONEq(t, "1", string(values[0]))
	assert.JSONEq(t, "2", string(values[1]))
	assert.JSONEq(t, "3", string(values[2]))
}

func TestCoerceWrapsScalarIntoSingleElementArray(t *testing.T) {
	values, err := coerce(json.RawMessage(`5`), model.TypeNumber, model.DataType("Array/Number"))
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.JSONEq(t, "[5]", string(values[0]))
}

func TestCoercePassesThroughWhenOrdersMatch(t *testing.T) {
	values, err := coerce(json.RawMessage(`"hi"`), model.TypeString, model.TypeString)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.JSONEq(t, `"hi"`, string(values[0]))
}

func TestCoerceTreatsGenericValueAsPassthrough(t *testing.T) {
	values, err := coerce(json.RawMessage(`[1,2]`), model.DataType("Array/Number"), model.TypeValue)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.JSONEq(t, "[1,2]", string(values[0]))
}

func TestCoerceArraySerializeRejectsNonArrayValue(t *testing.T) {
	_, err := coerce(json.RawMessage(`5`), model.DataType("Array/Number"), model.TypeNumber)
	assert.Error(t, err)
}

func TestSelectValueCopiesInputWhenRequested(t *testing.T) {
	job := &model.Job{Inputs: []json.RawMessage{json.RawMessage(`"a"`), json.RawMessage(`"b"`)}}
	raw, err := selectValue(model.SourceSelector{IsInputCopy: true, CopyInputIndex: 1}, job)
	require.NoError(t, err)
	assert.JSONEq(t, `"b"`, string(raw))
}

func TestSelectValueResolvesOutputSubPath(t *testing.T) {
	job := &model.Job{Output: json.RawMessage(`{"count": 3, "label": "x"}`)}
	raw, err := selectValue(model.SourceSelector{OutputPath: "count"}, job)
	require.NoError(t, err)
	assert.JSONEq(t, "3", string(raw))
}

func TestSelectValueWholeOutputWhenNoSubPath(t *testing.T) {
	job := &model.Job{Output: json.RawMessage(`{"a":1}`)}
	raw, err := selectValue(model.SourceSelector{}, job)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestApplyResultDropsOutputOnJobError(t *testing.T) {
	s := New(twoStageManifest())
	job := s.BuildJob(0)
	job.Err = assertErr{}

	touched := s.ApplyResult(job)
	assert.Empty(t, touched, "a failed job must not deliver any output")
	assert.Empty(t, s.ReadyFunctionIDs(), "sink should not become ready off a failed source job")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestApplyResultHonorsRunAgainByStayingReady(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{
				ID: 0,
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitAlways, Value: rawNum(0)}},
				},
			},
		},
	}
	s := New(manifest)
	job := s.BuildJob(0)
	job.RunAgain = true

	s.ApplyResult(job)
	assert.Contains(t, s.ReadyFunctionIDs(), 0)
}
