package runtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/model"
)

func rawNum(n int) json.RawMessage {
	b, err := json.Marshal(n)
	if err != nil {
		panic(err)
	}
	return b
}

// twoStageManifest builds a manifest with one source function (one
// once-initialized input, one output) feeding one sink function (one input,
// capacity 1), connected
// source.out -> sink.in. Useful as the smallest hello-world-shaped graph.
func twoStageManifest() *model.Manifest {
	return &model.Manifest{
		Metadata: model.Metadata{Name: "two-stage"},
		Functions: []model.RuntimeFunction{
			{
				ID:     0,
				FlowID: 0,
				Route:  "/top/source",
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitOnce, Value: rawNum(1)}},
				},
				OutputConns: []model.OutputConnection{
					{Source: model.SourceSelector{}, SourceType: model.TypeString, DestType: model.TypeString, DestFunction: 1, DestInput: 0},
				},
				Impure: true,
			},
			{
				ID:     1,
				FlowID: 0,
				Route:  "/top/sink",
				Inputs: []model.RuntimeInput{{Capacity: 1}},
				Impure: true,
			},
		},
	}
}

func TestNewPushesOnceInitializerWithoutMarkingRefill(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{
				ID: 0,
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitOnce, Value: rawNum(7)}},
				},
			},
		},
	}

	s := New(manifest)
	require.Len(t, s.ReadyFunctionIDs(), 1)
	assert.Equal(t, 0, s.ReadyFunctionIDs()[0])

	job := s.BuildJob(0)
	assert.JSONEq(t, "7", string(job.Inputs[0]))

	// Once-initialized input is now empty and unfed: not ready again.
	assert.Empty(t, s.ReadyFunctionIDs())
}

func TestNewRefillsAlwaysInitializerEveryTake(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{
				ID: 0,
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitAlways, Value: rawNum(42)}},
				},
			},
		},
	}

	s := New(manifest)
	require.Len(t, s.ReadyFunctionIDs(), 1)

	for i := 0; i < 3; i++ {
		job := s.BuildJob(0)
		assert.JSONEq(t, "42", string(job.Inputs[0]))
		s.ApplyResult(&model.Job{FunctionID: 0, RunAgain: true})
		require.Len(t, s.ReadyFunctionIDs(), 1, "an always-initialized function must keep firing as long as it reports run_again")
	}

	s.BuildJob(0)
	s.ApplyResult(&model.Job{FunctionID: 0, RunAgain: false})
	assert.Empty(t, s.ReadyFunctionIDs(), "without run_again, a self-triggering function must not fire again even though its constant input is still full")
}

func TestOnceTriggeredSourceIsReadyImmediately(t *testing.T) {
	s := New(twoStageManifest())
	ids := s.ReadyFunctionIDs()
	require.Len(t, ids, 1)
	assert.Equal(t, 0, ids[0])
}

func TestIdleGoesTrueOnlyAfterTheWholeChainDrains(t *testing.T) {
	s := New(twoStageManifest())
	job := s.BuildJob(0)
	assert.False(t, s.Idle(), "a dispatched job with nothing else ready must not report idle")

	job.Output = rawNum(1)
	s.ApplyResult(job)
	assert.False(t, s.Idle(), "completing source delivers into sink's input, which becomes newly ready")
	require.Contains(t, s.ReadyFunctionIDs(), 1)

	sinkJob := s.BuildJob(1)
	assert.False(t, s.Idle())
	s.ApplyResult(sinkJob)
	assert.True(t, s.Idle(), "sink has no outputs and nothing is in flight once it completes")
}
