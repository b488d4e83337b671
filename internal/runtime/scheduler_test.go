package runtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/model"
	"github.com/flowforge/flowcore/internal/resolver"
	"github.com/flowforge/flowcore/internal/workerpool"
)

// runToCompletion wires a Coordinator over an in-process workerpool.Pool and
// blocks until the flow goes idle, returning the events recorded and the
// final state for assertions.
func runToCompletion(t *testing.T, manifest *model.Manifest, registry map[int]resolver.Implementation) (*recordingEvents, *State) {
	t.Helper()

	dispatch := make(chan *model.Job, 16)
	completion := make(chan *model.Job, 16)

	pool := workerpool.New(dispatch, completion, registry, 2, 0)
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	go pool.Run(poolCtx)

	events := &recordingEvents{}
	coord := NewCoordinator(manifest, dispatch, completion, 0, events)

	runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := coord.Run(runCtx)
	require.NoError(t, err)

	return events, coord.State
}

type recordingEvents struct {
	started bool
	errored []*model.Job
	ended   *Metrics
}

func (r *recordingEvents) FlowStarting()             { r.started = true }
func (r *recordingEvents) ShouldEnterDebugger() bool  { return false }
func (r *recordingEvents) JobErrored(job *model.Job)  { r.errored = append(r.errored, job) }
func (r *recordingEvents) FlowEnded(m Metrics)        { cp := m; r.ended = &cp }

// TestCoordinatorRunsHelloWorldToCompletion exercises spec.md §8's smallest
// scenario: one impure function, fed a once-initializer, prints and halts.
func TestCoordinatorRunsHelloWorldToCompletion(t *testing.T) {
	var captured json.RawMessage

	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{
				ID: 0,
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitOnce, Value: json.RawMessage(`"hello"`)}},
				},
				Impure: true,
			},
		},
	}
	registry := map[int]resolver.Implementation{
		0: resolver.NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
			captured = inputs[0]
			return nil, false, nil
		}),
	}

	events, state := runToCompletion(t, manifest, registry)

	assert.True(t, events.started)
	require.NotNil(t, events.ended)
	assert.Equal(t, uint64(1), events.ended.JobsCreated)
	assert.Equal(t, uint64(1), events.ended.JobsCompleted)
	assert.JSONEq(t, `"hello"`, string(captured))
	assert.True(t, state.Idle())
}

// TestCoordinatorDrainsABlockedProducerConsumerChain exercises the
// backpressure/release scenario end to end: an always-refilled counter that
// stops returning RunAgain after its fifth firing feeds a capacity-1 sink,
// and the whole chain must still drain to idle.
func TestCoordinatorDrainsABlockedProducerConsumerChain(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{
				ID: 0,
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitAlways, Value: rawNum(1)}},
				},
				OutputConns: []model.OutputConnection{
					{SourceType: model.TypeNumber, DestType: model.TypeNumber, DestFunction: 1, DestInput: 0},
				},
				Impure: true,
			},
			{
				ID:     1,
				Inputs: []model.RuntimeInput{{Capacity: 1}},
				Impure: true,
			},
		},
	}

	var produced int
	var consumed int
	registry := map[int]resolver.Implementation{
		0: resolver.NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
			produced++
			runAgain := produced < 5
			return rawNum(produced), runAgain, nil
		}),
		1: resolver.NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
			consumed++
			return nil, false, nil
		}),
	}

	events, state := runToCompletion(t, manifest, registry)

	assert.Equal(t, 5, produced)
	assert.Equal(t, 5, consumed)
	require.NotNil(t, events.ended)
	assert.True(t, state.Idle())
}

// TestCoordinatorReportsJobErrorsWithoutHaltingTheFlow exercises spec.md §7:
// a failing job is surfaced via JobErrored but does not stop the run.
func TestCoordinatorReportsJobErrorsWithoutHaltingTheFlow(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{
				ID: 0,
				Inputs: []model.RuntimeInput{
					{Capacity: 1, Initializer: &model.Initializer{Kind: model.InitOnce, Value: rawNum(1)}},
				},
				Impure: true,
			},
		},
	}
	registry := map[int]resolver.Implementation{
		0: resolver.NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
			return nil, false, assertErr{}
		}),
	}

	events, state := runToCompletion(t, manifest, registry)

	require.Len(t, events.errored, 1)
	assert.True(t, state.Idle())
}
