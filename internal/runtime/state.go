// Package runtime holds the scheduler's mutable run-state: per-function
// input buffers, readiness flags, the pending-block set and the job/flow
// bookkeeping counters (spec component J), plus the coordinator loop that
// mutates it (component K).
package runtime

import (
	"encoding/json"
	"sync/atomic"

	"github.com/flowforge/flowcore/internal/model"
)

// Flag is a function's current scheduling state.
type Flag int

const (
	// Waiting means the function is not ready to fire (some input is not
	// yet full) and is not blocked.
	Waiting Flag = iota
	// Ready means every input is full (or constantly initialized) and the
	// function is not the blocked side of any block.
	Ready
	// Blocked means the function fired and at least one of its output
	// deliveries could not be made because the destination input was
	// full; it will not be marked Ready again until every such delivery
	// drains.
	Blocked
	// Running means a job for this function is currently dispatched to a
	// worker.
	Running
)

func (f Flag) String() string {
	switch f {
	case Ready:
		return "Ready"
	case Blocked:
		return "Blocked"
	case Running:
		return "Running"
	default:
		return "Waiting"
	}
}

// inputBuffer is a bounded FIFO for one input slot.
type inputBuffer struct {
	capacity int
	values   []json.RawMessage

	// constant holds the value of an "always" initializer, re-pushed
	// after every firing; nil if this input has no constant initializer.
	constant json.RawMessage
}

func newInputBuffer(capacity int) *inputBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &inputBuffer{capacity: capacity}
}

func (b *inputBuffer) full() bool {
	return len(b.values) >= b.capacity
}

func (b *inputBuffer) empty() bool {
	return len(b.values) == 0
}

func (b *inputBuffer) push(v json.RawMessage) bool {
	if b.full() {
		return false
	}
	b.values = append(b.values, v)
	return true
}

// take pops the oldest value. If the buffer carries a constant
// initializer, the value is never actually removed from "capacity" terms —
// it's immediately refilled, matching spec.md §9's "always" semantics.
func (b *inputBuffer) take() json.RawMessage {
	v := b.values[0]
	b.values = b.values[1:]
	if b.constant != nil {
		b.values = append(b.values, b.constant)
	}
	return v
}

// functionState is the per-function slice of run-state: its input buffers,
// its scheduling flag, the count of jobs currently in flight for it (0 or 1:
// a Running function is never marked Ready), whether its last firing asked
// to run again, and the count of
// outstanding blocks naming it as the blocked side.
type functionState struct {
	buffers     []*inputBuffer
	flag        Flag
	activeJobs  int
	runAgain    bool
	blockCount  int
}

func (s *functionState) ready() bool {
	if s.blockCount > 0 {
		return false
	}
	for _, b := range s.buffers {
		if b.empty() || (b.constant == nil && !b.full()) {
			return false
		}
	}
	return true
}

// blockKey identifies the (function, input) pair a delivery is blocked on.
type blockKey struct {
	functionID int
	inputIndex int
}

// pendingDelivery is a value that couldn't be delivered because its
// destination input was full, queued to retry once that input drains.
type pendingDelivery struct {
	model.Block
	Value json.RawMessage
}

// State is the scheduler's full run-state for one submission: built fresh
// from a manifest, mutated only by the coordinator goroutine, and discarded
// at flow end.
type State struct {
	Manifest *model.Manifest

	functions []*functionState
	blocks    map[blockKey][]pendingDelivery

	nextJobID     uint64
	jobsCompleted uint64
	jobsCreated   uint64
	maxInFlight   int
	inFlight      int

	flowActive map[int]int
}

// New builds run-state from a compiled manifest: input buffers sized to
// declared capacity, once-initializers pushed immediately, always-
// initializers pushed and marked for refill, and initial readiness
// computed.
func New(manifest *model.Manifest) *State {
	s := &State{
		Manifest:   manifest,
		functions:  make([]*functionState, len(manifest.Functions)),
		blocks:     make(map[blockKey][]pendingDelivery),
		flowActive: make(map[int]int),
	}

	for id, fn := range manifest.Functions {
		fs := &functionState{buffers: make([]*inputBuffer, len(fn.Inputs))}
		for i, in := range fn.Inputs {
			buf := newInputBuffer(in.Capacity)
			if in.Initializer != nil {
				switch in.Initializer.Kind {
				case model.InitOnce:
					buf.push(in.Initializer.Value)
				case model.InitAlways:
					buf.constant = in.Initializer.Value
					buf.push(in.Initializer.Value)
				}
			}
			fs.buffers[i] = buf
		}
		s.functions[id] = fs
		if fs.ready() {
			fs.flag = Ready
		}
		s.flowActive[fn.FlowID]++
	}

	return s
}

// ReadyFunctionIDs returns the ids of every Ready function, in ascending
// order, so the scheduler can tie-break deterministically by lowest id.
func (s *State) ReadyFunctionIDs() []int {
	var ids []int
	for id, fs := range s.functions {
		if fs.flag == Ready {
			ids = append(ids, id)
		}
	}
	return ids
}

// InFlight reports the number of jobs currently dispatched to workers.
func (s *State) InFlight() int {
	return s.inFlight
}

// Idle reports whether the flow has reached termination: no ready
// function, nothing dispatched, and no function waiting on a drainable
// block.
func (s *State) Idle() bool {
	return s.inFlight == 0 && len(s.ReadyFunctionIDs()) == 0
}

// Metrics summarizes the run for the FlowEnd event.
type Metrics struct {
	JobsCreated   uint64 `json:"jobs_created"`
	JobsCompleted uint64 `json:"jobs_completed"`
	MaxInFlight   int    `json:"max_in_flight"`
}

// Metrics snapshots the counters gathered so far.
func (s *State) Metrics() Metrics {
	return Metrics{
		JobsCreated:   atomic.LoadUint64(&s.jobsCreated),
		JobsCompleted: atomic.LoadUint64(&s.jobsCompleted),
		MaxInFlight:   s.maxInFlight,
	}
}
