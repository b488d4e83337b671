package runtime

import (
	"context"
	"fmt"

	"github.com/flowforge/flowcore/internal/model"
)

// Events is the coordinator's callback interface toward the hosting
// submission (spec.md §4.M): flow_starting/should_enter_debugger/flow_ended
// plus a best-effort per-job error notice. Implementations must return
// promptly — they're invoked from the single coordinator goroutine and block
// the scheduler loop while running.
type Events interface {
	FlowStarting()
	// ShouldEnterDebugger is polled at the start of each dispatch round;
	// returning true skips that round, so no new job is dispatched. The
	// coordinator then waits for the next completion (or cancellation) and
	// polls again; with no job in flight it waits until ctx is cancelled.
	// There is no separate resume call.
	ShouldEnterDebugger() bool
	JobErrored(job *model.Job)
	FlowEnded(metrics Metrics)
}

// NopEvents is a zero-effort Events implementation; NewCoordinator uses it
// when given nil events.
type NopEvents struct{}

func (NopEvents) FlowStarting()             {}
func (NopEvents) ShouldEnterDebugger() bool { return false }
func (NopEvents) JobErrored(*model.Job)     {}
func (NopEvents) FlowEnded(Metrics)         {}

// Coordinator drives one submission's run-state to completion: the single
// mutator goroutine described in spec.md §4.K. It owns no workers of its
// own; it only pushes jobs onto Dispatch and reads results off Completion,
// so any worker pool that speaks *model.Job can sit on the other end.
type Coordinator struct {
	State       *State
	Dispatch    chan<- *model.Job
	Completion  <-chan *model.Job
	Concurrency int
	Events      Events
}

// NewCoordinator wires run-state built from manifest to the given dispatch
// and completion channels. concurrency <= 0 means unlimited (bounded only by
// how many functions are simultaneously ready).
func NewCoordinator(manifest *model.Manifest, dispatch chan<- *model.Job, completion <-chan *model.Job, concurrency int, events Events) *Coordinator {
	if events == nil {
		events = NopEvents{}
	}
	return &Coordinator{
		State:       New(manifest),
		Dispatch:    dispatch,
		Completion:  completion,
		Concurrency: concurrency,
		Events:      events,
	}
}

// Run executes the main loop of spec.md §4.K to termination, cancellation,
// or the Completion channel closing early. It returns nil on normal
// termination (the flow went Idle), ctx.Err() if the context was cancelled
// first, or an error if Completion closes while jobs are still outstanding.
// In-flight jobs at cancellation time are not waited for; their completions,
// if they arrive later on Completion, are simply never read.
func (c *Coordinator) Run(ctx context.Context) error {
	c.Events.FlowStarting()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if c.State.Idle() {
			c.Events.FlowEnded(c.State.Metrics())
			return nil
		}

		if c.dispatchRound(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-c.Completion:
			if !ok {
				return fmt.Errorf("runtime: completion channel closed with jobs still outstanding")
			}
			c.applyCompletion(job)
		}
	}
}

// dispatchRound pops every currently ready function (up to the concurrency
// limit) and sends a job for each. It returns true if at least one job was
// dispatched, so the caller can re-check readiness before blocking on a
// completion.
func (c *Coordinator) dispatchRound(ctx context.Context) bool {
	if c.Events.ShouldEnterDebugger() {
		return false
	}

	dispatched := false
	for {
		if c.Concurrency > 0 && c.State.InFlight() >= c.Concurrency {
			return dispatched
		}
		ids := c.State.ReadyFunctionIDs()
		if len(ids) == 0 {
			return dispatched
		}
		job := c.State.BuildJob(ids[0])

		select {
		case c.Dispatch <- job:
			dispatched = true
		case <-ctx.Done():
			return dispatched
		}
	}
}

// applyCompletion routes a finished job's output and reports errors to
// Events without tearing down the coordinator (spec.md §7: job errors are
// events, not fatal).
func (c *Coordinator) applyCompletion(job *model.Job) {
	if job.Err != nil {
		c.Events.JobErrored(job)
	}
	c.State.ApplyResult(job)
}
