package runtime

import (
	"encoding/json"
	"sync/atomic"

	"github.com/flowforge/flowcore/internal/model"
)

// BuildJob takes one value from each of functionID's input buffers (or
// re-reads the constant for an always-initialized one), assigns the next
// job id, and copies the function's output-connection list so the
// scheduler can route the result without re-reading run-state. The
// function is marked Running and its active-job count incremented.
//
// Draining an input may make room for a value that was previously queued
// behind a block; BuildJob resolves those immediately (spec.md §4.K step
// 2's "re-examine blocks" applies as soon as the input empties, which is
// here, not only after the job completes).
func (s *State) BuildJob(functionID int) *model.Job {
	fn := &s.Manifest.Functions[functionID]
	fs := s.functions[functionID]

	inputs := make([]json.RawMessage, len(fs.buffers))
	for i, buf := range fs.buffers {
		inputs[i] = buf.take()
		s.resolveBlocks(functionID, i)
	}

	fs.flag = Running
	fs.activeJobs++

	s.jobsCreated++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}

	job := &model.Job{
		ID:             atomic.AddUint64(&s.nextJobID, 1) - 1,
		FunctionID:     functionID,
		FlowID:         fn.FlowID,
		Inputs:         inputs,
		Destinations:   append([]model.OutputConnection(nil), fn.OutputConns...),
		Implementation: fn.Implementation,
	}
	return job
}

// resolveBlocks drains pending deliveries queued against (functionID,
// inputIndex) now that a slot opened up, pushing them into the buffer and
// releasing the functions they were blocking.
func (s *State) resolveBlocks(functionID, inputIndex int) {
	key := blockKey{functionID, inputIndex}
	pending := s.blocks[key]
	buf := s.functions[functionID].buffers[inputIndex]

	i := 0
	for i < len(pending) && !buf.full() {
		d := pending[i]
		buf.push(d.Value)
		s.releaseBlock(d.BlockedFunctionID)
		i++
	}
	if i == len(pending) {
		delete(s.blocks, key)
	} else {
		s.blocks[key] = pending[i:]
	}

	if !buf.empty() || fnReady(s.functions[functionID]) {
		s.recomputeReadiness(functionID)
	}
}

func (s *State) releaseBlock(functionID int) {
	fs := s.functions[functionID]
	if fs.blockCount > 0 {
		fs.blockCount--
	}
	if fs.blockCount == 0 && fs.flag == Blocked {
		// A self-triggering function re-arms only if its last firing
		// returned run_again, the same gate ApplyResult applies.
		if selfTriggering(fs) && !fs.runAgain {
			fs.flag = Waiting
			return
		}
		s.recomputeReadiness(functionID)
	}
}

func fnReady(fs *functionState) bool { return fs.ready() }

// recomputeReadiness sets functionID's flag to Ready if every input is
// full and it carries no outstanding block, Waiting otherwise. A function
// with a job still in flight (activeJobs > 0) is left untouched — readiness
// is only meaningful for functions not currently dispatched. This is keyed
// on activeJobs rather than the Running flag itself so that ApplyResult's
// own completion path (which has already decremented activeJobs to 0 but
// hasn't yet cleared the Running flag) can use this to transition the
// function back out of Running.
func (s *State) recomputeReadiness(functionID int) {
	fs := s.functions[functionID]
	if fs.activeJobs > 0 {
		return
	}
	if fs.ready() {
		fs.flag = Ready
	} else if fs.flag != Blocked || fs.blockCount == 0 {
		fs.flag = Waiting
	}
}
