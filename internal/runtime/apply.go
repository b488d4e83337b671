package runtime

import (
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowcore/internal/model"
)

// ApplyResult is called by the coordinator once a job returns from a
// worker. It routes the output along every destination the job carried,
// coercing values per spec.md §4.K, and updates the firing function's
// readiness. It returns the set of destination function ids that may have
// become newly eligible, so the coordinator doesn't have to rescan every
// function after every completion.
func (s *State) ApplyResult(job *model.Job) []int {
	s.jobsCompleted++
	s.inFlight--
	if s.inFlight < 0 {
		s.inFlight = 0
	}

	fs := s.functions[job.FunctionID]
	fs.activeJobs--
	if fs.activeJobs < 0 {
		fs.activeJobs = 0
	}
	fs.runAgain = job.Err == nil && job.RunAgain

	var touched []int
	if job.Err == nil {
		for _, dest := range job.Destinations {
			raw, err := selectValue(dest.Source, job)
			if err != nil {
				// A malformed selector is a compile-time bug that slipped
				// past the checker; surface it as a dropped delivery
				// rather than crash the coordinator.
				continue
			}
			values, err := coerce(raw, dest.SourceType, dest.DestType)
			if err != nil {
				continue
			}
			for _, v := range values {
				if s.deliver(dest.DestFunction, dest.DestInput, job.FunctionID, job.FlowID, v) {
					touched = append(touched, dest.DestFunction)
				}
			}
		}
	}

	if fs.activeJobs == 0 {
		switch {
		case fs.blockCount > 0:
			fs.flag = Blocked
		case selfTriggering(fs):
			// Every input is either absent or constant-initialized, so
			// ready() is vacuously true again the instant it's consumed —
			// nothing external will ever make this function ready, it can
			// only ever re-arm itself. Per spec.md §4.K step 2, that re-arm
			// is gated on run_again: without it the function fires at most
			// once (§8's single-impure-function scenario), exactly as if
			// it had never become ready again.
			if job.Err == nil && job.RunAgain {
				fs.flag = Ready
			} else {
				fs.flag = Waiting
			}
		default:
			s.recomputeReadiness(job.FunctionID)
		}
	}

	return touched
}

// selfTriggering reports whether every one of fs's inputs is constant
// (always) initialized, or it has none at all — meaning its own readiness
// never depends on an external delivery and is only ever re-armed by its
// own run_again return value.
func selfTriggering(fs *functionState) bool {
	for _, b := range fs.buffers {
		if b.constant == nil {
			return false
		}
	}
	return true
}

// selectValue resolves one output connection's source selector against a
// completed job's output (or one of its own inputs, for pass-through
// connections).
func selectValue(sel model.SourceSelector, job *model.Job) (json.RawMessage, error) {
	var raw json.RawMessage
	if sel.IsInputCopy {
		if sel.CopyInputIndex < 0 || sel.CopyInputIndex >= len(job.Inputs) {
			return nil, fmt.Errorf("copy-input index %d out of range", sel.CopyInputIndex)
		}
		raw = job.Inputs[sel.CopyInputIndex]
	} else {
		raw = job.Output
		if sel.OutputPath != "" {
			sub, err := subPath(raw, sel.OutputPath)
			if err != nil {
				return nil, err
			}
			raw = sub
		}
	}
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return raw, nil
}

// coerce applies the send-time coercions of spec.md §4.K: if from is one
// array order deeper than to, the value must be a JSON array and is
// serialized into one delivery per element (in array order); if to is one
// order deeper than from, the value is wrapped in a single-element array.
// Either side being generic (Value), or equal orders, passes the value
// through unchanged.
func coerce(raw json.RawMessage, from, to model.DataType) ([]json.RawMessage, error) {
	if from == "" || to == "" || from == model.TypeValue || to == model.TypeValue {
		return []json.RawMessage{raw}, nil
	}

	fromOrder, _ := from.ArrayOrder()
	toOrder, _ := to.ArrayOrder()

	switch {
	case fromOrder == toOrder:
		return []json.RawMessage{raw}, nil

	case fromOrder == toOrder+1:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return nil, fmt.Errorf("array-serialize: %w", err)
		}
		return elems, nil

	case toOrder == fromOrder+1:
		wrapped, err := json.Marshal([]json.RawMessage{raw})
		if err != nil {
			return nil, err
		}
		return []json.RawMessage{wrapped}, nil

	default:
		return []json.RawMessage{raw}, nil
	}
}

// subPath extracts a dotted JSON sub-path from a raw JSON value.
func subPath(raw json.RawMessage, path string) (json.RawMessage, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("sub-path %q requested on non-object value", path)
	}
	field, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("sub-path %q not present in output", path)
	}
	return json.Marshal(field)
}

// deliver pushes an already-coerced value to destFunctionID's
// destInputIndex. If that input is full the delivery is queued as a
// pending block and the source function is marked Blocked (spec.md §4.K
// scenario 5). Returns true if the value was actually pushed.
func (s *State) deliver(destFunctionID, destInputIndex, srcFunctionID, srcFlowID int, value json.RawMessage) bool {
	destFS := s.functions[destFunctionID]
	buf := destFS.buffers[destInputIndex]

	if buf.full() {
		key := blockKey{destFunctionID, destInputIndex}
		s.blocks[key] = append(s.blocks[key], pendingDelivery{
			Block: model.Block{
				BlockingFlowID:     s.Manifest.Functions[destFunctionID].FlowID,
				BlockingFunctionID: destFunctionID,
				BlockingInputIndex: destInputIndex,
				BlockedFunctionID:  srcFunctionID,
				BlockedFlowID:      srcFlowID,
			},
			Value: value,
		})
		srcFS := s.functions[srcFunctionID]
		srcFS.blockCount++
		srcFS.flag = Blocked
		return false
	}

	buf.push(value)
	s.recomputeReadiness(destFunctionID)
	return true
}
