package model

import (
	"encoding/json"

	"github.com/flowforge/flowcore/common/metrics"
)

// SourceSelector chooses what value to send along an output connection:
// either a JSON sub-path of the function's output, or a copy of one of its
// own inputs (for functions that pass a value through unmodified).
type SourceSelector struct {
	// OutputPath is a JSON sub-path into the function's output value, ""
	// meaning the whole output. Mutually exclusive with CopyInputIndex.
	OutputPath string `json:"output_path,omitempty"`
	// CopyInputIndex selects the function's Nth input value instead of its
	// output; it is only consulted when IsInputCopy is set.
	CopyInputIndex int `json:"copy_input_index,omitempty"`
	IsInputCopy    bool `json:"is_input_copy,omitempty"`
}

// OutputConnection is a fully resolved destination for one of a runtime
// function's output sub-paths. SourceType/DestType are the connection's
// declared types, carried through so the scheduler can decide the §4.K
// send-time coercion (array-serialize / wrap-as-array) without re-walking
// the definition tree.
type OutputConnection struct {
	Source       SourceSelector `json:"source"`
	SourceType   DataType       `json:"source_type,omitempty"`
	DestType     DataType       `json:"dest_type,omitempty"`
	DestFunction int            `json:"dest_function"`
	DestInput    int            `json:"dest_input"`
	DestFlowID   int            `json:"dest_flow_id"`
	DestRoute    Route          `json:"dest_route"`
}

// RuntimeInput is a compiled input slot: its declared capacity (default 1)
// and optional initializer.
type RuntimeInput struct {
	Capacity    int          `json:"capacity"`
	Initializer *Initializer `json:"initializer,omitempty"`
}

// RuntimeFunction is the compiled form of a function, as it lives in the
// manifest: a dense id, the id of the enclosing flow instance, its route,
// its inputs, the fully resolved list of output connections, and its
// implementation locator.
type RuntimeFunction struct {
	ID          int                `json:"id"`
	FlowID      int                `json:"flow_id"`
	Route       Route              `json:"route"`
	Inputs      []RuntimeInput     `json:"inputs"`
	OutputConns []OutputConnection `json:"output_connections"`
	Impure      bool               `json:"impure"`
	Implementation string          `json:"implementation"`
}

// Arity returns the number of declared inputs.
func (f *RuntimeFunction) Arity() int {
	return len(f.Inputs)
}

// Manifest is the stable, self-contained serialization of a compiled graph:
// everything the runtime needs to execute without the source definitions.
type Manifest struct {
	Metadata        Metadata          `json:"metadata"`
	Functions       []RuntimeFunction `json:"functions"`
	Libraries       []LibraryRef      `json:"libraries"`
	ContextFuncs    []string          `json:"context_functions"`
	SourceFiles     []string          `json:"source_files,omitempty"`
}

// Job is a single scheduled firing: a monotonically increasing id, the
// function and flow it belongs to, the input values it was dispatched with,
// the destination list copied from the function so the scheduler can route
// the result without re-reading run-state, and the bound implementation.
type Job struct {
	ID           uint64
	FunctionID   int
	FlowID       int
	Inputs       []json.RawMessage
	Destinations []OutputConnection
	Implementation string

	// Result, once populated by a worker:
	Output   json.RawMessage
	RunAgain bool
	Err      error
	// Metrics is the memory/goroutine delta the worker pool captured
	// bracketing Implementation.Invoke. Nil until the job completes.
	Metrics *metrics.RuntimeMetrics
}

// Block records that the function identified by BlockedFunctionID cannot
// currently send to BlockingFunctionID's BlockingInputIndex because that
// input is full.
type Block struct {
	BlockingFlowID     int
	BlockingFunctionID int
	BlockingInputIndex int
	BlockedFunctionID  int
	BlockedFlowID      int
}
