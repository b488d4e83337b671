package compiler

import "github.com/flowforge/flowcore/internal/model"

// SourceKind distinguishes whether a route names a function's input (by
// index) or one of its output sub-paths.
type SourceKind int

const (
	SourceInput SourceKind = iota
	SourceOutput
)

// Source is an entry in the sources table: what kind of endpoint a route
// names, which function owns it, and (for SourceInput) which input index.
type Source struct {
	Kind       SourceKind
	FunctionID int
	InputIndex int
	SubPath    string
}

// Destination is an entry in the destinations table: which function and
// input index a route feeds, and that function's flow id.
type Destination struct {
	FunctionID int
	InputIndex int
	FlowID     int
}

// Tables holds the indexed, surviving functions plus the sources and
// destinations maps used to materialize output connections.
type Tables struct {
	Functions    []*model.Function
	IDByRoute    map[model.Route]int
	Sources      map[model.Route]Source
	Destinations map[model.Route]Destination
}

// Index assigns each surviving function an id equal to its position in the
// functions list, and builds the sources/destinations route maps (spec.md
// §4.F). flowIDByRoute maps a function's enclosing-flow route to a dense
// flow id; functions whose enclosing flow is not found default to flow 0.
func Index(functions []*model.Function, flowIDByRoute map[model.Route]int) *Tables {
	t := &Tables{
		Functions:    functions,
		IDByRoute:    make(map[model.Route]int, len(functions)),
		Sources:      make(map[model.Route]Source),
		Destinations: make(map[model.Route]Destination),
	}

	for id, fn := range functions {
		t.IDByRoute[fn.Route] = id

		for i, in := range fn.Inputs {
			t.Destinations[in.Route] = Destination{
				FunctionID: id,
				InputIndex: i,
				FlowID:     flowIDByRoute[parentRoute(fn.Route)],
			}
		}
		for _, out := range fn.Outputs {
			t.Sources[out.Route] = Source{Kind: SourceOutput, FunctionID: id, SubPath: ""}
		}
		for i, in := range fn.Inputs {
			// An input route can also serve as a "source" when a
			// function's connection copies one of its own inputs through
			// to an output (pass-through), per the SourceSelector design.
			t.Sources[in.Route] = Source{Kind: SourceInput, FunctionID: id, InputIndex: i}
		}
	}

	return t
}

// resolveIO looks up route directly, falling back to its parent route (with
// the trailing array-index segment stripped per spec.md §3) when route
// itself names no declared IO — e.g. "/fn/out/0" selecting element 0 of
// "/fn/out" rather than a separately declared port.
func resolveIO(ioByRoute map[model.Route]*model.IO, route model.Route) (*model.IO, bool) {
	if io, ok := ioByRoute[route]; ok {
		return io, true
	}
	if parent, _, ok := route.SplitIndex(); ok {
		if io, ok := ioByRoute[parent]; ok {
			return io, true
		}
	}
	return nil, false
}

func parentRoute(r model.Route) model.Route {
	parent, _, ok := r.SplitIndex()
	if ok {
		return parent
	}
	s := string(r)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return model.Route(s[:i])
		}
	}
	return ""
}
