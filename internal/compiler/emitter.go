package compiler

import (
	"sort"
	"strconv"

	"github.com/flowforge/flowcore/internal/model"
)

// Emit builds the stable, self-contained manifest from the surviving,
// checked function and connection tables (spec.md §4.H). Functions are
// assigned dense flow ids by grouping on their parent route, so instances of
// the same sub-flow that were inlined by the gatherer still end up on
// distinct flow ids.
func Emit(meta model.Metadata, functions []*model.Function, connections []model.Connection, libs map[model.LibraryRef]bool, contextFuncs []string) *model.Manifest {
	flowIDByRoute := assignFlowIDs(functions)
	tables := Index(functions, flowIDByRoute)

	byFrom := make(map[model.Route][]model.Connection)
	// subRouteFrom indexes connections whose From names an array-index
	// sub-route of an IO (e.g. "/fn/out/0" selecting element 0 of
	// "/fn/out", per spec.md §3) by that IO's own route, alongside the
	// stripped index.
	type indexedFrom struct {
		conn  model.Connection
		index int
	}
	subRouteFrom := make(map[model.Route][]indexedFrom)
	for _, c := range connections {
		byFrom[c.From] = append(byFrom[c.From], c)
		if parent, idx, ok := c.From.SplitIndex(); ok {
			subRouteFrom[parent] = append(subRouteFrom[parent], indexedFrom{conn: c, index: idx})
		}
	}

	ioByRoute := make(map[model.Route]*model.IO)
	for _, fn := range functions {
		for i := range fn.Inputs {
			ioByRoute[fn.Inputs[i].Route] = &fn.Inputs[i]
		}
		for i := range fn.Outputs {
			ioByRoute[fn.Outputs[i].Route] = &fn.Outputs[i]
		}
	}

	runtimeFns := make([]model.RuntimeFunction, len(functions))
	for id, fn := range functions {
		rf := model.RuntimeFunction{
			ID:             id,
			FlowID:         flowIDByRoute[parentRoute(fn.Route)],
			Route:          fn.Route,
			Impure:         fn.Impure,
			Implementation: resolvedImplementation(fn),
		}
		for _, in := range fn.Inputs {
			rf.Inputs = append(rf.Inputs, model.RuntimeInput{
				Capacity:    1,
				Initializer: in.Initializer,
			})
		}

		for _, out := range fn.Outputs {
			for _, c := range byFrom[out.Route] {
				dest, ok := tables.Destinations[c.To]
				if !ok {
					continue
				}
				rf.OutputConns = append(rf.OutputConns, model.OutputConnection{
					Source:       model.SourceSelector{OutputPath: ""},
					SourceType:   firstType(out.Types),
					DestType:     firstType(ioByRoute[c.To].Types),
					DestFunction: dest.FunctionID,
					DestInput:    dest.InputIndex,
					DestFlowID:   dest.FlowID,
					DestRoute:    c.To,
				})
			}
			// Connections sourced from an array-index sub-route of this
			// output (e.g. "/fn/out/0") select that element at delivery
			// time via SourceSelector.OutputPath instead of the whole value.
			for _, sc := range subRouteFrom[out.Route] {
				dest, ok := tables.Destinations[sc.conn.To]
				if !ok {
					continue
				}
				rf.OutputConns = append(rf.OutputConns, model.OutputConnection{
					Source:       model.SourceSelector{OutputPath: strconv.Itoa(sc.index)},
					SourceType:   firstType(out.Types),
					DestType:     firstType(ioByRoute[sc.conn.To].Types),
					DestFunction: dest.FunctionID,
					DestInput:    dest.InputIndex,
					DestFlowID:   dest.FlowID,
					DestRoute:    sc.conn.To,
				})
			}
		}
		// Pass-through connections (an input copied straight to an output,
		// e.g. a router or select function) originate from the input route
		// rather than an output route.
		for i, in := range fn.Inputs {
			for _, c := range byFrom[in.Route] {
				dest, ok := tables.Destinations[c.To]
				if !ok {
					continue
				}
				rf.OutputConns = append(rf.OutputConns, model.OutputConnection{
					Source:       model.SourceSelector{IsInputCopy: true, CopyInputIndex: i},
					SourceType:   firstType(in.Types),
					DestType:     firstType(ioByRoute[c.To].Types),
					DestFunction: dest.FunctionID,
					DestInput:    dest.InputIndex,
					DestFlowID:   dest.FlowID,
					DestRoute:    c.To,
				})
			}
		}

		runtimeFns[id] = rf
	}

	var libList []model.LibraryRef
	for lib := range libs {
		libList = append(libList, lib)
	}
	sort.Slice(libList, func(i, j int) bool { return libList[i] < libList[j] })

	return &model.Manifest{
		Metadata:     meta,
		Functions:    runtimeFns,
		Libraries:    libList,
		ContextFuncs: contextFuncs,
	}
}

// firstType returns the first declared type, or model.TypeValue if an IO
// declares none (the generic top type is the safe default for coercion
// purposes).
func firstType(types []model.DataType) model.DataType {
	if len(types) == 0 {
		return model.TypeValue
	}
	return types[0]
}

func resolvedImplementation(fn *model.Function) string {
	if fn.LibraryRef != "" {
		return string(fn.LibraryRef)
	}
	return fn.Source
}

// assignFlowIDs groups functions by parent route and hands out dense ids in
// sorted order, so the same definition compiled twice gets identical ids.
func assignFlowIDs(functions []*model.Function) map[model.Route]int {
	seen := make(map[model.Route]bool)
	var routes []model.Route
	for _, fn := range functions {
		p := parentRoute(fn.Route)
		if !seen[p] {
			seen[p] = true
			routes = append(routes, p)
		}
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i] < routes[j] })

	ids := make(map[model.Route]int, len(routes))
	for i, r := range routes {
		ids[r] = i
	}
	return ids
}
