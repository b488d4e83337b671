package compiler

import (
	"fmt"

	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/model"
)

// Check validates a flattened, collapsed, optimized function/connection
// table against spec.md §4.G's invariants:
//   - every input is fed by at most one connection (CompetingInput),
//   - every non-initialized input is fed by at least one connection or
//     carries an initializer (UnusedInput),
//   - every connection's declared type is compatible with both endpoints
//     (TypeMismatch).
//
// It returns every violation found, not just the first, so a single
// compile reports everything wrong with a flow at once.
func Check(functions []*model.Function, connections []model.Connection) []error {
	var errs []error

	ioByRoute := make(map[model.Route]*model.IO)
	for _, fn := range functions {
		for i := range fn.Inputs {
			ioByRoute[fn.Inputs[i].Route] = &fn.Inputs[i]
		}
		for i := range fn.Outputs {
			ioByRoute[fn.Outputs[i].Route] = &fn.Outputs[i]
		}
	}

	feedCount := make(map[model.Route]int)
	for _, c := range connections {
		feedCount[c.To]++

		fromIO, fromOK := resolveIO(ioByRoute, c.From)
		toIO, toOK := resolveIO(ioByRoute, c.To)
		if fromOK && toOK {
			if !typesCompatible(fromIO, toIO) {
				errs = append(errs, flowerr.New(flowerr.TypeMismatch,
					fmt.Errorf("connection %s -> %s: incompatible types", c.From, c.To)).
					WithRoute(string(c.To)))
			}
		}
	}

	for route, n := range feedCount {
		if n > 1 {
			errs = append(errs, flowerr.New(flowerr.CompetingInput,
				fmt.Errorf("input %s is fed by %d connections", route, n)).
				WithRoute(string(route)))
		}
	}

	for _, fn := range functions {
		for _, in := range fn.Inputs {
			fed := feedCount[in.Route] > 0

			if fed && in.Initializer != nil && in.Initializer.Kind == model.InitAlways {
				errs = append(errs, flowerr.New(flowerr.CompetingInput,
					fmt.Errorf("input %s has a constant initializer and an incoming connection", in.Route)).
					WithRoute(string(in.Route)))
				continue
			}
			if fed {
				continue
			}
			if in.Initializer != nil {
				continue
			}
			errs = append(errs, flowerr.New(flowerr.UnusedInput,
				fmt.Errorf("input %s has no connection and no initializer", in.Route)).
				WithRoute(string(in.Route)))
		}
	}

	return errs
}

func typesCompatible(from, to *model.IO) bool {
	if len(from.Types) == 0 || len(to.Types) == 0 {
		return true
	}
	for _, f := range from.Types {
		for _, t := range to.Types {
			if model.Compatible(f, t) {
				return true
			}
		}
	}
	return false
}
