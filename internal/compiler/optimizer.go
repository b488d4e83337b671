package compiler

import "github.com/flowforge/flowcore/internal/model"

// Optimize repeatedly removes pure functions with no downstream consumers,
// and the connections referring to their removed endpoints, until a
// fixpoint (spec.md §4.E). It is idempotent: running it twice on its own
// output yields identical tables.
func Optimize(functions []*model.Function, connections []model.Connection) ([]*model.Function, []model.Connection) {
	for {
		dead := deadFunctions(functions, connections)
		if len(dead) == 0 {
			return functions, connections
		}

		functions = removeFunctions(functions, dead)
		connections = removeConnectionsTouching(connections, dead)
	}
}

// deadFunctions marks every non-impure function with no connection whose
// From is a sub-route of its route.
func deadFunctions(functions []*model.Function, connections []model.Connection) map[model.Route]bool {
	dead := make(map[model.Route]bool)
	for _, fn := range functions {
		if fn.Impure {
			continue
		}
		if !hasOutgoingConnection(fn.Route, connections) {
			dead[fn.Route] = true
		}
	}
	return dead
}

func hasOutgoingConnection(route model.Route, connections []model.Connection) bool {
	for _, c := range connections {
		if c.From.IsSubRouteOf(route) {
			return true
		}
	}
	return false
}

func removeFunctions(functions []*model.Function, dead map[model.Route]bool) []*model.Function {
	var out []*model.Function
	for _, fn := range functions {
		if dead[fn.Route] {
			continue
		}
		out = append(out, fn)
	}
	return out
}

func removeConnectionsTouching(connections []model.Connection, dead map[model.Route]bool) []model.Connection {
	var out []model.Connection
	for _, c := range connections {
		if touchesAny(c.From, dead) || touchesAny(c.To, dead) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func touchesAny(route model.Route, dead map[model.Route]bool) bool {
	for deadRoute := range dead {
		if route.IsSubRouteOf(deadRoute) {
			return true
		}
	}
	return false
}
