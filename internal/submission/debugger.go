package submission

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Debugger evaluates a submission's should_enter_debugger breakpoint
// expression, compiled once and cached for the life of the submission. The
// expression sees the run-state snapshot polled between dispatch rounds as
// "state" and the job map the caller passes as "job" (nil when the caller
// has none; Coordinator.ShouldEnterDebugger always passes nil).
type Debugger struct {
	expr string

	mu  sync.Mutex
	prg cel.Program
}

// NewDebugger wraps a CEL breakpoint expression. An empty expr disables the
// debugger entirely (ShouldEnter always returns false without compiling
// anything).
func NewDebugger(expr string) *Debugger {
	return &Debugger{expr: expr}
}

// ShouldEnter evaluates the breakpoint expression against the current
// metrics and last-job snapshot, compiling it on first use.
func (d *Debugger) ShouldEnter(state map[string]interface{}, job map[string]interface{}) (bool, error) {
	if d.expr == "" {
		return false, nil
	}

	prg, err := d.program()
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"state": state,
		"job":   job,
	})
	if err != nil {
		return false, fmt.Errorf("debugger expression evaluation: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("debugger expression did not return a bool, got %T", out.Value())
	}
	return result, nil
}

func (d *Debugger) program() (cel.Program, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.prg != nil {
		return d.prg, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("state", cel.DynType),
		cel.Variable("job", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL env: %w", err)
	}

	ast, issues := env.Compile(d.expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compiling debugger expression %q: %w", d.expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("building debugger program: %w", err)
	}

	d.prg = prg
	return prg, nil
}
