package compiler

import (
	"github.com/flowforge/flowcore/internal/model"
)

// Result is everything a caller needs after a full compile: the manifest, or
// the accumulated validation errors if checking failed, plus the
// intermediate tables for --dump.
type Result struct {
	Manifest *model.Manifest
	Errors   []error

	Gathered  *Gathered
	Collapsed []model.Connection
	Optimized struct {
		Functions   []*model.Function
		Connections []model.Connection
	}
}

// contextFuncLocators extracts the context:// scheme references out of a
// library set, since those are bound to in-process functions rather than
// resolved implementations and are listed separately in the manifest.
func contextFuncLocators(libs map[model.LibraryRef]bool) []string {
	var out []string
	for lib := range libs {
		if len(lib) > len("context://") && string(lib)[:len("context://")] == "context://" {
			out = append(out, string(lib))
		}
	}
	return out
}

// Compile runs the full pipeline (spec.md §4.C-H) over a loaded definition
// tree: gather, collapse, optimize, check, emit. If Check reports any
// errors, Manifest is nil and Errors is populated; the caller decides
// whether to treat that as fatal.
func Compile(meta model.Metadata, root *model.Flow) *Result {
	r := &Result{}

	r.Gathered = Gather(root)
	r.Collapsed = Collapse(r.Gathered.Connections)

	fns, conns := Optimize(r.Gathered.Functions, r.Collapsed)
	r.Optimized.Functions = fns
	r.Optimized.Connections = conns

	if errs := Check(fns, conns); len(errs) > 0 {
		r.Errors = errs
		return r
	}

	r.Manifest = Emit(meta, fns, conns, r.Gathered.Libs, contextFuncLocators(r.Gathered.Libs))
	return r
}
