package loader

import (
	"fmt"

	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/model"
)

// contextSignature is the fixed input/output shape of one built-in
// context:// function. These never change at runtime (spec.md §1 scopes
// context-side effects out of the core, but the loader still needs to know
// each built-in's arity and types to validate connections and initializers
// against it, the same as it would for any function loaded from a file).
type contextSignature struct {
	inputs  []string
	inTypes []model.DataType
	outputs []string
	outTypes []model.DataType
}

// contextSignatures catalogs every name the resolver's contextfns.Registry
// binds (internal/contextfns/args.go's Registry keys), so a process
// referencing e.g. "context://stdio/stdout" gets a function with a real,
// named, typed "in" input instead of an empty shell.
var contextSignatures = map[string]contextSignature{
	"stdio/stdout": {
		inputs: []string{"in"}, inTypes: []model.DataType{model.TypeString},
	},
	"stdio/stderr": {
		inputs: []string{"in"}, inTypes: []model.DataType{model.TypeString},
	},
	"stdio/get_line": {
		inputs: []string{"prompt"}, inTypes: []model.DataType{model.TypeString},
		outputs: []string{"line"}, outTypes: []model.DataType{model.TypeString},
	},
	"file/read": {
		inputs: []string{"in"}, inTypes: []model.DataType{model.TypeMap},
		outputs: []string{"contents"}, outTypes: []model.DataType{model.TypeMap},
	},
	"file/write": {
		inputs: []string{"in"}, inTypes: []model.DataType{model.TypeMap},
		outputs: []string{"ack"}, outTypes: []model.DataType{model.TypeBool},
	},
	"image/pixel_write": {
		inputs: []string{"in"}, inTypes: []model.DataType{model.TypeMap},
		outputs: []string{"ack"}, outTypes: []model.DataType{model.TypeBool},
	},
	"args/get": {
		outputs: []string{"args"}, outTypes: []model.DataType{model.DataType("Array/String")},
	},
}

// contextFunction builds the definition-form Function for a context://
// locator used directly as a process's source, per spec.md §6's locator
// form ("context://<name> refers to built-in context functions").
func contextFunction(locator, route, alias string) (*model.Function, error) {
	name := locator[len("context://"):]
	sig, ok := contextSignatures[name]
	if !ok {
		return nil, flowerr.New(flowerr.NotFound, fmt.Errorf("unknown context function %q", locator)).WithLocator(locator)
	}

	fn := &model.Function{
		Name:       alias,
		Alias:      alias,
		Source:     locator,
		Route:      model.Route(route),
		Impure:     true,
		LibraryRef: model.LibraryRef(locator),
	}
	for i, n := range sig.inputs {
		fn.Inputs = append(fn.Inputs, model.IO{Name: n, Types: []model.DataType{sig.inTypes[i]}})
	}
	for i, n := range sig.outputs {
		fn.Outputs = append(fn.Outputs, model.IO{Name: n, Types: []model.DataType{sig.outTypes[i]}})
	}
	assignIORoutes(fn.Inputs, fn.Route)
	assignIORoutes(fn.Outputs, fn.Route)
	return fn, nil
}
