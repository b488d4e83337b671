// Package model holds the typed in-memory representation of flows,
// functions, IO, connections, routes and data types — the definition-form
// tree produced by the loader and consumed by the compiler.
package model

import (
	"encoding/json"
	"fmt"
)

// InitializerKind distinguishes a one-shot startup value from a per-firing
// refill.
type InitializerKind string

const (
	// InitOnce is applied once at run-state construction and never again.
	InitOnce InitializerKind = "once"
	// InitAlways is applied before every firing and may not coexist with an
	// incoming connection to the same input.
	InitAlways InitializerKind = "always"
)

// Initializer is a value pre-applied to an input, either at startup (once)
// or before every firing (always). On the wire it is `{ once: V }` or
// `{ always: V }`, per spec.md §6.
type Initializer struct {
	Kind  InitializerKind `json:"-"`
	Value json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts the wire shape {"once": V} or {"always": V}.
func (i *Initializer) UnmarshalJSON(data []byte) error {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if v, ok := wire[string(InitOnce)]; ok {
		i.Kind = InitOnce
		i.Value = v
		return nil
	}
	if v, ok := wire[string(InitAlways)]; ok {
		i.Kind = InitAlways
		i.Value = v
		return nil
	}
	return fmt.Errorf("initializer must have a %q or %q key", InitOnce, InitAlways)
}

// MarshalJSON emits {"once": V} or {"always": V}.
func (i Initializer) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]json.RawMessage{string(i.Kind): i.Value})
}

// IO is a named input or output on a function: it carries a set of
// acceptable data types, a route assigned at load time relative to its
// owning function, and an optional initializer.
type IO struct {
	Name        string       `json:"name"`
	Types       []DataType   `json:"-"`
	Route       Route        `json:"route,omitempty"`
	Initializer *Initializer `json:"initializer,omitempty"`
}

// ioWire mirrors the wire shape, where "type" may be a single type string
// or an array of acceptable types.
type ioWire struct {
	Name        string          `json:"name"`
	Type        json.RawMessage `json:"type"`
	Initializer *Initializer    `json:"initializer,omitempty"`
}

// UnmarshalJSON accepts "type" as either a bare string or an array of
// strings.
func (io *IO) UnmarshalJSON(data []byte) error {
	var wire ioWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	io.Name = wire.Name
	io.Initializer = wire.Initializer

	if len(wire.Type) == 0 {
		return nil
	}
	var asList []DataType
	if err := json.Unmarshal(wire.Type, &asList); err == nil {
		io.Types = asList
		return nil
	}
	var asOne DataType
	if err := json.Unmarshal(wire.Type, &asOne); err != nil {
		return fmt.Errorf("IO %q has malformed type: %w", wire.Name, err)
	}
	io.Types = []DataType{asOne}
	return nil
}

// MarshalJSON emits "type" as a bare string when there is exactly one, or
// an array otherwise.
func (io IO) MarshalJSON() ([]byte, error) {
	wire := ioWire{Name: io.Name, Initializer: io.Initializer}
	var typeJSON []byte
	var err error
	if len(io.Types) == 1 {
		typeJSON, err = json.Marshal(io.Types[0])
	} else {
		typeJSON, err = json.Marshal(io.Types)
	}
	if err != nil {
		return nil, err
	}
	wire.Type = typeJSON
	return json.Marshal(wire)
}

// AcceptsType reports whether d is Compatible with any of the IO's declared
// types (see Compatible for the matching rules).
func (io *IO) AcceptsType(d DataType) bool {
	for _, t := range io.Types {
		if Compatible(d, t) {
			return true
		}
	}
	return false
}

// Connection is a directed edge from one IO route (From) to another (To),
// carrying a declared data type and flags recording whether either endpoint
// lies on a flow boundary. A connection may span flow boundaries; collapsing
// resolves such chains into direct leaf-to-leaf edges.
type Connection struct {
	Name          string   `json:"name,omitempty"`
	From          Route    `json:"from"`
	To            Route    `json:"to"`
	DataType      DataType `json:"data_type,omitempty"`
	StartsAtFlow  bool     `json:"starts_at_flow,omitempty"`
	EndsAtFlow    bool     `json:"ends_at_flow,omitempty"`
}

// LibraryRef is a reference to an external implementation library, recorded
// on the flow that declared it and unioned up through flattening.
type LibraryRef string

// Function is the definition-form (pre-compilation) representation of a
// leaf node: a name, its local alias within a parent flow, the locator it
// was loaded from, declared IOs, an impurity flag, and an optional library
// reference for its implementation.
type Function struct {
	Name       string     `json:"name"`
	Alias      string     `json:"alias"`
	Source     string     `json:"source"`
	Route      Route      `json:"route,omitempty"`
	Inputs     []IO       `json:"input,omitempty"`
	Outputs    []IO       `json:"output,omitempty"`
	Impure     bool       `json:"impure,omitempty"`
	LibraryRef LibraryRef `json:"lib,omitempty"`
}

// ProcessRef is an entry in a flow's process list: a named sub-flow or
// function, with optional per-input initializer overrides supplied at the
// point of composition.
type ProcessRef struct {
	Alias  string                 `json:"alias"`
	Source string                 `json:"source"`
	Input  map[string]Initializer `json:"input,omitempty"`
}

// Metadata carries human-facing descriptive fields, not interpreted by the
// compiler.
type Metadata struct {
	Name        string   `json:"name,omitempty"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Authors     []string `json:"authors,omitempty"`
}

// Flow is the definition-form representation of a named sub-graph: its own
// IOs (as a sub-process), an ordered list of process references, an ordered
// list of internal connections, and the set of libraries it or its
// descendants reference.
type Flow struct {
	Name       string       `json:"name"`
	Alias      string       `json:"alias"`
	Route      Route        `json:"route,omitempty"`
	Metadata   Metadata     `json:"metadata,omitempty"`
	Inputs     []IO         `json:"input,omitempty"`
	Outputs    []IO         `json:"output,omitempty"`
	Process    []ProcessRef `json:"process,omitempty"`
	Connection []Connection `json:"connection,omitempty"`

	// LibRefs is the set of library locators referenced anywhere in this
	// flow's subtree, accumulated by the loader and unioned by the
	// flattener.
	LibRefs map[LibraryRef]bool `json:"-"`

	// Subflows and Functions hold the already-loaded process references,
	// keyed by alias, populated by the loader as it recurses.
	Subflows  map[string]*Flow     `json:"-"`
	Functions map[string]*Function `json:"-"`
}

// AddLibRef records a library reference, initializing the set on first use.
func (f *Flow) AddLibRef(ref LibraryRef) {
	if f.LibRefs == nil {
		f.LibRefs = make(map[LibraryRef]bool)
	}
	f.LibRefs[ref] = true
}
