// Package stdlib supplies a small "lib://stdlib" library of pure functions:
// add, to_string, to_json, range_split. It exists so the implementation
// resolver (internal/resolver) has something concrete to bind lib://
// locators against, the way flowstdlib gives the original flow project a
// standard set of building blocks beyond context functions.
package stdlib

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowforge/flowcore/internal/resolver"
)

// Natives returns the native binding map for the stdlib library, keyed
// "stdlib/<path>" as resolver.CachedLibraryProvider expects.
func Natives() resolver.NativeRegistry {
	return resolver.NativeRegistry{
		"stdlib/add":         resolver.NativeFunc(add),
		"stdlib/to_string":   resolver.NativeFunc(toString),
		"stdlib/to_json":     resolver.NativeFunc(toJSON),
		"stdlib/range_split": resolver.NativeFunc(rangeSplit),
	}
}

// Manifest is the wire-form library manifest this package publishes
// alongside its natives, fetched by CachedLibraryProvider as
// "lib://stdlib/manifest.json".
const Manifest = `{"name": "stdlib"}`

// add takes two numbers and outputs their sum.
func add(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
	if len(inputs) != 2 {
		return nil, false, fmt.Errorf("add: expected 2 inputs, got %d", len(inputs))
	}
	var a, b float64
	if err := json.Unmarshal(inputs[0], &a); err != nil {
		return nil, false, fmt.Errorf("add: input 0: %w", err)
	}
	if err := json.Unmarshal(inputs[1], &b); err != nil {
		return nil, false, fmt.Errorf("add: input 1: %w", err)
	}
	out, err := json.Marshal(a + b)
	return out, true, err
}

// toString renders any single input value as its JSON-quoted string form,
// matching how flowstdlib's to_string stringifies arbitrary inputs rather
// than only strings.
func toString(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
	if len(inputs) != 1 {
		return nil, false, fmt.Errorf("to_string: expected 1 input, got %d", len(inputs))
	}
	var v interface{}
	if err := json.Unmarshal(inputs[0], &v); err != nil {
		return nil, false, fmt.Errorf("to_string: %w", err)
	}
	out, err := json.Marshal(fmt.Sprint(v))
	return out, true, err
}

// toJSON passes its single input through unchanged — every value in this
// runtime is already JSON, so to_json is the identity, kept only so flows
// ported from the original can still reference it by name.
func toJSON(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
	if len(inputs) != 1 {
		return nil, false, fmt.Errorf("to_json: expected 1 input, got %d", len(inputs))
	}
	return inputs[0], true, nil
}

// rangeSplit splits a [low, high) integer range into a list of at most n
// contiguous sub-ranges, each [start, end), for fanning work out across
// parallel functions.
func rangeSplit(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
	if len(inputs) != 3 {
		return nil, false, fmt.Errorf("range_split: expected 3 inputs (low, high, n), got %d", len(inputs))
	}
	var low, high, n int
	if err := json.Unmarshal(inputs[0], &low); err != nil {
		return nil, false, fmt.Errorf("range_split: low: %w", err)
	}
	if err := json.Unmarshal(inputs[1], &high); err != nil {
		return nil, false, fmt.Errorf("range_split: high: %w", err)
	}
	if err := json.Unmarshal(inputs[2], &n); err != nil {
		return nil, false, fmt.Errorf("range_split: n: %w", err)
	}
	if n <= 0 {
		return nil, false, fmt.Errorf("range_split: n must be positive, got %d", n)
	}

	type span struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}

	total := high - low
	if total <= 0 {
		out, err := json.Marshal([]span{})
		return out, true, err
	}
	if n > total {
		n = total
	}

	chunk := total / n
	remainder := total % n
	spans := make([]span, 0, n)
	cursor := low
	for i := 0; i < n; i++ {
		size := chunk
		if i < remainder {
			size++
		}
		spans = append(spans, span{Start: cursor, End: cursor + size})
		cursor += size
	}

	out, err := json.Marshal(spans)
	return out, true, err
}
