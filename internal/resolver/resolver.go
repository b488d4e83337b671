// Package resolver binds each compiled function to an executable
// implementation (spec component I): native Go funcs, context functions, or
// WASM bytecode, looked up across a union of library manifests.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/model"
)

// Implementation is the abstract executable form a worker invokes (spec.md
// §1: "the core consumes an abstract implementation"). Output may be nil
// when runAgain is false and the function produced nothing to send.
type Implementation interface {
	Invoke(ctx context.Context, inputs []json.RawMessage) (output json.RawMessage, runAgain bool, err error)
}

// NativeFunc adapts a plain Go function to Implementation.
type NativeFunc func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error)

func (f NativeFunc) Invoke(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
	return f(ctx, inputs)
}

// LibraryManifest maps an implementation locator's path (the part after the
// library name) to a binding: either a native handle, registered by the
// host process, or a WASM module locator resolved lazily through a
// WASMLoader.
type LibraryManifest struct {
	Name   string
	Native map[string]Implementation
	WASM   map[string]string // path -> module locator
}

// Provider loads a library manifest by its locator ("lib://<name>").
type Provider interface {
	Library(ctx context.Context, locator string) (*LibraryManifest, error)
}

// ContextFuncs supplies the fixed set of built-in context://-scheme
// implementations (stdio, file, image, args), keyed by name.
type ContextFuncs map[string]Implementation

// WASMLoader lazily loads and invokes WASM bytecode. No WASM runtime exists
// anywhere in the retrieved corpus, so this is modeled as an injected
// abstraction (spec.md §1 explicitly scopes WASM execution out of the
// core's concerns) rather than a fabricated dependency; production wiring
// supplies a concrete WASMLoader backed by a real runtime.
type WASMLoader interface {
	Load(ctx context.Context, moduleLocator string) (Implementation, error)
}

// Resolve binds every function in manifest to an Implementation, consulting
// libs for "lib://" locators and ctxFns for "context://" ones. It fails
// with flowerr.UnresolvedImplementation if any locator cannot be bound.
func Resolve(ctx context.Context, manifest *model.Manifest, libs Provider, ctxFns ContextFuncs, wasm WASMLoader) (map[int]Implementation, error) {
	bound := make(map[int]Implementation, len(manifest.Functions))

	libCache := make(map[string]*LibraryManifest)

	for _, fn := range manifest.Functions {
		impl, err := resolveOne(ctx, fn.Implementation, libs, ctxFns, wasm, libCache)
		if err != nil {
			return nil, flowerr.New(flowerr.UnresolvedImplementation, err).WithRoute(string(fn.Route)).WithLocator(fn.Implementation)
		}
		bound[fn.ID] = impl
	}

	return bound, nil
}

func resolveOne(ctx context.Context, locator string, libs Provider, ctxFns ContextFuncs, wasm WASMLoader, libCache map[string]*LibraryManifest) (Implementation, error) {
	switch {
	case strings.HasPrefix(locator, "context://"):
		name := strings.TrimPrefix(locator, "context://")
		impl, ok := ctxFns[name]
		if !ok {
			return nil, fmt.Errorf("no context function registered for %q", locator)
		}
		return impl, nil

	case strings.HasPrefix(locator, "lib://"):
		libName, path, err := splitLibLocator(locator)
		if err != nil {
			return nil, err
		}
		man, ok := libCache[libName]
		if !ok {
			if libs == nil {
				return nil, fmt.Errorf("no library provider configured, cannot resolve %q", locator)
			}
			man, err = libs.Library(ctx, "lib://"+libName)
			if err != nil {
				return nil, fmt.Errorf("loading library %q: %w", libName, err)
			}
			libCache[libName] = man
		}
		if native, ok := man.Native[path]; ok {
			return native, nil
		}
		if modLocator, ok := man.WASM[path]; ok {
			if wasm == nil {
				return nil, fmt.Errorf("library %q binds %q to WASM but no WASMLoader is configured", libName, path)
			}
			return wasm.Load(ctx, modLocator)
		}
		return nil, fmt.Errorf("library %q has no binding for %q", libName, path)

	default:
		return nil, fmt.Errorf("unsupported implementation locator %q", locator)
	}
}

// splitLibLocator splits "lib://name/sub/path" into ("name", "sub/path").
func splitLibLocator(locator string) (name, path string, err error) {
	rest := strings.TrimPrefix(locator, "lib://")
	idx := strings.IndexByte(rest, '/')
	if idx < 0 {
		return rest, "", nil
	}
	return rest[:idx], rest[idx+1:], nil
}
