package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/model"
)

// cyclePair is a (parent, child) locator pair used to detect loops in
// process references, per spec.md §4.B.
type cyclePair struct {
	parent string
	child  string
}

// Loader resolves a root locator into a fully loaded flow-definition tree
// with routes assigned.
type Loader struct {
	providers     *ProviderRegistry
	deserializers *DeserializerRegistry
}

// New creates a Loader.
func New(providers *ProviderRegistry, deserializers *DeserializerRegistry) *Loader {
	return &Loader{providers: providers, deserializers: deserializers}
}

// LoadRoot loads rootLocator as either a Flow or a bare Function, returning
// whichever was found.
func (l *Loader) LoadRoot(ctx context.Context, rootLocator string) (*model.Flow, *model.Function, error) {
	return l.load(ctx, rootLocator, "", "", "", nil)
}

// load resolves, deserializes and dispatches one locator, recursing into
// process references when it is a flow. parentRoute is the route of the
// enclosing flow ("" at the root); alias is this node's local name within
// its parent.
func (l *Loader) load(ctx context.Context, locator, parentRoute, alias, parentLocator string, seen map[cyclePair]bool) (*model.Flow, *model.Function, error) {
	resolved, err := l.resolveLocator(ctx, locator)
	if err != nil {
		return nil, nil, err
	}

	if seen == nil {
		seen = make(map[cyclePair]bool)
	}
	if parentLocator != "" {
		pair := cyclePair{parent: parentLocator, child: resolved}
		if seen[pair] {
			return nil, nil, flowerr.New(flowerr.Cycle, fmt.Errorf("cycle detected loading %s from %s", resolved, parentLocator)).WithLocator(resolved)
		}
		seen[pair] = true
	}

	provider, err := l.providers.For(resolved)
	if err != nil {
		return nil, nil, err
	}
	data, err := provider.Fetch(ctx, resolved)
	if err != nil {
		return nil, nil, err
	}

	deserializer, err := l.deserializers.For(resolved)
	if err != nil {
		return nil, nil, err
	}
	raw, err := deserializer.Deserialize(data)
	if err != nil {
		return nil, nil, flowerr.New(flowerr.Parse, err).WithLocator(resolved)
	}

	if alias == "" {
		alias = baseName(resolved)
	}

	switch {
	case raw["flow"] != nil:
		return l.loadFlow(ctx, raw, resolved, parentRoute, alias, seen)
	case raw["function"] != nil:
		fn, err := l.loadFunction(raw, resolved, parentRoute, alias)
		return nil, fn, err
	default:
		return nil, nil, flowerr.New(flowerr.Validation, fmt.Errorf("definition at %s has neither a flow nor function key", resolved)).WithLocator(resolved)
	}
}

// resolveLocator follows spec.md §4.B: if locator points to a directory,
// ask the provider for its default file; otherwise return it unchanged.
func (l *Loader) resolveLocator(ctx context.Context, locator string) (string, error) {
	provider, err := l.providers.For(locator)
	if err != nil {
		return "", err
	}
	isDir, err := provider.IsDir(ctx, locator)
	if err != nil {
		return "", err
	}
	if !isDir {
		return locator, nil
	}
	return provider.DefaultFile(ctx, locator)
}

func baseName(locator string) string {
	base := path.Base(locator)
	ext := path.Ext(base)
	return strings.TrimSuffix(base, ext)
}

func (l *Loader) loadFunction(raw RawDefinition, locator, parentRoute, alias string) (*model.Function, error) {
	body, err := json.Marshal(raw["function"])
	if err != nil {
		return nil, flowerr.New(flowerr.Parse, err).WithLocator(locator)
	}

	var fn model.Function
	if err := json.Unmarshal(body, &fn); err != nil {
		return nil, flowerr.New(flowerr.Parse, err).WithLocator(locator)
	}
	fn.Alias = alias
	fn.Source = locator
	fn.Route = model.Route(parentRoute).Join(alias)

	if !model.IsValidName(fn.Name) {
		return nil, flowerr.New(flowerr.Validation, fmt.Errorf("invalid function name %q", fn.Name)).WithRoute(fn.Route.String())
	}

	assignIORoutes(fn.Inputs, fn.Route)
	assignIORoutes(fn.Outputs, fn.Route)

	if err := validateIOTypes(fn.Inputs, fn.Route); err != nil {
		return nil, err
	}
	if err := validateIOTypes(fn.Outputs, fn.Route); err != nil {
		return nil, err
	}

	return &fn, nil
}

func (l *Loader) loadFlow(ctx context.Context, raw RawDefinition, locator, parentRoute, alias string, seen map[cyclePair]bool) (*model.Flow, *model.Function, error) {
	body, err := json.Marshal(raw["flow"])
	if err != nil {
		return nil, nil, flowerr.New(flowerr.Parse, err).WithLocator(locator)
	}

	var flow model.Flow
	if err := json.Unmarshal(body, &flow); err != nil {
		return nil, nil, flowerr.New(flowerr.Parse, err).WithLocator(locator)
	}
	flow.Alias = alias
	flow.Route = model.Route(parentRoute).Join(alias)
	flow.Subflows = make(map[string]*model.Flow)
	flow.Functions = make(map[string]*model.Function)

	if !model.IsValidName(flow.Name) {
		return nil, nil, flowerr.New(flowerr.Validation, fmt.Errorf("invalid flow name %q", flow.Name)).WithRoute(flow.Route.String())
	}

	assignIORoutes(flow.Inputs, flow.Route)
	assignIORoutes(flow.Outputs, flow.Route)

	if err := validateIOTypes(flow.Inputs, flow.Route); err != nil {
		return nil, nil, err
	}
	if err := validateIOTypes(flow.Outputs, flow.Route); err != nil {
		return nil, nil, err
	}

	seenAlias := make(map[string]bool)
	for _, ref := range flow.Process {
		if seenAlias[ref.Alias] {
			return nil, nil, flowerr.New(flowerr.Validation, fmt.Errorf("duplicate process alias %q in flow %s", ref.Alias, flow.Route)).WithRoute(flow.Route.String())
		}
		seenAlias[ref.Alias] = true

		if Scheme(ref.Source) == "context" {
			// Built-in context functions have no definition file to load —
			// their signature is fixed and known to the loader directly.
			fn, err := contextFunction(ref.Source, flow.Route.Join(ref.Alias).String(), ref.Alias)
			if err != nil {
				return nil, nil, err
			}
			flow.AddLibRef(model.LibraryRef(ref.Source))
			flow.Functions[ref.Alias] = fn
			applyProcessInitializers(fn, ref)
			continue
		}

		childFlow, childFn, err := l.load(ctx, ref.Source, flow.Route.String(), ref.Alias, locator, cloneCyclePairs(seen))
		if err != nil {
			return nil, nil, err
		}
		if childFlow != nil {
			flow.Subflows[ref.Alias] = childFlow
			for lib := range childFlow.LibRefs {
				flow.AddLibRef(lib)
			}
		}
		if childFn != nil {
			applyProcessInitializers(childFn, ref)
			flow.Functions[ref.Alias] = childFn
			if childFn.LibraryRef != "" {
				flow.AddLibRef(childFn.LibraryRef)
			}
		}
	}

	for i := range flow.Connection {
		if flow.Connection[i].From == "" || flow.Connection[i].To == "" {
			return nil, nil, flowerr.New(flowerr.Validation, fmt.Errorf("connection missing from/to in flow %s", flow.Route)).WithRoute(flow.Route.String())
		}
	}

	return &flow, nil, nil
}

func applyProcessInitializers(fn *model.Function, ref model.ProcessRef) {
	if len(ref.Input) == 0 {
		return
	}
	for i := range fn.Inputs {
		if init, ok := ref.Input[fn.Inputs[i].Name]; ok {
			v := init
			fn.Inputs[i].Initializer = &v
		}
	}
}

func assignIORoutes(ios []model.IO, ownerRoute model.Route) {
	for i := range ios {
		ios[i].Route = ownerRoute.Join(ios[i].Name)
	}
}

func validateIOTypes(ios []model.IO, ownerRoute model.Route) error {
	for _, io := range ios {
		if !model.IsValidName(io.Name) {
			return flowerr.New(flowerr.Validation, fmt.Errorf("invalid IO name %q", io.Name)).WithRoute(ownerRoute.String())
		}
		if len(io.Types) == 0 {
			return flowerr.New(flowerr.Validation, fmt.Errorf("IO %q declares no type", io.Name)).WithRoute(ownerRoute.String())
		}
		for _, t := range io.Types {
			if !t.IsWellFormed() {
				return flowerr.New(flowerr.Validation, fmt.Errorf("IO %q declares malformed type %q", io.Name, t)).WithRoute(ownerRoute.String())
			}
		}
	}
	return nil
}

func cloneCyclePairs(m map[cyclePair]bool) map[cyclePair]bool {
	out := make(map[cyclePair]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
