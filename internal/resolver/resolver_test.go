package resolver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/flowcore/internal/flowerr"
	"github.com/flowforge/flowcore/internal/model"
)

type stubProvider struct {
	libs map[string]*LibraryManifest
}

func (p stubProvider) Library(ctx context.Context, locator string) (*LibraryManifest, error) {
	man, ok := p.libs[locator]
	if !ok {
		return nil, assertErr("no such library")
	}
	return man, nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

type stubWASM struct {
	loaded []string
}

func (w *stubWASM) Load(ctx context.Context, moduleLocator string) (Implementation, error) {
	w.loaded = append(w.loaded, moduleLocator)
	return NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
		return json.RawMessage("null"), false, nil
	}), nil
}

func echoImpl() Implementation {
	return NativeFunc(func(ctx context.Context, inputs []json.RawMessage) (json.RawMessage, bool, error) {
		return inputs[0], false, nil
	})
}

func TestResolveBindsNativeLibraryImplementation(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Route: "/top/add", Implementation: "lib://stdlib/add"},
		},
	}
	providers := stubProvider{libs: map[string]*LibraryManifest{
		"lib://stdlib": {Name: "stdlib", Native: map[string]Implementation{"add": echoImpl()}},
	}}

	bound, err := Resolve(context.Background(), manifest, providers, nil, nil)
	require.NoError(t, err)
	require.Contains(t, bound, 0)

	out, _, err := bound[0].Invoke(context.Background(), []json.RawMessage{json.RawMessage(`5`)})
	require.NoError(t, err)
	assert.JSONEq(t, "5", string(out))
}

func TestResolveBindsContextImplementation(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Route: "/top/print", Implementation: "context://stdio/stdout"},
		},
	}
	ctxFns := ContextFuncs{"stdio/stdout": echoImpl()}

	bound, err := Resolve(context.Background(), manifest, nil, ctxFns, nil)
	require.NoError(t, err)
	require.Contains(t, bound, 0)
}

func TestResolveBindsWASMImplementationLazily(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Route: "/top/score", Implementation: "lib://scoring/rank"},
		},
	}
	providers := stubProvider{libs: map[string]*LibraryManifest{
		"lib://scoring": {Name: "scoring", WASM: map[string]string{"rank": "blob://scoring-rank.wasm"}},
	}}
	wasm := &stubWASM{}

	bound, err := Resolve(context.Background(), manifest, providers, nil, wasm)
	require.NoError(t, err)
	require.Contains(t, bound, 0)
	assert.Equal(t, []string{"blob://scoring-rank.wasm"}, wasm.loaded)
}

func TestResolveCachesLibraryManifestAcrossFunctions(t *testing.T) {
	calls := 0
	providers := countingProvider{
		inner: stubProvider{libs: map[string]*LibraryManifest{
			"lib://stdlib": {Name: "stdlib", Native: map[string]Implementation{
				"add": echoImpl(), "sub": echoImpl(),
			}},
		}},
		calls: &calls,
	}
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Implementation: "lib://stdlib/add"},
			{ID: 1, Implementation: "lib://stdlib/sub"},
		},
	}

	_, err := Resolve(context.Background(), manifest, providers, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "the library manifest should be fetched once and cached across functions sharing it")
}

type countingProvider struct {
	inner stubProvider
	calls *int
}

func (p countingProvider) Library(ctx context.Context, locator string) (*LibraryManifest, error) {
	*p.calls++
	return p.inner.Library(ctx, locator)
}

func TestResolveFailsWithUnresolvedImplementationKind(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Route: "/top/mystery", Implementation: "context://nope/nope"},
		},
	}
	_, err := Resolve(context.Background(), manifest, nil, ContextFuncs{}, nil)
	require.Error(t, err)

	var fe *flowerr.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, flowerr.UnresolvedImplementation, fe.Kind)
}

func TestResolveFailsWhenNoProviderConfiguredForLibLocator(t *testing.T) {
	manifest := &model.Manifest{
		Functions: []model.RuntimeFunction{
			{ID: 0, Implementation: "lib://stdlib/add"},
		},
	}
	_, err := Resolve(context.Background(), manifest, nil, nil, nil)
	assert.Error(t, err)
}
