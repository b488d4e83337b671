package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redisWrapper "github.com/flowforge/flowcore/common/redis"
	"github.com/flowforge/flowcore/internal/loader"
)

// manifestWire is the on-the-wire shape of a library manifest as published
// alongside a library: its name and a flat map from implementation path to
// a WASM module locator. Native bindings are not declared here; they come
// only from NativeRegistry entries keyed under the library's name (Go
// values don't survive JSON).
type manifestWire struct {
	Name string            `json:"name"`
	WASM map[string]string `json:"wasm,omitempty"`
}

// NativeRegistry supplies the host process's own native implementations,
// keyed "libname/path", consulted ahead of anything declared in the
// manifest's wire form.
type NativeRegistry map[string]Implementation

// CachedLibraryProvider loads library manifests through a content provider
// (file/http/lib content locators) and caches the raw manifest text in Redis
// keyed by locator, so a long-running coordinator serving many submissions
// against the same library doesn't refetch it every time; the cached text is
// parsed again on each call.
type CachedLibraryProvider struct {
	content loader.ContentProvider
	redis   *redisWrapper.Client
	natives NativeRegistry
	ttl     time.Duration
}

// NewCachedLibraryProvider builds a provider that resolves "lib://name"
// locators via content, caching raw manifest text in redis for ttl.
func NewCachedLibraryProvider(content loader.ContentProvider, redis *redisWrapper.Client, natives NativeRegistry, ttl time.Duration) *CachedLibraryProvider {
	return &CachedLibraryProvider{content: content, redis: redis, natives: natives, ttl: ttl}
}

func (p *CachedLibraryProvider) Library(ctx context.Context, locator string) (*LibraryManifest, error) {
	cacheKey := "libmanifest:" + locator

	if p.redis != nil {
		if cached, err := p.redis.Get(ctx, cacheKey); err == nil {
			return p.bind(cached, locator)
		}
	}

	manifestLocator := locator + "/manifest.json"
	raw, err := p.content.Fetch(ctx, manifestLocator)
	if err != nil {
		return nil, fmt.Errorf("fetching library manifest %q: %w", manifestLocator, err)
	}

	if p.redis != nil {
		if err := p.redis.Set(ctx, cacheKey, string(raw), p.ttl); err != nil {
			return nil, fmt.Errorf("caching library manifest %q: %w", locator, err)
		}
	}

	return p.bind(string(raw), locator)
}

func (p *CachedLibraryProvider) bind(raw, locator string) (*LibraryManifest, error) {
	var wire manifestWire
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, fmt.Errorf("parsing library manifest %q: %w", locator, err)
	}

	man := &LibraryManifest{
		Name:   wire.Name,
		Native: make(map[string]Implementation),
		WASM:   wire.WASM,
	}
	libName, _, _ := splitLibLocator(locator)
	prefix := libName + "/"
	for path, impl := range p.natives {
		if strings.HasPrefix(path, prefix) {
			man.Native[strings.TrimPrefix(path, prefix)] = impl
		}
	}

	return man, nil
}
