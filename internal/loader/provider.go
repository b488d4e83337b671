// Package loader resolves locators, deserializes flow/function definitions,
// recursively loads referenced sub-flows and functions, assigns hierarchical
// routes, and validates local well-formedness (spec component B).
package loader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/flowforge/flowcore/internal/flowerr"
)

// ContentProvider maps a locator to bytes. Concrete providers (local
// filesystem, HTTP, library lookup) are external collaborators; the loader
// only depends on this interface.
type ContentProvider interface {
	// Fetch resolves locator to its content.
	Fetch(ctx context.Context, locator string) ([]byte, error)
	// DefaultFile resolves a directory locator to the file it should load,
	// e.g. "root.toml" inside a directory.
	DefaultFile(ctx context.Context, dirLocator string) (string, error)
	// IsDir reports whether locator points to a directory.
	IsDir(ctx context.Context, locator string) (bool, error)
}

// FileProvider reads locators with the "file" scheme (or no scheme) from
// the local filesystem, relative to a base directory when the locator is
// relative.
type FileProvider struct {
	BaseDir string
}

// NewFileProvider creates a FileProvider rooted at baseDir.
func NewFileProvider(baseDir string) *FileProvider {
	return &FileProvider{BaseDir: baseDir}
}

func (p *FileProvider) resolvePath(locator string) string {
	loc := strings.TrimPrefix(locator, "file://")
	if path.IsAbs(loc) {
		return loc
	}
	return path.Join(p.BaseDir, loc)
}

// Fetch reads the file at locator.
func (p *FileProvider) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := os.ReadFile(p.resolvePath(locator))
	if err != nil {
		return nil, flowerr.New(flowerr.NotFound, err).WithLocator(locator)
	}
	return data, nil
}

// DefaultFile looks for a "root" file with a known deserializer extension
// inside the directory.
func (p *FileProvider) DefaultFile(ctx context.Context, dirLocator string) (string, error) {
	dir := p.resolvePath(dirLocator)
	for _, ext := range []string{".toml", ".yaml", ".yml", ".json"} {
		candidate := path.Join(dir, "root"+ext)
		if _, err := os.Stat(candidate); err == nil {
			return strings.TrimPrefix(candidate, p.BaseDir+"/"), nil
		}
	}
	return "", flowerr.New(flowerr.NotFound, fmt.Errorf("no default file found in %s", dirLocator)).WithLocator(dirLocator)
}

// IsDir reports whether locator is a directory on disk.
func (p *FileProvider) IsDir(ctx context.Context, locator string) (bool, error) {
	info, err := os.Stat(p.resolvePath(locator))
	if err != nil {
		return false, flowerr.New(flowerr.NotFound, err).WithLocator(locator)
	}
	return info.IsDir(), nil
}

// HTTPProvider resolves "http"/"https" locators via an injected HTTP client.
type HTTPProvider struct {
	Get func(ctx context.Context, url string) ([]byte, error)
}

// Fetch performs a GET against the locator.
func (p *HTTPProvider) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := p.Get(ctx, locator)
	if err != nil {
		return nil, flowerr.New(flowerr.NotFound, err).WithLocator(locator)
	}
	return data, nil
}

// DefaultFile is unsupported over HTTP: every locator must name a file.
func (p *HTTPProvider) DefaultFile(ctx context.Context, dirLocator string) (string, error) {
	return "", flowerr.New(flowerr.NotFound, fmt.Errorf("http provider requires a direct file locator: %s", dirLocator)).WithLocator(dirLocator)
}

// IsDir always reports false: HTTP locators are opaque URLs, never
// directories from the loader's point of view.
func (p *HTTPProvider) IsDir(ctx context.Context, locator string) (bool, error) {
	return false, nil
}

// Scheme extracts the locator's URI scheme ("file", "http", "https", "lib",
// "context"), defaulting to "file" when none is present.
func Scheme(locator string) string {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" {
		return "file"
	}
	return u.Scheme
}

// LocatorCache caches fetched bytes keyed by the locator they came from, so
// a long-running process (flowr serve) doesn't refetch the same manifest or
// sub-flow locator on every submission. common/clients.ContentCache
// satisfies this.
type LocatorCache interface {
	GetByLocator(ctx context.Context, locator string) ([]byte, bool, error)
	PutByLocator(ctx context.Context, locator string, data []byte, ttl time.Duration) error
}

// CachingContentProvider wraps a ContentProvider with a cache-aside
// LocatorCache: a hit returns cached bytes without touching inner; a miss
// fetches through inner and populates the cache for next time.
type CachingContentProvider struct {
	Inner ContentProvider
	Cache LocatorCache
	TTL   time.Duration
}

// NewCachingContentProvider wraps inner with a locator-keyed cache-aside
// layer. cache may be nil, in which case Fetch always falls through to
// inner (used when no Redis backend is configured).
func NewCachingContentProvider(inner ContentProvider, cache LocatorCache, ttl time.Duration) *CachingContentProvider {
	return &CachingContentProvider{Inner: inner, Cache: cache, TTL: ttl}
}

func (p *CachingContentProvider) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if p.Cache == nil {
		return p.Inner.Fetch(ctx, locator)
	}

	if cached, hit, err := p.Cache.GetByLocator(ctx, locator); err == nil && hit {
		return cached, nil
	}

	data, err := p.Inner.Fetch(ctx, locator)
	if err != nil {
		return nil, err
	}

	_ = p.Cache.PutByLocator(ctx, locator, data, p.TTL)
	return data, nil
}

func (p *CachingContentProvider) DefaultFile(ctx context.Context, dirLocator string) (string, error) {
	return p.Inner.DefaultFile(ctx, dirLocator)
}

func (p *CachingContentProvider) IsDir(ctx context.Context, locator string) (bool, error) {
	return p.Inner.IsDir(ctx, locator)
}

// ProviderRegistry dispatches a locator to the ContentProvider registered
// for its scheme.
type ProviderRegistry struct {
	providers map[string]ContentProvider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]ContentProvider)}
}

// Register binds a scheme to a provider.
func (r *ProviderRegistry) Register(scheme string, provider ContentProvider) {
	r.providers[scheme] = provider
}

// For returns the provider registered for locator's scheme.
func (r *ProviderRegistry) For(locator string) (ContentProvider, error) {
	scheme := Scheme(locator)
	p, ok := r.providers[scheme]
	if !ok {
		return nil, flowerr.New(flowerr.NotFound, fmt.Errorf("no content provider registered for scheme %q", scheme)).WithLocator(locator)
	}
	return p, nil
}
