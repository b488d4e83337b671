package resolver

import (
	"context"
	"os"
	"path"
	"strings"

	"github.com/flowforge/flowcore/internal/flowerr"
)

// LibraryFileContentProvider resolves "lib://<name>/<path>" locators against
// a directory on disk laid out as <root>/<name>/<path>, one subdirectory per
// library. It exists because loader.FileProvider resolves plain filesystem
// paths and has no opinion about the "lib://" scheme CachedLibraryProvider
// feeds it.
type LibraryFileContentProvider struct {
	Root string
}

// NewLibraryFileContentProvider roots library lookups at dir.
func NewLibraryFileContentProvider(dir string) *LibraryFileContentProvider {
	return &LibraryFileContentProvider{Root: dir}
}

func (p *LibraryFileContentProvider) resolvePath(locator string) string {
	rel := strings.TrimPrefix(locator, "lib://")
	return path.Join(p.Root, rel)
}

// Fetch reads the file at locator relative to Root.
func (p *LibraryFileContentProvider) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, err := os.ReadFile(p.resolvePath(locator))
	if err != nil {
		return nil, flowerr.New(flowerr.NotFound, err).WithLocator(locator)
	}
	return data, nil
}

// DefaultFile is unused by library lookups (manifests are always named
// manifest.json) but is required to satisfy loader.ContentProvider.
func (p *LibraryFileContentProvider) DefaultFile(ctx context.Context, dirLocator string) (string, error) {
	return path.Join(dirLocator, "manifest.json"), nil
}

// IsDir reports whether locator is a directory on disk.
func (p *LibraryFileContentProvider) IsDir(ctx context.Context, locator string) (bool, error) {
	info, err := os.Stat(p.resolvePath(locator))
	if err != nil {
		return false, flowerr.New(flowerr.NotFound, err).WithLocator(locator)
	}
	return info.IsDir(), nil
}
