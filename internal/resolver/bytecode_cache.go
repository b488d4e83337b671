package resolver

import (
	"context"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/flowforge/flowcore/internal/loader"
)

// BytecodeCache is an on-disk cache for fetched WASM module bytes, keyed by
// their source locator. A concrete WASMLoader backed
// by a real runtime composes this with its own module-instantiation step so
// that re-running a submission against the same library doesn't refetch and
// reparse bytecode every time.
type BytecodeCache struct {
	db       *badger.DB
	provider loader.ContentProvider
}

// OpenBytecodeCache opens (or creates) a badger database at dir backing a
// BytecodeCache that falls back to provider on a cache miss.
func OpenBytecodeCache(dir string, provider loader.ContentProvider) (*BytecodeCache, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("opening bytecode cache at %s: %w", dir, err)
	}
	return &BytecodeCache{db: db, provider: provider}, nil
}

// Close releases the underlying badger database.
func (c *BytecodeCache) Close() error {
	return c.db.Close()
}

// Fetch returns the bytecode for moduleLocator, serving from cache when
// present and populating the cache on a miss.
func (c *BytecodeCache) Fetch(ctx context.Context, moduleLocator string) ([]byte, error) {
	var cached []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(moduleLocator))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			cached = append([]byte(nil), val...)
			return nil
		})
	})
	if err == nil {
		return cached, nil
	}
	if err != badger.ErrKeyNotFound {
		return nil, fmt.Errorf("reading bytecode cache: %w", err)
	}

	data, err := c.provider.Fetch(ctx, moduleLocator)
	if err != nil {
		return nil, fmt.Errorf("fetching module %q: %w", moduleLocator, err)
	}

	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(moduleLocator), data)
	}); err != nil {
		return nil, fmt.Errorf("writing bytecode cache: %w", err)
	}

	return data, nil
}
