package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mesh-intelligence/statcraft/pkg/catalog"
	"github.com/mesh-intelligence/statcraft/pkg/sqlite"
	"github.com/mesh-intelligence/statcraft/pkg/types"
	"github.com/mesh-intelligence/statcraft/pkg/universe"
)

// errNoSnapshot is returned by commands that need a scanned catalog.
var errNoSnapshot = fmt.Errorf("%w: no catalog snapshot in the data directory; run statcraft scan or import first", errUser)

// attachStore creates a SQLite store and attaches it to the configured data
// directory. The caller must Detach it.
func (a *app) attachStore() (types.CatalogStore, error) {
	store := sqlite.NewBackend()
	if err := store.Attach(a.config); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return store, nil
}

// withStore runs fn with an attached store and detaches it afterwards.
func (a *app) withStore(fn func(types.CatalogStore) error) (err error) {
	store, err := a.attachStore()
	if err != nil {
		return err
	}
	defer func() {
		if derr := store.Detach(); derr != nil && err == nil {
			err = fmt.Errorf("detach store: %w", derr)
		}
	}()
	return fn(store)
}

// latestCatalog restores the most recent snapshot into a catalog. The
// catalog has an empty universe: it serves descriptor queries only.
func (a *app) latestCatalog(store types.CatalogStore) (*catalog.Catalog, error) {
	snap, err := store.LatestSnapshot()
	if errors.Is(err, types.ErrSnapshotNotFound) {
		return nil, errNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	cat := catalog.New(universe.NewRegistry(), catalog.WithLogger(a.logger))
	cat.Restore(snap)
	return cat, nil
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
