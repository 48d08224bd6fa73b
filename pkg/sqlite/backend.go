// Package sqlite provides the public API for the SQLite catalog store.
// This package exposes the factory function and the snapshot file helpers
// while keeping implementation details internal.
package sqlite

import (
	"github.com/mesh-intelligence/statcraft/internal/sqlite"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// NewBackend creates a new SQLite store instance.
// The store is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	store := sqlite.NewBackend()
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".statcraft",
//	})
//	defer store.Detach()
func NewBackend() types.CatalogStore {
	return sqlite.NewBackend()
}

// ExportSnapshot writes snap to a JSONL file; a ".zst" suffix compresses it.
func ExportSnapshot(path string, snap types.CatalogSnapshot) error {
	return sqlite.ExportSnapshot(path, snap)
}

// ImportSnapshot reads a snapshot written by ExportSnapshot.
func ImportSnapshot(path string) (types.CatalogSnapshot, error) {
	return sqlite.ImportSnapshot(path)
}
