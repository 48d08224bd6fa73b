package types

// CatalogStore persists catalog snapshots. Callers attach to a backend,
// save and load snapshots, and detach when done.
type CatalogStore interface {
	// Attach connects the store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, every other operation returns ErrStoreDetached.
	Detach() error

	// SaveSnapshot stores snap and its descriptors. A snapshot without a
	// ScanID is given one. Saving a ScanID again replaces the stored copy.
	SaveSnapshot(snap CatalogSnapshot) (CatalogSnapshot, error)

	// LatestSnapshot returns the most recently scanned snapshot with its
	// descriptors. Returns ErrSnapshotNotFound if the store is empty.
	LatestSnapshot() (CatalogSnapshot, error)

	// GetSnapshot returns one snapshot with its descriptors.
	GetSnapshot(scanID string) (CatalogSnapshot, error)

	// ListSnapshots returns snapshot headers, newest first. Descriptors are
	// not loaded.
	ListSnapshots() ([]CatalogSnapshot, error)

	// DeleteSnapshot removes a snapshot and its descriptors.
	DeleteSnapshot(scanID string) error
}
