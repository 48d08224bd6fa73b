// Package sqlite implements the SQLite catalog store.
//
// The backend keeps catalog snapshots in statcraft.db under the configured
// data directory: one row per scan and one row per descriptor. Snapshots can
// also be exported to and imported from JSONL files, optionally zstd
// compressed, for moving a catalog between machines.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// DatabaseFile is the name of the database inside DataDir.
const DatabaseFile = "statcraft.db"

// Backend implements types.CatalogStore on SQLite.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens DataDir/statcraft.db, creating the directory and schema if
// needed. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DatabaseFile))
	if err != nil {
		return err
	}
	// A single connection keeps PRAGMA settings in effect for every query.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	for _, ddl := range slices.Concat(schemaDDL, indexDDL) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	b.db = db
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database. After Detach, all operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}
	b.attached = false
	return nil
}

// SaveSnapshot stores snap and its descriptors in one transaction.
func (b *Backend) SaveSnapshot(snap types.CatalogSnapshot) (types.CatalogSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.CatalogSnapshot{}, types.ErrStoreDetached
	}

	if snap.ScanID == "" {
		snap.ScanID = generateUUID()
	}
	snap.Count = len(snap.Descriptors)

	tx, err := b.db.Begin()
	if err != nil {
		return types.CatalogSnapshot{}, fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM scans WHERE scan_id = ?", snap.ScanID); err != nil {
		return types.CatalogSnapshot{}, fmt.Errorf("replacing scan %s: %w", snap.ScanID, err)
	}
	_, err = tx.Exec(
		"INSERT INTO scans (scan_id, scanned_at, count, source) VALUES (?, ?, ?, ?)",
		snap.ScanID, formatTime(snap.ScannedAt), snap.Count, snap.Source,
	)
	if err != nil {
		return types.CatalogSnapshot{}, fmt.Errorf("inserting scan %s: %w", snap.ScanID, err)
	}
	if err := insertDescriptors(tx, snap.ScanID, snap.Descriptors); err != nil {
		return types.CatalogSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.CatalogSnapshot{}, fmt.Errorf("committing save transaction: %w", err)
	}
	return snap, nil
}

// LatestSnapshot returns the most recently scanned snapshot.
func (b *Backend) LatestSnapshot() (types.CatalogSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.CatalogSnapshot{}, types.ErrStoreDetached
	}
	row := b.db.QueryRow("SELECT scan_id, scanned_at, count, source FROM scans ORDER BY scanned_at DESC, rowid DESC LIMIT 1")
	return b.loadLocked(row)
}

// GetSnapshot returns the snapshot with the given scan ID.
func (b *Backend) GetSnapshot(scanID string) (types.CatalogSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.CatalogSnapshot{}, types.ErrStoreDetached
	}
	row := b.db.QueryRow("SELECT scan_id, scanned_at, count, source FROM scans WHERE scan_id = ?", scanID)
	return b.loadLocked(row)
}

// ListSnapshots returns snapshot headers, newest first.
func (b *Backend) ListSnapshots() ([]types.CatalogSnapshot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	rows, err := b.db.Query("SELECT scan_id, scanned_at, count, source FROM scans ORDER BY scanned_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var out []types.CatalogSnapshot
	for rows.Next() {
		snap, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// DeleteSnapshot removes a snapshot and its descriptors.
func (b *Backend) DeleteSnapshot(scanID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}
	res, err := b.db.Exec("DELETE FROM scans WHERE scan_id = ?", scanID)
	if err != nil {
		return fmt.Errorf("deleting scan %s: %w", scanID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", types.ErrSnapshotNotFound, scanID)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(r rowScanner) (types.CatalogSnapshot, error) {
	var (
		h  headerJSON
		at string
	)
	if err := r.Scan(&h.ScanID, &at, &h.Count, &h.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.CatalogSnapshot{}, types.ErrSnapshotNotFound
		}
		return types.CatalogSnapshot{}, fmt.Errorf("scanning scan row: %w", err)
	}
	h.ScannedAt = at
	return h.snapshot()
}

// loadLocked reads a header row and the descriptors of that scan.
func (b *Backend) loadLocked(row rowScanner) (types.CatalogSnapshot, error) {
	snap, err := scanHeader(row)
	if err != nil {
		return types.CatalogSnapshot{}, err
	}
	snap.Descriptors, err = loadDescriptors(b.db, snap.ScanID)
	if err != nil {
		return types.CatalogSnapshot{}, err
	}
	return snap, nil
}

// generateUUID generates a new UUID v7 for scan IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
