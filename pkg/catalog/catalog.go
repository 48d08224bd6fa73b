// Package catalog discovers stat fields across a type universe and binds
// descriptors to live fields.
//
// A Catalog is built by Scan, which walks every non-framework module of a
// universe.Universe and creates one types.StatDescriptor per exported numeric
// field carrying a `stat` tag. Descriptors hold only identity strings.
// Bindings (field accessors) are resolved lazily through three tiers and
// cached; when the universe generation changes the cache is dropped and
// bindings are resolved again on next use.
//
// Get and Set never fail the caller. A descriptor that cannot be bound reads
// as zero and ignores writes, with a log entry explaining why.
package catalog

import (
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/statcraft/pkg/types"
	"github.com/mesh-intelligence/statcraft/pkg/universe"
)

// Catalog is the stat registry. Lookups are safe for concurrent use; the
// binding cache tolerates repeated concurrent resolution.
type Catalog struct {
	universe universe.Universe
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.RWMutex
	descriptors map[string]types.StatDescriptor
	order       []string // GUIDs, sorted
	scanID      string
	scannedAt   time.Time
	source      string

	cache *BindingCache
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithClock sets the time source used to stamp scans.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		c.now = now
	}
}

// WithSource labels snapshots produced by this catalog (for example the
// binary or package pattern that was scanned).
func WithSource(source string) Option {
	return func(c *Catalog) {
		c.source = source
	}
}

// New creates an empty catalog over u. Call Scan to populate it.
func New(u universe.Universe, opts ...Option) *Catalog {
	c := &Catalog{
		universe:    u,
		logger:      slog.Default(),
		now:         time.Now,
		descriptors: make(map[string]types.StatDescriptor),
		cache:       NewBindingCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatCount returns the number of descriptors in the catalog.
func (c *Catalog) StatCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Lookup returns the descriptor with the given GUID.
func (c *Catalog) Lookup(guid string) (types.StatDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.descriptors[guid]
	return d, ok
}

// Descriptors returns every descriptor sorted by GUID.
func (c *Catalog) Descriptors() []types.StatDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.StatDescriptor, 0, len(c.order))
	for _, guid := range c.order {
		out = append(out, c.descriptors[guid])
	}
	return out
}

// ByCategory returns a sequence of the descriptors in category, compared
// case-insensitively, in GUID order. The sequence may be ranged over more
// than once; each pass reflects the catalog at the time it starts.
func (c *Catalog) ByCategory(category string) iter.Seq[types.StatDescriptor] {
	want := types.FoldCategory(category)
	return func(yield func(types.StatDescriptor) bool) {
		for _, d := range c.Descriptors() {
			if types.FoldCategory(d.Category) != want {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

// Categories returns the distinct category names, sorted. Categories that
// differ only in case are reported once, with the spelling of the first
// descriptor in GUID order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.Descriptors() {
		key := types.FoldCategory(d.Category)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d.Category)
	}
	slices.Sort(out)
	return out
}

// LastScan returns the time of the last Scan or Restore.
func (c *Catalog) LastScan() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scannedAt
}

// Snapshot returns the persistable form of the catalog.
func (c *Catalog) Snapshot() types.CatalogSnapshot {
	descs := c.Descriptors()

	c.mu.RLock()
	defer c.mu.RUnlock()
	return types.CatalogSnapshot{
		ScanID:      c.scanID,
		ScannedAt:   c.scannedAt,
		Count:       len(descs),
		Source:      c.source,
		Descriptors: descs,
	}
}

// Restore replaces the catalog contents with a persisted snapshot. Bindings
// are not restored; they resolve lazily on first use. Duplicate GUIDs in the
// snapshot are rejected, first wins. It returns the number of descriptors
// loaded.
func (c *Catalog) Restore(snap types.CatalogSnapshot) int {
	descs := make(map[string]types.StatDescriptor, len(snap.Descriptors))
	for _, d := range snap.Descriptors {
		if _, dup := descs[d.GUID]; dup {
			c.logger.Warn("duplicate stat guid in snapshot", "guid", d.GUID, "scan_id", snap.ScanID)
			continue
		}
		descs[d.GUID] = d
	}

	c.mu.Lock()
	c.install(descs)
	c.scanID = snap.ScanID
	c.scannedAt = snap.ScannedAt
	if snap.Source != "" {
		c.source = snap.Source
	}
	c.mu.Unlock()

	c.cache.Clear()
	return len(descs)
}

// install swaps in a new descriptor set. The caller must hold c.mu.
func (c *Catalog) install(descs map[string]types.StatDescriptor) {
	order := make([]string, 0, len(descs))
	for guid := range descs {
		order = append(order, guid)
	}
	slices.Sort(order)
	c.descriptors = descs
	c.order = order
}

// newScanID generates a UUID v7 for a scan.
func newScanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
