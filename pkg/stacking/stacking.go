// Package stacking recomputes the contribution of a stackable source when
// its unit count changes.
//
// Picking up a second copy of an item does not layer a second modifier on
// top of the first. The Recomputer replaces the whole contribution of the
// source with records built from the per-unit definition and the new count.
package stacking

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// Ledger is the ledger surface the recomputer drives. *ledger.Ledger
// implements it.
type Ledger interface {
	ReplaceSource(source string, stats []string, records []types.ModifierRecord) error
	RemoveBySource(source string) int
}

// Recomputer tracks unit counts per source for one target.
type Recomputer struct {
	ledger Ledger
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]uint32
}

// Option configures a Recomputer.
type Option func(*Recomputer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recomputer) {
		r.logger = logger
	}
}

// New creates a recomputer over ledger.
func New(ledger Ledger, opts ...Option) *Recomputer {
	r := &Recomputer{
		ledger: ledger,
		logger: slog.Default(),
		counts: make(map[string]uint32),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ApplyItem sets the unit count of source to count and rebuilds its records
// from perUnit using curve. The previous records of source on every stat
// named by perUnit are replaced in one ledger step. A count of zero removes
// the contribution.
func (r *Recomputer) ApplyItem(source string, perUnit []types.PerUnitModifier, count uint32, curve types.StackCurve) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make([]string, 0, len(perUnit))
	records := make([]types.ModifierRecord, 0, len(perUnit))
	for _, m := range perUnit {
		stats = append(stats, m.StatGUID)
		if count == 0 {
			continue
		}
		records = append(records, m.Record(source, curve.Effective(m.Magnitude, count)))
	}

	if err := r.ledger.ReplaceSource(source, stats, records); err != nil {
		return err
	}

	if count == 0 {
		delete(r.counts, source)
	} else {
		r.counts[source] = count
	}
	r.logger.Debug("stack recomputed",
		"source", source,
		"count", count,
		"curve", curve.String(),
		"records", len(records),
	)
	return nil
}

// Remove drops every record of source and forgets its count.
func (r *Recomputer) Remove(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.counts, source)
	return r.ledger.RemoveBySource(source)
}

// Count returns the current unit count of source.
func (r *Recomputer) Count(source string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[source]
}

// Counts returns a copy of the stack count table.
func (r *Recomputer) Counts() map[string]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.counts)
}

// Sources returns the sources with a nonzero count, sorted.
func (r *Recomputer) Sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.counts))
}
