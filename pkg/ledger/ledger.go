// Package ledger holds the active modifiers of one target and composes them
// into final stat values.
//
// A Ledger owns the modifier records applied to a single target (an actor, a
// unit, a save slot). Every mutation re-resolves the stats it touches: the
// base value is read through the catalog binding, the stage pipeline in
// Compose runs over the active records, and the result is written back.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// Binder reads and writes stat fields. *catalog.Catalog implements it.
type Binder interface {
	Lookup(guid string) (types.StatDescriptor, bool)
	Get(d types.StatDescriptor, target any) float32
	Set(d types.StatDescriptor, target any, value float32)
}

// Ledger is the modifier ledger of one target. It is safe for concurrent
// use. Conditions run with the ledger locked and must not call back into it.
type Ledger struct {
	binder Binder
	target any
	logger *slog.Logger
	newID  func() string

	mu      sync.Mutex
	entries map[string][]*entry // stat GUID -> records in add order
	bases   map[string]baseState
	seq     uint64
	elapsed time.Duration
}

type entry struct {
	record    types.ModifierRecord
	seq       uint64
	expiresAt time.Duration // zero for permanent records
}

// baseState remembers the pre-modifier value of a stat and the value the
// ledger last wrote over it.
type baseState struct {
	base    float64
	written float32
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithIDGenerator replaces the record ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		l.newID = gen
	}
}

// New creates an empty ledger for target.
func New(binder Binder, target any, opts ...Option) *Ledger {
	l := &Ledger{
		binder:  binder,
		target:  target,
		logger:  slog.Default(),
		newID:   newRecordID,
		entries: make(map[string][]*entry),
		bases:   make(map[string]baseState),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Target returns the object the ledger writes to.
func (l *Ledger) Target() any { return l.target }

// Add inserts record, replacing any record with the same source, stat and
// kind, then resolves the stat. Unknown kinds are stored as Flat and unknown
// policies as Additive, with a warning. PolicyDefault is stored as the kind's
// default policy. The stored record is returned.
func (l *Ledger) Add(record types.ModifierRecord) (types.ModifierRecord, error) {
	if err := record.Validate(); err != nil {
		return types.ModifierRecord{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stored := l.insertLocked(record)
	l.resolveLocked(stored.StatGUID)
	return stored, nil
}

// RemoveBySource removes every record of source and resolves the affected
// stats. Removing a source with no records is a no-op. It returns the number
// of records removed.
func (l *Ledger) RemoveBySource(source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for _, stat := range l.statsLocked() {
		if n := l.removeLocked(stat, source); n > 0 {
			removed += n
			l.resolveLocked(stat)
		}
	}
	return removed
}

// RemoveStatSource removes the records of source on one stat.
func (l *Ledger) RemoveStatSource(statGUID, source string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.removeLocked(statGUID, source)
	if n > 0 {
		l.resolveLocked(statGUID)
	}
	return n
}

// ReplaceSource swaps the contribution of source in one step: the records of
// source on stats and on every stat named by records are removed, records are
// inserted, and each affected stat is resolved once. Either every record is
// valid and the swap happens, or nothing changes.
func (l *Ledger) ReplaceSource(source string, stats []string, records []types.ModifierRecord) error {
	var errs []error
	for i, r := range records {
		if r.Source != source {
			errs = append(errs, fmt.Errorf("record %d: %w: source %q, want %q", i, types.ErrInvalidRecord, r.Source, source))
			continue
		}
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	affected := slices.Clone(stats)
	for _, r := range records {
		affected = append(affected, r.StatGUID)
	}
	slices.Sort(affected)
	affected = slices.Compact(affected)

	for _, stat := range affected {
		l.removeLocked(stat, source)
	}
	for _, r := range records {
		l.insertLocked(r)
	}
	for _, stat := range affected {
		l.resolveLocked(stat)
	}
	return nil
}

// Resolve recomputes one stat, writes it to the target and returns it.
func (l *Ledger) Resolve(statGUID string) float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolveLocked(statGUID)
}

// ResolveAll recomputes every stat the ledger has touched.
func (l *Ledger) ResolveAll() map[string]float32 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]float32)
	for _, stat := range l.touchedLocked() {
		out[stat] = l.resolveLocked(stat)
	}
	return out
}

// Explain composes a stat without writing it back.
func (l *Ledger) Explain(statGUID string) (Breakdown, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, ok := l.binder.Lookup(statGUID)
	if !ok {
		return Breakdown{}, fmt.Errorf("%w: %s", types.ErrStatNotFound, statGUID)
	}
	return Compose(l.baseLocked(d), l.activeLocked(statGUID)), nil
}

// Records returns the records on a stat in add order.
func (l *Ledger) Records(statGUID string) []types.ModifierRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	es := l.entries[statGUID]
	out := make([]types.ModifierRecord, 0, len(es))
	for _, e := range es {
		out = append(out, e.record)
	}
	return out
}

// Stats returns the GUIDs of stats that hold records, sorted.
func (l *Ledger) Stats() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statsLocked()
}

// Sources returns the distinct sources with records in the ledger, sorted.
func (l *Ledger) Sources() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string
	for _, es := range l.entries {
		for _, e := range es {
			out = append(out, e.record.Source)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Len returns the number of records in the ledger.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, es := range l.entries {
		n += len(es)
	}
	return n
}

// Update advances the ledger clock by dt, removes records whose duration has
// run out and resolves the affected stats. It returns the number of records
// removed.
func (l *Ledger) Update(dt time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dt > 0 {
		l.elapsed += dt
	}
	culled := 0
	for _, stat := range l.statsLocked() {
		es := l.entries[stat]
		kept := slices.DeleteFunc(es, func(e *entry) bool {
			return e.expiresAt > 0 && e.expiresAt <= l.elapsed
		})
		n := len(es) - len(kept)
		if n == 0 {
			continue
		}
		culled += n
		l.setEntriesLocked(stat, kept)
		l.logger.Debug("modifiers expired", "stat", stat, "count", n)
		l.resolveLocked(stat)
	}
	return culled
}

// Elapsed returns the ledger clock.
func (l *Ledger) Elapsed() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.elapsed
}

// Clear removes every record and restores each touched stat to its base.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := l.touchedLocked()
	l.entries = make(map[string][]*entry)
	for _, stat := range stats {
		l.resolveLocked(stat)
	}
	l.bases = make(map[string]baseState)
}

// insertLocked stores a record, replacing the one with the same key.
func (l *Ledger) insertLocked(r types.ModifierRecord) types.ModifierRecord {
	if !r.Kind.Valid() {
		l.logger.Warn("unknown modifier kind, treating as flat",
			"stat", r.StatGUID, "source", r.Source,
			"err", fmt.Errorf("%w: %d", types.ErrUnknownKind, int(r.Kind)),
		)
		r.Kind = types.KindFlat
	}
	if !r.Policy.Valid() {
		l.logger.Warn("unknown stacking policy, treating as additive",
			"stat", r.StatGUID, "source", r.Source,
			"err", fmt.Errorf("%w: %d", types.ErrUnknownPolicy, int(r.Policy)),
		)
		r.Policy = types.PolicyAdditive
	}
	r.Policy = r.Policy.Resolve(r.Kind)
	if r.ID == "" {
		r.ID = l.newID()
	}

	key := r.Key()
	es := slices.DeleteFunc(l.entries[r.StatGUID], func(e *entry) bool {
		return e.record.Key() == key
	})
	l.seq++
	e := &entry{record: r, seq: l.seq}
	if !r.Permanent() {
		e.expiresAt = l.elapsed + r.Duration
	}
	l.entries[r.StatGUID] = append(es, e)
	return r
}

// removeLocked drops the records of source on stat.
func (l *Ledger) removeLocked(stat, source string) int {
	es := l.entries[stat]
	kept := slices.DeleteFunc(es, func(e *entry) bool {
		return e.record.Source == source
	})
	n := len(es) - len(kept)
	if n > 0 {
		l.setEntriesLocked(stat, kept)
	}
	return n
}

func (l *Ledger) setEntriesLocked(stat string, es []*entry) {
	if len(es) == 0 {
		delete(l.entries, stat)
		return
	}
	l.entries[stat] = es
}

// statsLocked returns the stats holding records, sorted.
func (l *Ledger) statsLocked() []string {
	out := make([]string, 0, len(l.entries))
	for stat := range l.entries {
		out = append(out, stat)
	}
	slices.Sort(out)
	return out
}

// touchedLocked returns the stats holding records or a remembered base.
func (l *Ledger) touchedLocked() []string {
	out := l.statsLocked()
	for stat := range l.bases {
		out = append(out, stat)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// activeLocked returns the records of stat that take part in a resolution.
func (l *Ledger) activeLocked(stat string) []types.ModifierRecord {
	es := l.entries[stat]
	out := make([]types.ModifierRecord, 0, len(es))
	for _, e := range es {
		if e.expiresAt > 0 && e.expiresAt <= l.elapsed {
			continue
		}
		if e.record.Condition != nil && !e.record.Condition(l.target) {
			continue
		}
		out = append(out, e.record)
	}
	return out
}

// baseLocked reads the pre-modifier value of d. A read equal to the last
// value written back means nothing else changed the field, so the remembered
// base is used; any other read is an external write and becomes the base.
func (l *Ledger) baseLocked(d types.StatDescriptor) float64 {
	current := l.binder.Get(d, l.target)
	if bs, ok := l.bases[d.GUID]; ok && bs.written == current {
		return bs.base
	}
	return float64(current)
}

// resolveLocked composes stat and writes the result through the binder.
func (l *Ledger) resolveLocked(stat string) float32 {
	d, ok := l.binder.Lookup(stat)
	if !ok {
		l.logger.Warn("cannot resolve stat", "stat", stat, "err", types.ErrStatNotFound)
		return 0
	}

	base := l.baseLocked(d)
	active := l.activeLocked(stat)
	if len(l.entries[stat]) == 0 {
		// Nothing left on the stat: restore the base and forget it.
		l.binder.Set(d, l.target, float32(base))
		delete(l.bases, stat)
		return float32(base)
	}

	result := Compose(base, active)
	if math.IsNaN(result.Value) || math.IsInf(result.Value, 0) || math.Abs(result.Value) > math.MaxFloat32 {
		l.logger.Warn("stat result out of range, write skipped",
			"stat", stat,
			"value", result.Value,
			"err", types.ErrValueConversion,
		)
		return l.binder.Get(d, l.target)
	}

	l.binder.Set(d, l.target, float32(result.Value))
	written := l.binder.Get(d, l.target)
	l.bases[stat] = baseState{base: base, written: written}
	return written
}

// newRecordID generates a UUID v7 for a modifier record.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
