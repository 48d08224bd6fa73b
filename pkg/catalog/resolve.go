package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// BindingCache holds resolved bindings keyed by stat GUID. It is owned by one
// catalog and remembers the universe generation its entries belong to.
type BindingCache struct {
	mu         sync.Mutex
	generation uint64
	slots      map[string]*bindingSlot
}

type bindingSlot struct {
	binding    *Binding
	unbindable bool
	warned     bool
}

// NewBindingCache creates an empty cache.
func NewBindingCache() *BindingCache {
	return &BindingCache{slots: make(map[string]*bindingSlot)}
}

// Clear drops every cached binding and unbindable mark.
func (bc *BindingCache) Clear() {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.slots = make(map[string]*bindingSlot)
}

// Invalidate drops the cached binding for one GUID.
func (bc *BindingCache) Invalidate(guid string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	delete(bc.slots, guid)
}

// Len returns the number of cached entries, bound or unbindable.
func (bc *BindingCache) Len() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.slots)
}

// sync clears the cache if gen differs from the generation it was filled at.
// It reports whether the cache was cleared.
func (bc *BindingCache) sync(gen uint64) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if bc.generation == gen {
		return false
	}
	stale := len(bc.slots) > 0
	bc.generation = gen
	bc.slots = make(map[string]*bindingSlot)
	return stale
}

func (bc *BindingCache) get(guid string) (bindingSlot, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	s, ok := bc.slots[guid]
	if !ok {
		return bindingSlot{}, false
	}
	return *s, true
}

func (bc *BindingCache) put(guid string, slot bindingSlot) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.slots[guid] = &slot
}

// markWarned records that the unbindable warning for guid was logged. It
// reports whether this call was the first to do so.
func (bc *BindingCache) markWarned(guid string) bool {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	s, ok := bc.slots[guid]
	if !ok || s.warned {
		return false
	}
	s.warned = true
	return true
}

// Cache returns the catalog's binding cache.
func (c *Catalog) Cache() *BindingCache { return c.cache }

// Invalidate drops the cached binding of one descriptor. The next access
// resolves it again.
func (c *Catalog) Invalidate(guid string) { c.cache.Invalidate(guid) }

// InvalidateAll drops every cached binding.
func (c *Catalog) InvalidateAll() { c.cache.Clear() }

// BindingState reports whether guid is bound, unbindable or not yet
// resolved, and the tier of a bound binding.
func (c *Catalog) BindingState(guid string) (types.BindingState, types.BindingTier) {
	c.syncGeneration()
	s, ok := c.cache.get(guid)
	switch {
	case !ok:
		return types.BindingUnresolved, types.TierNone
	case s.unbindable:
		return types.BindingUnbindable, types.TierNone
	default:
		return types.BindingBound, s.binding.Tier()
	}
}

// ResolveBinding returns the live binding for d, resolving it if needed.
// Tiers are tried in order: the stored qualified identity, the full type name
// anywhere in the universe, then the bare type name across every
// non-framework module. The outcome, success or failure, is cached. A
// failure wraps types.ErrUnbindable.
func (c *Catalog) ResolveBinding(d types.StatDescriptor) (*Binding, error) {
	c.syncGeneration()
	if s, ok := c.cache.get(d.GUID); ok {
		if s.unbindable {
			return nil, fmt.Errorf("%w: %s", types.ErrUnbindable, d.GUID)
		}
		return s.binding, nil
	}

	b := c.resolve(d)
	if b == nil {
		c.cache.put(d.GUID, bindingSlot{unbindable: true})
		return nil, fmt.Errorf("%w: %s", types.ErrUnbindable, d.GUID)
	}
	c.cache.put(d.GUID, bindingSlot{binding: b})
	c.logger.Debug("stat binding resolved", "guid", d.GUID, "tier", b.Tier().String())
	return b, nil
}

// Get reads the stat from target. Unbindable descriptors and conversion
// failures read as zero and are logged.
func (c *Catalog) Get(d types.StatDescriptor, target any) float32 {
	b, err := c.ResolveBinding(d)
	if err != nil {
		c.logUnbindable(d, "get")
		return 0
	}
	v, err := b.Get(target)
	if err != nil {
		c.logger.Warn("stat read failed", "guid", d.GUID, "err", err)
		return 0
	}
	return v
}

// Set writes value to the stat on target. Unbindable descriptors and
// conversion failures are logged and the write is skipped.
func (c *Catalog) Set(d types.StatDescriptor, target any, value float32) {
	b, err := c.ResolveBinding(d)
	if err != nil {
		c.logUnbindable(d, "set")
		return
	}
	if err := b.Set(target, value); err != nil {
		c.logger.Warn("stat write skipped", "guid", d.GUID, "value", value, "err", err)
	}
}

// syncGeneration drops the binding cache if the universe has been reloaded
// since it was filled.
func (c *Catalog) syncGeneration() {
	if c.cache.sync(c.universe.Generation()) {
		c.logger.Debug("universe reloaded, stat bindings invalidated", "generation", c.universe.Generation())
	}
}

// logUnbindable warns the first time a descriptor degrades and logs at debug
// level after that.
func (c *Catalog) logUnbindable(d types.StatDescriptor, op string) {
	if c.cache.markWarned(d.GUID) {
		c.logger.Warn("stat is unbindable, access degraded",
			"guid", d.GUID,
			"type", d.DeclaringType.QualifiedName,
			"op", op,
			"err", types.ErrUnbindable,
		)
		return
	}
	c.logger.Debug("unbindable stat accessed", "guid", d.GUID, "op", op)
}

// resolve runs the binding tiers for d and returns nil if all fail.
func (c *Catalog) resolve(d types.StatDescriptor) *Binding {
	id := d.DeclaringType
	modules := c.universe.Modules()

	// Tier 1: the module named by the identity hint holds the exact type.
	for _, m := range modules {
		if m.Path != id.Module {
			continue
		}
		for _, t := range c.moduleTypes(m.Path, m.Types) {
			if types.TypeFullName(t) != id.FullName {
				continue
			}
			if b, ok := newBinding(d.GUID, t, d.FieldName, types.TierQualified); ok {
				return b
			}
		}
	}

	// Tier 2: the full type name anywhere in the universe.
	for _, m := range modules {
		for _, t := range c.moduleTypes(m.Path, m.Types) {
			if types.TypeFullName(t) != id.FullName {
				continue
			}
			if b, ok := newBinding(d.GUID, t, d.FieldName, types.TierFullName); ok {
				return b
			}
		}
	}

	// Tier 3: bare type name across non-framework modules.
	short := id.ShortName()
	for _, m := range modules {
		if m.Framework {
			continue
		}
		for _, t := range c.moduleTypes(m.Path, m.Types) {
			if t.Name() != short {
				continue
			}
			if b, ok := newBinding(d.GUID, t, d.FieldName, types.TierExhaustive); ok {
				return b
			}
		}
	}
	return nil
}

// moduleTypes enumerates a module's types including embedded structs. A
// module that cannot be enumerated contributes nothing.
func (c *Catalog) moduleTypes(path string, enumerate func() ([]reflect.Type, error)) []reflect.Type {
	typs, err := enumerate()
	if err != nil {
		c.logger.Debug("module unavailable during binding resolution",
			"module", path,
			"err", errors.Join(types.ErrScanModule, err),
		)
		return nil
	}
	return reachableTypes(typs)
}
