// Package universe holds the set of loaded types a stat catalog scans.
//
// Go cannot enumerate the types linked into a binary, so gameplay code
// registers the types that may carry stats, grouped into modules (usually one
// per Go package or plugin). Every mutation bumps the registry generation;
// a catalog that observes a new generation treats all cached bindings as
// stale, the same way a host invalidates reflection handles after a reload.
package universe

import (
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Universe is the read side of a type registry.
type Universe interface {
	// Modules returns a snapshot of the registered modules, sorted by path.
	Modules() []Module
	// Generation increases every time the set of modules or types changes.
	Generation() uint64
}

// Module is a named group of types.
type Module struct {
	Path      string
	Framework bool

	types []reflect.Type
	load  func() ([]reflect.Type, error)
}

// Types enumerates the module's types. A module registered with a loader
// function may fail; callers skip such modules.
func (m Module) Types() ([]reflect.Type, error) {
	if m.load != nil {
		return m.load()
	}
	return slices.Clone(m.types), nil
}

// Registry is the default Universe. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	modules    map[string]*Module
	framework  []string
	generation uint64
}

// Option configures a Registry.
type Option func(*Registry)

// WithFrameworkPrefixes marks module paths with any of the prefixes as
// framework modules.
func WithFrameworkPrefixes(prefixes ...string) Option {
	return func(r *Registry) {
		r.framework = append(r.framework, prefixes...)
	}
}

// NewRegistry creates an empty registry at generation 1.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		modules:    make(map[string]*Module),
		generation: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds the types of the sample values to module. A sample may be a
// value, a pointer to a value, or a reflect.Type. Registering a type twice
// is a no-op.
func (r *Registry) Register(module string, samples ...any) {
	types := make([]reflect.Type, 0, len(samples))
	for _, s := range samples {
		if t, ok := s.(reflect.Type); ok {
			types = append(types, t)
			continue
		}
		if s == nil {
			continue
		}
		types = append(types, reflect.TypeOf(s))
	}
	r.RegisterTypes(module, types...)
}

// RegisterTypes adds types to module, creating the module if needed.
func (r *Registry) RegisterTypes(module string, types ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.moduleLocked(module)
	m.load = nil
	changed := false
	for _, t := range types {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if slices.Contains(m.types, t) {
			continue
		}
		m.types = append(m.types, t)
		changed = true
	}
	if changed {
		r.generation++
	}
}

// RegisterFunc registers a module whose types are produced lazily by load.
// Errors from load mark the module as unintrospectable for that scan.
func (r *Registry) RegisterFunc(module string, load func() ([]reflect.Type, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.moduleLocked(module)
	m.types = nil
	m.load = load
	r.generation++
}

// Remove drops a module. It reports whether the module existed.
func (r *Registry) Remove(module string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.modules[module]; !ok {
		return false
	}
	delete(r.modules, module)
	r.generation++
	return true
}

// MarkFramework marks module paths with any of the prefixes as framework
// modules. Framework modules are never scanned or searched.
func (r *Registry) MarkFramework(prefixes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.framework = append(r.framework, prefixes...)
	for path, m := range r.modules {
		m.Framework = r.isFrameworkLocked(path)
	}
	r.generation++
}

// IsFramework reports whether module matches a framework prefix.
func (r *Registry) IsFramework(module string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isFrameworkLocked(module)
}

// Reload bumps the generation without changing the registered types,
// signalling that previously resolved handles must not be trusted.
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
}

// Modules returns a snapshot of the registered modules, sorted by path.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Module, 0, len(r.modules))
	for _, m := range r.modules {
		cp := *m
		cp.types = slices.Clone(m.types)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b Module) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

// Generation returns the current generation.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Count returns the number of registered modules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.modules)
}

func (r *Registry) moduleLocked(path string) *Module {
	m, ok := r.modules[path]
	if !ok {
		m = &Module{Path: path, Framework: r.isFrameworkLocked(path)}
		r.modules[path] = m
	}
	return m
}

func (r *Registry) isFrameworkLocked(path string) bool {
	for _, p := range r.framework {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
