package catalog

import (
	"context"
	"fmt"
	"reflect"

	"github.com/mesh-intelligence/statcraft/pkg/types"
	"github.com/mesh-intelligence/statcraft/pkg/universe"
)

// Scan rebuilds the catalog from the universe. Modules that fail to
// enumerate are logged and skipped. Scanning an unchanged universe again
// yields the same descriptors and GUIDs.
func (c *Catalog) Scan() types.ScanReport {
	report, _ := c.ScanContext(context.Background())
	return report
}

// ScanContext is Scan with cancellation between modules. A cancelled scan
// leaves the catalog unchanged and returns the context error.
func (c *Catalog) ScanContext(ctx context.Context) (types.ScanReport, error) {
	report := types.ScanReport{Generation: c.universe.Generation()}
	found := make(map[string]types.StatDescriptor)
	visited := make(map[reflect.Type]bool)

	for _, m := range c.universe.Modules() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if m.Framework {
			continue
		}
		typs, err := m.Types()
		if err != nil {
			c.logger.Warn("skipping module",
				"module", m.Path,
				"err", fmt.Errorf("%w: %w", types.ErrScanModule, err),
			)
			report.SkippedModules = append(report.SkippedModules, m.Path)
			continue
		}
		for _, t := range typs {
			c.scanType(m, t, visited, found, &report)
		}
	}

	c.mu.Lock()
	previous := c.descriptors
	for guid := range found {
		if _, ok := previous[guid]; !ok {
			report.Added++
		}
	}
	for guid := range previous {
		if _, ok := found[guid]; !ok {
			report.Removed++
		}
	}
	c.install(found)
	c.scanID = newScanID()
	c.scannedAt = c.now()
	c.mu.Unlock()

	c.cache.Clear()

	c.logger.Info("stat scan complete",
		"found", report.Found,
		"added", report.Added,
		"removed", report.Removed,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
		"skipped_modules", len(report.SkippedModules),
		"generation", report.Generation,
	)
	return report, nil
}

// scanType registers the tagged fields of t and of every struct it embeds.
// Unexported struct types are scanned like exported ones.
// Each type is walked once per scan; promoted fields belong to the embedded
// type that declares them.
func (c *Catalog) scanType(m universe.Module, t reflect.Type, visited map[reflect.Type]bool, found map[string]types.StatDescriptor, report *types.ScanReport) {
	t = structType(t)
	if t == nil || visited[t] {
		return
	}
	visited[t] = true

	owner := types.NewTypeIdentity(t, m.Path)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			if et := structType(f.Type); et != nil {
				c.scanType(m, et, visited, found, report)
			}
		}

		tag, ok, err := types.LookupStatTag(f.Tag)
		if !ok {
			continue
		}
		guid := types.StatGUID(owner.FullName, f.Name)
		if err != nil {
			c.logger.Warn("skipping stat with invalid tag", "guid", guid, "err", err)
			report.Skipped++
			continue
		}
		if !f.IsExported() {
			c.logger.Warn("skipping unexported stat field", "guid", guid)
			report.Skipped++
			continue
		}
		if !isNumeric(f.Type.Kind()) {
			c.logger.Warn("skipping non-numeric stat field",
				"guid", guid,
				"kind", f.Type.Kind().String(),
				"err", types.ErrValueConversion,
			)
			report.Skipped++
			continue
		}

		report.Found++
		if existing, dup := found[guid]; dup {
			c.logger.Warn("rejecting duplicate stat guid",
				"guid", guid,
				"kept", existing.DeclaringType.QualifiedName,
				"rejected", owner.QualifiedName,
				"err", types.ErrDuplicateGUID,
			)
			report.Duplicates++
			continue
		}
		found[guid] = types.NewStatDescriptor(owner, f.Name, tag)
	}
}

// structType unwraps pointers and returns t if it is a struct, nil otherwise.
func structType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// reachableTypes returns typs plus every struct type they embed, without
// duplicates, in discovery order.
func reachableTypes(typs []reflect.Type) []reflect.Type {
	var out []reflect.Type
	seen := make(map[reflect.Type]bool)
	var walk func(reflect.Type)
	walk = func(t reflect.Type) {
		t = structType(t)
		if t == nil || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
		for i := 0; i < t.NumField(); i++ {
			if f := t.Field(i); f.Anonymous {
				walk(f.Type)
			}
		}
	}
	for _, t := range typs {
		walk(t)
	}
	return out
}
