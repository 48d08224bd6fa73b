// Package source discovers stat fields by static analysis of Go packages.
//
// It mirrors catalog.Scan for code that is not linked into the running
// binary: packages are loaded with golang.org/x/tools/go/packages and every
// exported struct type is searched for `stat`-tagged numeric fields. The
// result is a catalog snapshot that can be saved, exported, or restored into
// a live catalog, where bindings resolve lazily.
package source

import (
	"errors"
	"fmt"
	"go/types"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"golang.org/x/tools/go/packages"

	stattypes "github.com/mesh-intelligence/statcraft/pkg/types"
)

// LoadMode specifies what information to load from packages.
const LoadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo |
	packages.NeedImports |
	packages.NeedModule

// Scanner loads packages and extracts stat descriptors.
type Scanner struct {
	dir        string
	logger     *slog.Logger
	frameworks []string
	now        func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDir sets the directory patterns are resolved against.
func WithDir(dir string) Option {
	return func(s *Scanner) {
		s.dir = dir
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithFrameworkPrefixes sets the module path prefixes that are never
// searched.
func WithFrameworkPrefixes(prefixes ...string) Option {
	return func(s *Scanner) {
		s.frameworks = prefixes
	}
}

// WithClock sets the time source used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		logger:     slog.Default(),
		frameworks: stattypes.DefaultFrameworkPrefixes,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of a static scan.
type Result struct {
	Snapshot stattypes.CatalogSnapshot
	Report   stattypes.ScanReport
}

// Scan loads the packages matching patterns and returns their descriptors,
// sorted by GUID. Packages that fail to load are logged and reported in
// SkippedModules; only a failure of the loader itself is returned.
func (s *Scanner) Scan(patterns ...string) (Result, error) {
	cfg := &packages.Config{
		Mode: LoadMode,
		Dir:  s.dir,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load packages: %w", err)
	}

	var report stattypes.ScanReport
	found := make(map[string]stattypes.StatDescriptor)

	slices.SortFunc(pkgs, func(a, b *packages.Package) int {
		return strings.Compare(a.PkgPath, b.PkgPath)
	})
	for _, pkg := range pkgs {
		module := modulePath(pkg)
		if s.isFramework(module) {
			continue
		}
		if len(pkg.Errors) > 0 || pkg.Types == nil {
			errs := make([]error, 0, len(pkg.Errors))
			for _, e := range pkg.Errors {
				errs = append(errs, e)
			}
			s.logger.Warn("skipping package",
				"package", pkg.PkgPath,
				"err", fmt.Errorf("%w: %w", stattypes.ErrScanModule, errors.Join(errs...)),
			)
			report.SkippedModules = append(report.SkippedModules, pkg.PkgPath)
			continue
		}
		s.scanPackage(pkg, module, found, &report)
	}

	descs := make([]stattypes.StatDescriptor, 0, len(found))
	for _, d := range found {
		descs = append(descs, d)
	}
	slices.SortFunc(descs, func(a, b stattypes.StatDescriptor) int {
		return strings.Compare(a.GUID, b.GUID)
	})
	report.Added = len(descs)

	s.logger.Info("static stat scan complete",
		"patterns", strings.Join(patterns, " "),
		"found", report.Found,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped,
		"skipped_packages", len(report.SkippedModules),
	)
	return Result{
		Snapshot: stattypes.CatalogSnapshot{
			ScannedAt:   s.now(),
			Count:       len(descs),
			Source:      strings.Join(patterns, " "),
			Descriptors: descs,
		},
		Report: report,
	}, nil
}

// scanPackage extracts descriptors from the struct types declared in pkg.
// Unexported types are included, as they are at runtime: their exported
// fields are reachable through embedding and through registered values.
func (s *Scanner) scanPackage(pkg *packages.Package, module string, found map[string]stattypes.StatDescriptor, report *stattypes.ScanReport) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		typeName, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || typeName.IsAlias() {
			continue
		}
		st, ok := typeName.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}

		fullName := pkg.PkgPath + "." + name
		owner := stattypes.TypeIdentity{
			FullName:      fullName,
			QualifiedName: stattypes.QualifiedName(fullName, module),
			Module:        module,
		}
		for i := 0; i < st.NumFields(); i++ {
			s.scanField(owner, st.Field(i), reflect.StructTag(st.Tag(i)), found, report)
		}
	}
}

func (s *Scanner) scanField(owner stattypes.TypeIdentity, field *types.Var, tag reflect.StructTag, found map[string]stattypes.StatDescriptor, report *stattypes.ScanReport) {
	st, ok, err := stattypes.LookupStatTag(tag)
	if !ok {
		return
	}
	guid := stattypes.StatGUID(owner.FullName, field.Name())
	switch {
	case err != nil:
		s.logger.Warn("skipping stat with invalid tag", "guid", guid, "err", err)
		report.Skipped++
		return
	case !field.Exported():
		s.logger.Warn("skipping unexported stat field", "guid", guid)
		report.Skipped++
		return
	case !isNumeric(field.Type()):
		s.logger.Warn("skipping non-numeric stat field",
			"guid", guid,
			"type", field.Type().String(),
			"err", stattypes.ErrValueConversion,
		)
		report.Skipped++
		return
	}

	report.Found++
	if existing, dup := found[guid]; dup {
		s.logger.Warn("rejecting duplicate stat guid",
			"guid", guid,
			"kept", existing.DeclaringType.QualifiedName,
			"rejected", owner.QualifiedName,
			"err", stattypes.ErrDuplicateGUID,
		)
		report.Duplicates++
		return
	}
	found[guid] = stattypes.NewStatDescriptor(owner, field.Name(), st)
}

func (s *Scanner) isFramework(module string) bool {
	for _, p := range s.frameworks {
		if module == strings.TrimSuffix(p, "/") || strings.HasPrefix(module, p) {
			return true
		}
	}
	return false
}

// modulePath returns the module of pkg, or its package path when it is not
// part of a module.
func modulePath(pkg *packages.Package) string {
	if pkg.Module != nil && pkg.Module.Path != "" {
		return pkg.Module.Path
	}
	return pkg.PkgPath
}

// isNumeric reports whether t is an integer or floating-point type,
// including named types over them.
func isNumeric(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	info := b.Info()
	return info&(types.IsInteger|types.IsFloat) != 0 && info&types.IsComplex == 0
}
