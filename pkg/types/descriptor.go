package types

import (
	"reflect"
	"strings"
	"time"
)

// TypeIdentity names the type that declares a stat field. Only strings are
// stored so the identity survives a reload that invalidates reflect handles.
type TypeIdentity struct {
	FullName      string `json:"full_name" yaml:"full_name"`           // "github.com/acme/game.Hero"
	QualifiedName string `json:"qualified_name" yaml:"qualified_name"` // FullName + ", " + Module
	Module        string `json:"module" yaml:"module"`                 // universe module the type was found in
}

// NewTypeIdentity builds the identity for t as registered under module.
// Pointer types are dereferenced to their element.
func NewTypeIdentity(t reflect.Type, module string) TypeIdentity {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	full := TypeFullName(t)
	return TypeIdentity{
		FullName:      full,
		QualifiedName: QualifiedName(full, module),
		Module:        module,
	}
}

// TypeFullName returns "PkgPath.Name" for a named type, or the type's string
// form for unnamed types.
func TypeFullName(t reflect.Type) string {
	if t.Name() == "" {
		return t.String()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// QualifiedName joins a full type name and its module hint.
func QualifiedName(fullName, module string) string {
	if module == "" {
		return fullName
	}
	return fullName + ", " + module
}

// ShortName returns the bare type name: the segment after the last dot of
// FullName.
func (id TypeIdentity) ShortName() string {
	if i := strings.LastIndex(id.FullName, "."); i >= 0 {
		return id.FullName[i+1:]
	}
	return id.FullName
}

// String returns the qualified name.
func (id TypeIdentity) String() string {
	return id.QualifiedName
}

// StatGUID builds the stable identity of a stat: "{DeclaringTypeFullName}.{FieldName}".
// The format is persisted and must not change.
func StatGUID(declaringTypeFullName, fieldName string) string {
	return declaringTypeFullName + "." + fieldName
}

// StatDescriptor is the discovered identity and metadata for one stat.
// It is immutable after a scan; the live binding is cached by the catalog,
// not here.
type StatDescriptor struct {
	GUID          string       `json:"guid" yaml:"guid"`
	FieldName     string       `json:"field_name" yaml:"field_name"`
	DisplayName   string       `json:"display_name" yaml:"display_name"`
	Category      string       `json:"category" yaml:"category"`
	Description   string       `json:"description,omitempty" yaml:"description,omitempty"`
	DeclaringType TypeIdentity `json:"declaring_type" yaml:"declaring_type"`
	ShowInUI      bool         `json:"show_in_ui" yaml:"show_in_ui"`
}

// NewStatDescriptor builds a descriptor for a tagged field of the declaring type.
func NewStatDescriptor(declaring TypeIdentity, fieldName string, tag StatTag) StatDescriptor {
	display := tag.DisplayName
	if display == "" {
		display = DisplayNameFromField(fieldName)
	}
	category := tag.Category
	if category == "" {
		category = DefaultCategory
	}
	return StatDescriptor{
		GUID:          StatGUID(declaring.FullName, fieldName),
		FieldName:     fieldName,
		DisplayName:   display,
		Category:      category,
		Description:   tag.Description,
		DeclaringType: declaring,
		ShowInUI:      tag.ShowInUI,
	}
}

// ScanReport summarizes one catalog scan.
type ScanReport struct {
	Found          int      `json:"found"`           // tagged fields discovered
	Added          int      `json:"added"`           // descriptors not present before the scan
	Removed        int      `json:"removed"`         // descriptors present before but not found again
	Duplicates     int      `json:"duplicates"`      // fields rejected for reusing a GUID
	Skipped        int      `json:"skipped"`         // tagged fields that are not bindable
	SkippedModules []string `json:"skipped_modules"` // modules that failed to enumerate
	Generation     uint64   `json:"generation"`
}

// CatalogSnapshot is the persisted form of a catalog: the descriptor list,
// the scan time and the count.
type CatalogSnapshot struct {
	ScanID      string           `json:"scan_id"`
	ScannedAt   time.Time        `json:"scanned_at"`
	Count       int              `json:"count"`
	Source      string           `json:"source,omitempty"`
	Descriptors []StatDescriptor `json:"-"`
}

// BindingState describes how far a descriptor's binding has been resolved.
type BindingState int

const (
	BindingUnresolved BindingState = iota
	BindingBound
	BindingUnbindable
)

// String returns the lower-case name of the state.
func (s BindingState) String() string {
	switch s {
	case BindingBound:
		return "bound"
	case BindingUnbindable:
		return "unbindable"
	default:
		return "unresolved"
	}
}

// BindingTier identifies which resolution strategy produced a binding.
type BindingTier int

const (
	TierNone BindingTier = iota
	// TierQualified matched the stored qualified identity exactly.
	TierQualified
	// TierFullName matched the full type name in any module of the universe.
	TierFullName
	// TierExhaustive matched the bare type name by searching every
	// non-framework module.
	TierExhaustive
)

// String returns the lower-case name of the tier.
func (t BindingTier) String() string {
	switch t {
	case TierQualified:
		return "qualified"
	case TierFullName:
		return "full_name"
	case TierExhaustive:
		return "exhaustive"
	default:
		return "none"
	}
}
