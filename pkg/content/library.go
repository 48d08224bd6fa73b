// Package content loads item and ability definitions from YAML and applies
// them to targets.
//
// Definition files are YAML documents validated against an embedded JSON
// schema before they are decoded. A file may hold several documents. The
// library digest covers every loaded file so callers can tell when content
// changed.
package content

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

//go:embed definition.schema.json
var definitionSchema string

const schemaURL = "https://statcraft.dev/schemas/definition.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString(schemaURL, definitionSchema)
})

// Library is a set of definitions keyed by ID.
type Library struct {
	defs   map[string]Definition
	order  []string
	digest string
}

// Problem is a definition modifier that targets a stat the catalog does not
// know.
type Problem struct {
	Definition string `json:"definition"`
	Stat       string `json:"stat"`
	File       string `json:"file,omitempty"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: unknown stat %s", p.Definition, p.Stat)
}

// StatLookup finds descriptors by GUID. *catalog.Catalog implements it.
type StatLookup interface {
	Lookup(guid string) (types.StatDescriptor, bool)
}

// LoadDir reads every .yaml and .yml file under dir. A missing directory
// yields an empty library.
func LoadDir(dir string) (*Library, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewLibrary(nil)
		}
		return nil, fmt.Errorf("reading content dir %s: %w", dir, err)
	}
	slices.Sort(files)

	var (
		defs   []Definition
		concat bytes.Buffer
	)
	for _, path := range files {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		concat.Write(raw)
		concat.WriteByte('\n')

		parsed, err := Parse(filepath.Base(path), raw)
		if err != nil {
			return nil, err
		}
		defs = append(defs, parsed...)
	}

	lib, err := NewLibrary(defs)
	if err != nil {
		return nil, err
	}
	lib.digest = sha256Hex(concat.Bytes())
	return lib, nil
}

// NewLibrary builds a library from already-decoded definitions. Duplicate IDs
// are rejected.
func NewLibrary(defs []Definition) (*Library, error) {
	lib := &Library{defs: make(map[string]Definition, len(defs))}
	var (
		buf  bytes.Buffer
		errs []error
	)
	for _, d := range defs {
		if prev, dup := lib.defs[d.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %s in %s and %s", types.ErrDuplicateDefinition, d.ID, prev.File, d.File))
			continue
		}
		lib.defs[d.ID] = d
		lib.order = append(lib.order, d.ID)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	slices.Sort(lib.order)

	for _, id := range lib.order {
		b, _ := json.Marshal(lib.defs[id])
		buf.Write(b)
		buf.WriteByte('\n')
	}
	lib.digest = sha256Hex(buf.Bytes())
	return lib, nil
}

// Get returns the definition with the given ID.
func (l *Library) Get(id string) (Definition, error) {
	d, ok := l.defs[id]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", types.ErrDefinitionNotFound, id)
	}
	return d, nil
}

// Definitions returns every definition sorted by ID.
func (l *Library) Definitions() []Definition {
	out := make([]Definition, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.defs[id])
	}
	return out
}

// Len returns the number of definitions.
func (l *Library) Len() int { return len(l.order) }

// Digest returns the hex SHA-256 of the loaded content.
func (l *Library) Digest() string { return l.digest }

// Check reports every modifier whose stat is not in the catalog.
func (l *Library) Check(stats StatLookup) []Problem {
	var out []Problem
	for _, d := range l.Definitions() {
		for _, guid := range d.Stats() {
			if _, ok := stats.Lookup(guid); !ok {
				out = append(out, Problem{Definition: d.ID, Stat: guid, File: d.File})
			}
		}
	}
	return out
}

// definitionDoc is the decoded form of one YAML document.
type definitionDoc struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Kind        string        `json:"kind"`
	Curve       string        `json:"curve"`
	Modifiers   []modifierDoc `json:"modifiers"`
}

type modifierDoc struct {
	Stat           string  `json:"stat"`
	Kind           string  `json:"kind"`
	Magnitude      float64 `json:"magnitude"`
	Policy         *string `json:"policy"`
	Priority       *int32  `json:"priority"`
	CurveParameter float64 `json:"curve_parameter"`
	Duration       string  `json:"duration"`
}

// Parse decodes and validates the definitions in one YAML file. name labels
// errors and is recorded on each definition.
func Parse(name string, raw []byte) ([]Definition, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling definition schema: %w", err)
	}

	var out []Definition
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for doc := 1; ; doc++ {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %s document %d: %w", types.ErrDefinitionInvalid, name, doc, err)
		}
		if v == nil {
			continue
		}

		// The schema validator works on JSON values.
		js, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s document %d: %w", types.ErrDefinitionInvalid, name, doc, err)
		}
		var jv any
		if err := json.Unmarshal(js, &jv); err != nil {
			return nil, fmt.Errorf("%w: %s document %d: %w", types.ErrDefinitionInvalid, name, doc, err)
		}
		if err := schema.Validate(jv); err != nil {
			return nil, fmt.Errorf("%w: %s document %d: %w", types.ErrDefinitionInvalid, name, doc, err)
		}

		var dd definitionDoc
		if err := json.Unmarshal(js, &dd); err != nil {
			return nil, fmt.Errorf("%w: %s document %d: %w", types.ErrDefinitionInvalid, name, doc, err)
		}
		d, err := dd.definition()
		if err != nil {
			return nil, fmt.Errorf("%w: %s document %d: %w", types.ErrDefinitionInvalid, name, doc, err)
		}
		d.File = name
		out = append(out, d)
	}
	return out, nil
}

func (dd definitionDoc) definition() (Definition, error) {
	curve, err := types.ParseStackCurve(dd.Curve)
	if err != nil {
		return Definition{}, err
	}
	d := Definition{
		ID:          dd.ID,
		Name:        dd.Name,
		Description: dd.Description,
		Kind:        DefinitionKind(dd.Kind),
		Curve:       curve,
	}
	if d.Name == "" {
		d.Name = types.DisplayNameFromField(d.ID)
	}

	var errs []error
	for i, md := range dd.Modifiers {
		m, err := md.modifier()
		if err != nil {
			errs = append(errs, fmt.Errorf("modifier %d: %w", i, err))
			continue
		}
		d.Modifiers = append(d.Modifiers, m)
	}
	return d, errors.Join(errs...)
}

func (md modifierDoc) modifier() (types.PerUnitModifier, error) {
	kind, err := types.ParseModifierKind(md.Kind)
	if err != nil {
		return types.PerUnitModifier{}, err
	}
	m := types.NewPerUnitModifier(md.Stat, kind, md.Magnitude)
	if md.Policy != nil {
		if m.Policy, err = types.ParseStackingPolicy(*md.Policy); err != nil {
			return types.PerUnitModifier{}, err
		}
	}
	if md.Priority != nil {
		m.Priority = *md.Priority
	}
	m.CurveParameter = md.CurveParameter
	if md.Duration != "" {
		if m.Duration, err = time.ParseDuration(md.Duration); err != nil {
			return types.PerUnitModifier{}, err
		}
	}
	return m, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
