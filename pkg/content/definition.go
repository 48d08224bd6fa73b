package content

import (
	"fmt"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// DefinitionKind distinguishes stackable items from abilities.
type DefinitionKind string

// Definition kinds.
const (
	KindItem    DefinitionKind = "item"
	KindAbility DefinitionKind = "ability"
)

// Target receives the modifiers of a definition. *stacking.Recomputer
// implements it.
type Target interface {
	ApplyItem(source string, perUnit []types.PerUnitModifier, count uint32, curve types.StackCurve) error
	Remove(source string) int
}

// Definition is a piece of game content that modifies stats: an item that
// stacks with copies of itself, or an ability that applies once.
type Definition struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Kind        DefinitionKind          `json:"kind"`
	Curve       types.StackCurve        `json:"curve"`
	Modifiers   []types.PerUnitModifier `json:"modifiers"`
	File        string                  `json:"file,omitempty"`
}

// Source returns the ledger source key of the definition, for example
// "item:iron_ring".
func (d Definition) Source() string {
	return string(d.Kind) + ":" + d.ID
}

// ApplyToTarget applies the definition to target with stackCount units.
// Abilities do not stack: any positive count applies one unit. A count of
// zero removes the definition.
func (d Definition) ApplyToTarget(target Target, stackCount uint32) error {
	if d.Kind == KindAbility && stackCount > 1 {
		stackCount = 1
	}
	if err := target.ApplyItem(d.Source(), d.Modifiers, stackCount, d.Curve); err != nil {
		return fmt.Errorf("apply %s: %w", d.Source(), err)
	}
	return nil
}

// RemoveFromTarget removes every modifier the definition placed on target.
func (d Definition) RemoveFromTarget(target Target) int {
	return target.Remove(d.Source())
}

// GetModifierForStat returns the per-unit magnitude of the first modifier
// the definition lists for a stat, or zero if it does not touch it. A
// definition that puts several kinds on one stat is better read with
// ModifierOfKind.
func (d Definition) GetModifierForStat(guid string) float32 {
	for _, m := range d.Modifiers {
		if m.StatGUID == guid {
			return float32(m.Magnitude)
		}
	}
	return 0
}

// ModifierOfKind returns the definition's per-unit modifier of kind on a
// stat. A ledger keeps one record per source, stat and kind, so when the
// pair is listed twice the last entry is the one that applies.
func (d Definition) ModifierOfKind(guid string, kind types.ModifierKind) (types.PerUnitModifier, bool) {
	var (
		found types.PerUnitModifier
		ok    bool
	)
	for _, m := range d.Modifiers {
		if m.StatGUID == guid && m.Kind == kind {
			found, ok = m, true
		}
	}
	return found, ok
}

// AffectsStat reports whether the definition modifies a stat.
func (d Definition) AffectsStat(guid string) bool {
	for _, m := range d.Modifiers {
		if m.StatGUID == guid {
			return true
		}
	}
	return false
}

// Stats returns the stat GUIDs the definition touches, in declaration order
// without repeats.
func (d Definition) Stats() []string {
	seen := make(map[string]bool, len(d.Modifiers))
	var out []string
	for _, m := range d.Modifiers {
		if seen[m.StatGUID] {
			continue
		}
		seen[m.StatGUID] = true
		out = append(out, m.StatGUID)
	}
	return out
}
