package types

import (
	"fmt"
	"strings"
	"time"
)

// ModifierKind selects the composition stage a modifier runs in and how its
// magnitude is applied.
type ModifierKind int

// Modifier kinds. Stage order is fixed: Flat, PercentAdditive,
// PercentMultiplicative, the curve kinds, Override, Minimum, Maximum.
const (
	KindFlat ModifierKind = iota
	KindPercentAdditive
	KindPercentMultiplicative
	KindOverride
	KindMinimum
	KindMaximum
	KindHyperbolic
	KindExponential
	KindLogarithmic
)

var kindNames = map[ModifierKind]string{
	KindFlat:                  "flat",
	KindPercentAdditive:       "percent_additive",
	KindPercentMultiplicative: "percent_multiplicative",
	KindOverride:              "override",
	KindMinimum:               "minimum",
	KindMaximum:               "maximum",
	KindHyperbolic:            "hyperbolic",
	KindExponential:           "exponential",
	KindLogarithmic:           "logarithmic",
}

// AllKinds lists every modifier kind in declaration order.
var AllKinds = []ModifierKind{
	KindFlat, KindPercentAdditive, KindPercentMultiplicative,
	KindOverride, KindMinimum, KindMaximum,
	KindHyperbolic, KindExponential, KindLogarithmic,
}

// Composition stages, in evaluation order.
const (
	StageFlat                  = 1
	StagePercentAdditive       = 2
	StagePercentMultiplicative = 3
	StageCurve                 = 4
	StageOverride              = 5
	StageMinimum               = 6
	StageMaximum               = 7
)

// Valid reports whether k is a known kind.
func (k ModifierKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// String returns the snake_case name of the kind.
func (k ModifierKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Stage returns the composition stage of the kind. Unknown kinds run with
// Flat.
func (k ModifierKind) Stage() int {
	switch k {
	case KindPercentAdditive:
		return StagePercentAdditive
	case KindPercentMultiplicative:
		return StagePercentMultiplicative
	case KindHyperbolic, KindExponential, KindLogarithmic:
		return StageCurve
	case KindOverride:
		return StageOverride
	case KindMinimum:
		return StageMinimum
	case KindMaximum:
		return StageMaximum
	default:
		return StageFlat
	}
}

// IsCurve reports whether the kind applies a nonlinear curve.
func (k ModifierKind) IsCurve() bool {
	return k == KindHyperbolic || k == KindExponential || k == KindLogarithmic
}

// DefaultPolicy returns the stacking policy a kind uses when none is given.
func (k ModifierKind) DefaultPolicy() StackingPolicy {
	switch k {
	case KindPercentMultiplicative:
		return PolicyMultiplicative
	case KindOverride:
		return PolicyOverride
	case KindMinimum:
		return PolicyHighest
	case KindMaximum:
		return PolicyLowest
	default:
		return PolicyAdditive
	}
}

// DefaultPriority returns the priority a kind uses when none is given.
func (k ModifierKind) DefaultPriority() int32 {
	return int32(k.Stage() * 100)
}

// DefaultCurveParameter returns the curve parameter used by curve kinds when
// a record leaves it at zero.
func (k ModifierKind) DefaultCurveParameter() float64 {
	switch k {
	case KindHyperbolic:
		return 1
	case KindExponential:
		return 0.1
	case KindLogarithmic:
		return 1
	default:
		return 0
	}
}

// ParseModifierKind parses a kind name. Matching ignores case, '-' and '_'
// ("PercentAdditive", "percent-additive" and "percent_additive" are equal).
func ParseModifierKind(s string) (ModifierKind, error) {
	want := normalizeName(s)
	for k, name := range kindNames {
		if normalizeName(name) == want {
			return k, nil
		}
	}
	return KindFlat, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ModifierKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ModifierKind) UnmarshalText(b []byte) error {
	parsed, err := ParseModifierKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// StackingPolicy is the rule for combining several modifiers of the same kind
// on the same stat.
type StackingPolicy int

// Stacking policies. The zero value, PolicyDefault, stands for the kind's
// default policy and is resolved when a record is stored or composed.
const (
	PolicyDefault StackingPolicy = iota
	PolicyAdditive
	PolicyMultiplicative
	PolicyOverride
	PolicyAverage
	PolicyHighest
	PolicyLowest
)

var policyNames = map[StackingPolicy]string{
	PolicyDefault:        "default",
	PolicyAdditive:       "additive",
	PolicyMultiplicative: "multiplicative",
	PolicyOverride:       "override",
	PolicyAverage:        "average",
	PolicyHighest:        "highest",
	PolicyLowest:         "lowest",
}

// AllPolicies lists every concrete stacking policy in declaration order.
var AllPolicies = []StackingPolicy{
	PolicyAdditive, PolicyMultiplicative, PolicyOverride,
	PolicyAverage, PolicyHighest, PolicyLowest,
}

// Valid reports whether p is a known policy.
func (p StackingPolicy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// String returns the lower-case name of the policy.
func (p StackingPolicy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Resolve returns the policy a record of kind k stacks with: p itself, or
// the kind's default when p is PolicyDefault.
func (p StackingPolicy) Resolve(k ModifierKind) StackingPolicy {
	if p == PolicyDefault {
		return k.DefaultPolicy()
	}
	return p
}

// ParseStackingPolicy parses a policy name, ignoring case. An empty name is
// PolicyDefault.
func ParseStackingPolicy(s string) (StackingPolicy, error) {
	want := normalizeName(s)
	if want == "" {
		return PolicyDefault, nil
	}
	for p, name := range policyNames {
		if name == want {
			return p, nil
		}
	}
	return PolicyDefault, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p StackingPolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *StackingPolicy) UnmarshalText(b []byte) error {
	parsed, err := ParseStackingPolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// StackCurve maps a per-unit magnitude and a unit count to an effective
// magnitude.
type StackCurve int

// Stack curves.
const (
	CurveLinear StackCurve = iota
	CurveDiminishing
)

// DiminishingFactor is the share of the per-unit magnitude each unit after
// the first contributes under CurveDiminishing.
const DiminishingFactor = 0.5

// Valid reports whether c is a known curve.
func (c StackCurve) Valid() bool {
	return c == CurveLinear || c == CurveDiminishing
}

// String returns the lower-case name of the curve.
func (c StackCurve) String() string {
	switch c {
	case CurveLinear:
		return "linear"
	case CurveDiminishing:
		return "diminishing"
	default:
		return fmt.Sprintf("curve(%d)", int(c))
	}
}

// ParseStackCurve parses a curve name, ignoring case. An empty string is linear.
func ParseStackCurve(s string) (StackCurve, error) {
	switch normalizeName(s) {
	case "", "linear":
		return CurveLinear, nil
	case "diminishing":
		return CurveDiminishing, nil
	default:
		return CurveLinear, fmt.Errorf("%w: %q", ErrUnknownCurve, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c StackCurve) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCurve, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *StackCurve) UnmarshalText(b []byte) error {
	parsed, err := ParseStackCurve(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Effective returns the aggregate magnitude of count units. Linear scales
// with the count; Diminishing gives full value for the first unit and
// DiminishingFactor of it for every further unit. Zero units contribute
// nothing.
func (c StackCurve) Effective(perUnit float64, count uint32) float64 {
	if count == 0 {
		return 0
	}
	if c == CurveDiminishing {
		return perUnit + perUnit*DiminishingFactor*float64(count-1)
	}
	return perUnit * float64(count)
}

// Condition gates a modifier: the record only takes part in a resolution
// while the condition returns true for the ledger's target.
type Condition func(target any) bool

// ModifierRecord is one active modifier instance on one stat.
type ModifierRecord struct {
	ID             string         `json:"id"`
	StatGUID       string         `json:"stat_guid"`
	Kind           ModifierKind   `json:"kind"`
	Magnitude      float64        `json:"magnitude"`
	Source         string         `json:"source"`
	Policy         StackingPolicy `json:"policy"`
	Priority       int32          `json:"priority"`
	CurveParameter float64        `json:"curve_parameter,omitempty"`
	Condition      Condition      `json:"-"`
	Duration       time.Duration  `json:"duration,omitempty"` // zero is permanent
}

// NewModifierRecord returns a record with the kind's default policy and
// priority.
func NewModifierRecord(statGUID string, kind ModifierKind, magnitude float64, source string) ModifierRecord {
	return ModifierRecord{
		StatGUID:  statGUID,
		Kind:      kind,
		Magnitude: magnitude,
		Source:    source,
		Policy:    kind.DefaultPolicy(),
		Priority:  kind.DefaultPriority(),
	}
}

// RecordKey identifies the record group a record belongs to. A ledger holds
// at most one record per key.
type RecordKey struct {
	Source   string
	StatGUID string
	Kind     ModifierKind
}

// Key returns the record's group key.
func (r ModifierRecord) Key() RecordKey {
	return RecordKey{Source: r.Source, StatGUID: r.StatGUID, Kind: r.Kind}
}

// Permanent reports whether the record never expires.
func (r ModifierRecord) Permanent() bool {
	return r.Duration <= 0
}

// EffectiveCurveParameter returns the record's curve parameter, or the
// kind's default when the record leaves it at zero or below.
func (r ModifierRecord) EffectiveCurveParameter() float64 {
	if r.CurveParameter > 0 {
		return r.CurveParameter
	}
	return r.Kind.DefaultCurveParameter()
}

// Validate checks the fields a ledger cannot repair on its own.
func (r ModifierRecord) Validate() error {
	if r.StatGUID == "" {
		return fmt.Errorf("%w: empty stat guid", ErrInvalidRecord)
	}
	if r.Source == "" {
		return fmt.Errorf("%w: empty source", ErrInvalidRecord)
	}
	return nil
}

// PerUnitModifier is the definition of one modifier contributed by a single
// unit of a stackable source.
type PerUnitModifier struct {
	StatGUID       string         `json:"stat" yaml:"stat"`
	Kind           ModifierKind   `json:"kind" yaml:"kind"`
	Magnitude      float64        `json:"magnitude" yaml:"magnitude"`
	Policy         StackingPolicy `json:"policy" yaml:"policy"`
	Priority       int32          `json:"priority" yaml:"priority"`
	CurveParameter float64        `json:"curve_parameter,omitempty" yaml:"curve_parameter,omitempty"`
	Duration       time.Duration  `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// NewPerUnitModifier returns a per-unit modifier with the kind's default
// policy and priority.
func NewPerUnitModifier(statGUID string, kind ModifierKind, magnitude float64) PerUnitModifier {
	return PerUnitModifier{
		StatGUID:  statGUID,
		Kind:      kind,
		Magnitude: magnitude,
		Policy:    kind.DefaultPolicy(),
		Priority:  kind.DefaultPriority(),
	}
}

// Record builds the ledger record for source at the given effective magnitude.
func (m PerUnitModifier) Record(source string, magnitude float64) ModifierRecord {
	return ModifierRecord{
		StatGUID:       m.StatGUID,
		Kind:           m.Kind,
		Magnitude:      magnitude,
		Source:         source,
		Policy:         m.Policy,
		Priority:       m.Priority,
		CurveParameter: m.CurveParameter,
		Duration:       m.Duration,
	}
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}
