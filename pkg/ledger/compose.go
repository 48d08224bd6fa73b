package ledger

import (
	"cmp"
	"math"
	"slices"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// Step records the effect of one composition stage.
type Step struct {
	Stage    int                `json:"stage"`
	Kind     types.ModifierKind `json:"kind"`
	Records  int                `json:"records"`
	Combined float64            `json:"combined"`
	Value    float64            `json:"value"`
}

// Breakdown is the result of composing a base value with a set of records.
type Breakdown struct {
	Base       float64 `json:"base"`
	Value      float64 `json:"value"`
	Overridden bool    `json:"overridden"`
	Steps      []Step  `json:"steps"`
}

// operand is one record's contribution to a stage fold.
type operand struct {
	value    float64
	priority int32
	seq      int
}

// Compose runs the stage pipeline over records, which must be in the order
// they were added (later records win Override ties). Unknown kinds compose as
// Flat, unknown policies as Additive and PolicyDefault as the kind's default. Compose does not evaluate
// conditions or durations; callers pass only the active records.
func Compose(base float64, records []types.ModifierRecord) Breakdown {
	byStage := make(map[int][]indexed)
	for i, r := range records {
		r = normalize(r)
		byStage[r.Kind.Stage()] = append(byStage[r.Kind.Stage()], indexed{r, i})
	}
	for _, rs := range byStage {
		slices.SortStableFunc(rs, func(a, b indexed) int {
			return cmp.Compare(a.rec.Priority, b.rec.Priority)
		})
	}

	out := Breakdown{Base: base}
	v := base

	if ov := byStage[types.StageOverride]; len(ov) > 0 {
		combined := combine(ov, types.KindOverride)
		v = combined
		out.Overridden = true
		out.Steps = append(out.Steps, Step{types.StageOverride, types.KindOverride, len(ov), combined, v})
	} else {
		if rs := byStage[types.StageFlat]; len(rs) > 0 {
			combined := combine(rs, types.KindFlat)
			v += combined
			out.Steps = append(out.Steps, Step{types.StageFlat, types.KindFlat, len(rs), combined, v})
		}
		if rs := byStage[types.StagePercentAdditive]; len(rs) > 0 {
			combined := combine(rs, types.KindPercentAdditive)
			v *= 1 + combined
			out.Steps = append(out.Steps, Step{types.StagePercentAdditive, types.KindPercentAdditive, len(rs), combined, v})
		}
		if rs := byStage[types.StagePercentMultiplicative]; len(rs) > 0 {
			combined := combine(rs, types.KindPercentMultiplicative)
			v *= combined
			out.Steps = append(out.Steps, Step{types.StagePercentMultiplicative, types.KindPercentMultiplicative, len(rs), combined, v})
		}
		for _, group := range curveGroups(byStage[types.StageCurve]) {
			kind := group[0].rec.Kind
			combined := combine(group, kind)
			v = applyCurve(kind, v, combined, group[len(group)-1].rec.EffectiveCurveParameter())
			out.Steps = append(out.Steps, Step{types.StageCurve, kind, len(group), combined, v})
		}
	}

	if rs := byStage[types.StageMinimum]; len(rs) > 0 {
		combined := combine(rs, types.KindMinimum)
		v = math.Max(v, combined)
		out.Steps = append(out.Steps, Step{types.StageMinimum, types.KindMinimum, len(rs), combined, v})
	}
	if rs := byStage[types.StageMaximum]; len(rs) > 0 {
		combined := combine(rs, types.KindMaximum)
		v = math.Min(v, combined)
		out.Steps = append(out.Steps, Step{types.StageMaximum, types.KindMaximum, len(rs), combined, v})
	}

	out.Value = v
	return out
}

type indexed struct {
	rec types.ModifierRecord
	seq int
}

// normalize maps unknown kinds to Flat and unknown policies to Additive, and
// resolves PolicyDefault to the kind's default.
func normalize(r types.ModifierRecord) types.ModifierRecord {
	if !r.Kind.Valid() {
		r.Kind = types.KindFlat
	}
	if !r.Policy.Valid() {
		r.Policy = types.PolicyAdditive
	}
	r.Policy = r.Policy.Resolve(r.Kind)
	return r
}

// operandValue maps a magnitude to the value folded for its kind.
// PercentMultiplicative magnitudes are fractions (0.2 is x1.2) and fold as
// factors.
func operandValue(kind types.ModifierKind, magnitude float64) float64 {
	if kind == types.KindPercentMultiplicative {
		return 1 + magnitude
	}
	return magnitude
}

// combine folds one stage. Records are partitioned by stacking policy, each
// partition is folded with its own policy, and the partition results are
// folded with the kind's default policy.
func combine(rs []indexed, kind types.ModifierKind) float64 {
	var order []types.StackingPolicy
	parts := make(map[types.StackingPolicy][]operand)
	for _, r := range rs {
		p := r.rec.Policy
		if _, ok := parts[p]; !ok {
			order = append(order, p)
		}
		parts[p] = append(parts[p], operand{
			value:    operandValue(kind, r.rec.Magnitude),
			priority: r.rec.Priority,
			seq:      r.seq,
		})
	}
	if len(order) == 1 {
		return foldPartition(kind, order[0], parts[order[0]])
	}

	partials := make([]operand, 0, len(order))
	for _, p := range order {
		ops := parts[p]
		top := ops[0]
		for _, o := range ops[1:] {
			top.priority = max(top.priority, o.priority)
			top.seq = max(top.seq, o.seq)
		}
		top.value = foldPartition(kind, p, ops)
		partials = append(partials, top)
	}
	return fold(kind.DefaultPolicy(), partials)
}

// foldPartition folds the records of one kind sharing policy p. Additive
// PercentMultiplicative magnitudes sum before becoming a factor, so +10% and
// +10% give x1.2.
func foldPartition(kind types.ModifierKind, p types.StackingPolicy, ops []operand) float64 {
	if kind == types.KindPercentMultiplicative && p == types.PolicyAdditive {
		acc := 1.0
		for _, o := range ops {
			acc += o.value - 1
		}
		return acc
	}
	return fold(p, ops)
}

// fold combines operands with one stacking policy. ops is never empty.
func fold(p types.StackingPolicy, ops []operand) float64 {
	switch p {
	case types.PolicyMultiplicative:
		acc := 1.0
		for _, o := range ops {
			acc *= o.value
		}
		return acc
	case types.PolicyOverride:
		win := ops[0]
		for _, o := range ops[1:] {
			if o.priority > win.priority || (o.priority == win.priority && o.seq > win.seq) {
				win = o
			}
		}
		return win.value
	case types.PolicyAverage:
		sum := 0.0
		for _, o := range ops {
			sum += o.value
		}
		return sum / float64(len(ops))
	case types.PolicyHighest:
		acc := ops[0].value
		for _, o := range ops[1:] {
			acc = math.Max(acc, o.value)
		}
		return acc
	case types.PolicyLowest:
		acc := ops[0].value
		for _, o := range ops[1:] {
			acc = math.Min(acc, o.value)
		}
		return acc
	default:
		sum := 0.0
		for _, o := range ops {
			sum += o.value
		}
		return sum
	}
}

// curveGroups splits the curve stage by kind. Groups run in order of their
// lowest priority, then kind.
func curveGroups(rs []indexed) [][]indexed {
	if len(rs) == 0 {
		return nil
	}
	byKind := make(map[types.ModifierKind][]indexed)
	var kinds []types.ModifierKind
	for _, r := range rs {
		if _, ok := byKind[r.rec.Kind]; !ok {
			kinds = append(kinds, r.rec.Kind)
		}
		byKind[r.rec.Kind] = append(byKind[r.rec.Kind], r)
	}
	slices.SortFunc(kinds, func(a, b types.ModifierKind) int {
		return cmp.Or(
			cmp.Compare(byKind[a][0].rec.Priority, byKind[b][0].rec.Priority),
			cmp.Compare(a, b),
		)
	})
	groups := make([][]indexed, 0, len(kinds))
	for _, k := range kinds {
		groups = append(groups, byKind[k])
	}
	return groups
}

// applyCurve applies a curve kind with combined magnitude m and parameter k.
//
//	hyperbolic:  v * (1 + m/(|m|+k))          bounded, diminishing
//	exponential: v * (1+k)^m                   amplifying
//	logarithmic: v * max(0, 1 + sign(m)*k*ln(1+|m|))  diminishing
func applyCurve(kind types.ModifierKind, v, m, k float64) float64 {
	switch kind {
	case types.KindHyperbolic:
		return v * (1 + m/(math.Abs(m)+k))
	case types.KindExponential:
		return v * math.Pow(1+k, m)
	case types.KindLogarithmic:
		step := k * math.Log1p(math.Abs(m))
		if m < 0 {
			step = -step
		}
		return v * math.Max(0, 1+step)
	default:
		return v
	}
}
