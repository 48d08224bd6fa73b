package catalog

import (
	"fmt"
	"math"
	"reflect"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// Binding is a resolved accessor for one stat field. It is process-local and
// must not be persisted.
type Binding struct {
	guid  string
	owner reflect.Type
	index []int
	kind  reflect.Kind
	tier  types.BindingTier
}

// newBinding returns a binding for fieldName on owner, or false if owner does
// not itself declare an exported numeric field of that name.
func newBinding(guid string, owner reflect.Type, fieldName string, tier types.BindingTier) (*Binding, bool) {
	owner = structType(owner)
	if owner == nil {
		return nil, false
	}
	f, ok := owner.FieldByName(fieldName)
	if !ok || len(f.Index) != 1 || !f.IsExported() || !isNumeric(f.Type.Kind()) {
		return nil, false
	}
	return &Binding{
		guid:  guid,
		owner: owner,
		index: f.Index,
		kind:  f.Type.Kind(),
		tier:  tier,
	}, true
}

// Tier reports which resolution tier produced the binding.
func (b *Binding) Tier() types.BindingTier { return b.tier }

// DeclaringType returns the struct type the binding reads from.
func (b *Binding) DeclaringType() reflect.Type { return b.owner }

// Get reads the field from target. Target may be the declaring struct, a
// pointer to it, or a struct that embeds it.
func (b *Binding) Get(target any) (float32, error) {
	v, err := b.field(target)
	if err != nil {
		return 0, err
	}
	switch {
	case isInt(b.kind):
		return float32(v.Int()), nil
	case isUint(b.kind):
		return float32(v.Uint()), nil
	case isFloat(b.kind):
		return float32(v.Float()), nil
	default:
		return 0, fmt.Errorf("%w: %s", types.ErrValueConversion, b.kind)
	}
}

// Set writes value into the field of target, which must be a pointer.
// Integer fields receive the value rounded to the nearest integer; values
// that do not fit the field are rejected.
func (b *Binding) Set(target any, value float32) error {
	v, err := b.field(target)
	if err != nil {
		return err
	}
	if !v.CanSet() {
		return fmt.Errorf("%w: %T is not addressable", types.ErrTargetMismatch, target)
	}
	f := float64(value)
	switch {
	case isInt(b.kind):
		n := math.Round(f)
		if math.IsNaN(n) || math.IsInf(n, 0) || n < math.MinInt64 || n >= math.MaxInt64 || v.OverflowInt(int64(n)) {
			return fmt.Errorf("%w: %v overflows %s", types.ErrValueConversion, value, b.kind)
		}
		v.SetInt(int64(n))
	case isUint(b.kind):
		n := math.Round(f)
		if math.IsNaN(n) || n < 0 || n >= math.MaxUint64 || v.OverflowUint(uint64(n)) {
			return fmt.Errorf("%w: %v overflows %s", types.ErrValueConversion, value, b.kind)
		}
		v.SetUint(uint64(n))
	case isFloat(b.kind):
		v.SetFloat(f)
	default:
		return fmt.Errorf("%w: %s", types.ErrValueConversion, b.kind)
	}
	return nil
}

// field locates the bound field inside target.
func (b *Binding) field(target any) (reflect.Value, error) {
	rv := reflect.ValueOf(target)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, fmt.Errorf("%w: nil target", types.ErrTargetMismatch)
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: nil target", types.ErrTargetMismatch)
	}
	owner, ok := locate(rv, b.owner, 0)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: %s does not hold %s", types.ErrTargetMismatch, rv.Type(), b.owner)
	}
	return owner.FieldByIndex(b.index), nil
}

// maxEmbedDepth bounds the search through embedded structs.
const maxEmbedDepth = 8

// locate finds the value of type owner in v or in a struct v embeds.
func locate(v reflect.Value, owner reflect.Type, depth int) (reflect.Value, bool) {
	if !v.IsValid() || v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	if v.Type() == owner {
		return v, true
	}
	if depth >= maxEmbedDepth {
		return reflect.Value{}, false
	}
	for i := 0; i < v.NumField(); i++ {
		if !v.Type().Field(i).Anonymous {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if found, ok := locate(fv, owner, depth+1); ok {
			return found, true
		}
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
