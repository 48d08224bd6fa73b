package catalog

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func heroBinding(t *testing.T, field string) *Binding {
	t.Helper()
	b, ok := newBinding(guid("Hero", field), reflect.TypeFor[Hero](), field, types.TierQualified)
	require.True(t, ok)
	return b
}

func TestNewBinding(t *testing.T) {
	hero := reflect.TypeFor[Hero]()

	tests := []struct {
		name  string
		owner reflect.Type
		field string
		want  bool
	}{
		{"float field", hero, "Speed", true},
		{"pointer owner", reflect.TypeFor[*Hero](), "Level", true},
		{"promoted field is not direct", hero, "Health", false},
		{"declaring type of promoted field", reflect.TypeFor[Vitals](), "Health", true},
		{"string field", hero, "Name", false},
		{"unexported field", hero, "armor", false},
		{"missing field", hero, "Mana", false},
		{"non-struct owner", reflect.TypeFor[int](), "Speed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := newBinding("g", tt.owner, tt.field, types.TierQualified)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestBindingGetSet(t *testing.T) {
	hero := &Hero{Speed: 3.5, Level: 4, Gold: 10}

	speed := heroBinding(t, "Speed")
	v, err := speed.Get(hero)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), v)

	v, err = speed.Get(*hero)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), v, "value targets are readable")

	require.NoError(t, speed.Set(hero, 7.25))
	assert.Equal(t, 7.25, hero.Speed)

	level := heroBinding(t, "Level")
	require.NoError(t, level.Set(hero, 7.6))
	assert.Equal(t, int32(8), hero.Level, "integers are rounded")

	gold := heroBinding(t, "Gold")
	require.NoError(t, gold.Set(hero, 65535))
	assert.Equal(t, uint16(65535), hero.Gold)
}

func TestBindingSetRejects(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		target  func(h *Hero) any
		value   float32
		wantErr error
	}{
		{"negative into unsigned", "Gold", func(h *Hero) any { return h }, -1, types.ErrValueConversion},
		{"overflow unsigned", "Gold", func(h *Hero) any { return h }, 70000, types.ErrValueConversion},
		{"overflow signed", "Level", func(h *Hero) any { return h }, 3e9, types.ErrValueConversion},
		{"non-pointer target", "Speed", func(h *Hero) any { return *h }, 1, types.ErrTargetMismatch},
		{"wrong type", "Speed", func(*Hero) any { return &Goblin{} }, 1, types.ErrTargetMismatch},
		{"nil pointer", "Speed", func(*Hero) any { return (*Hero)(nil) }, 1, types.ErrTargetMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hero := &Hero{Gold: 5, Level: 2, Speed: 1}
			err := heroBinding(t, tt.field).Set(tt.target(hero), tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, Hero{Gold: 5, Level: 2, Speed: 1}, *hero, "target unchanged")
		})
	}
}

func TestBindingThroughEmbedding(t *testing.T) {
	b, ok := newBinding(guid("Vitals", "Health"), reflect.TypeFor[Vitals](), "Health", types.TierQualified)
	require.True(t, ok)

	hero := &Hero{Vitals: Vitals{Health: 40}}
	v, err := b.Get(hero)
	require.NoError(t, err)
	assert.Equal(t, float32(40), v)

	require.NoError(t, b.Set(hero, 55))
	assert.Equal(t, float32(55), hero.Health)

	gob := &Goblin{}
	require.NoError(t, b.Set(gob, 12))
	assert.Equal(t, float32(12), gob.Health)
}
