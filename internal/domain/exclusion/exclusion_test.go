package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

func summerWedding() occasion.Context {
	return occasion.Context{
		Formality: occasion.Formal,
		Time:      occasion.Day,
		Location:  occasion.OutdoorLikely,
		Activity:  occasion.Ceremony,
		Weather:   occasion.Hot,
	}
}

func TestNewSet_SortsAndDeduplicates(t *testing.T) {
	s := NewSet(
		Value(taxonomy.Material, "Lã"),
		Category("Casaco"),
		Value(taxonomy.Material, "Couro"),
		Value(taxonomy.Material, "Lã"),
	)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []Item{
		Category("Casaco"),
		Value(taxonomy.Material, "Couro"),
		Value(taxonomy.Material, "Lã"),
	}, s.Items())
}

func TestSet_Lookups(t *testing.T) {
	s := NewSet(Value(taxonomy.Surface, "Brilhante"), Category("Short"))

	assert.True(t, s.ExcludesValue(taxonomy.Surface, "Brilhante"))
	assert.False(t, s.ExcludesValue(taxonomy.Texture, "Brilhante"))
	assert.True(t, s.ExcludesCategory("Short"))
	assert.False(t, s.ExcludesCategory("Brilhante"))
	assert.Equal(t, []string{"Brilhante"}, s.Values(taxonomy.Surface))
}

func TestEvaluate_SummerWedding(t *testing.T) {
	s := Default().Evaluate(summerWedding())

	for _, winter := range []string{"Lã", "Veludo", "Tricô"} {
		assert.True(t, s.ExcludesValue(taxonomy.Material, winter), winter)
	}
	assert.True(t, s.ExcludesValue(taxonomy.Structure, "Pesado | Estruturado"))
	assert.True(t, s.ExcludesValue(taxonomy.Material, "Couro"))
	assert.True(t, s.ExcludesValue(taxonomy.Surface, "Brilhante"))
	assert.True(t, s.ExcludesCategory("Casaco"))
	assert.True(t, s.ExcludesCategory("Short"))
	assert.False(t, s.ExcludesValue(taxonomy.Material, "Linho"))
}

func TestEvaluate_OriginalRow(t *testing.T) {
	c := occasion.Context{
		Formality: occasion.Informal,
		Time:      occasion.Night,
		Location:  occasion.City,
		Activity:  occasion.Sport,
		Weather:   occasion.WeatherUnspecified,
	}
	s := Default().Evaluate(c)

	assert.Equal(t,
		[]string{"Couro", "Jeans", "Tecido festivo", "Tecido plano"},
		s.Values(taxonomy.Material))
	assert.Equal(t, []string{"Pesado | Estruturado"}, s.Values(taxonomy.Structure))
	assert.True(t, s.ExcludesCategory("Blazer"))
}

func TestEvaluate_Pure(t *testing.T) {
	rules := Default()
	first := rules.Evaluate(summerWedding())
	for range 20 {
		assert.True(t, first.Equal(rules.Evaluate(summerWedding())))
	}
}

func TestEvaluate_UnspecifiedExcludesNothing(t *testing.T) {
	s := Default().Evaluate(occasion.UnspecifiedContext())
	assert.Equal(t, 0, s.Len())
}

func TestEvaluate_UnspecifiedDimensionOnlyMatchesAny(t *testing.T) {
	// Location unknown: the countryside party row must not fire.
	c := occasion.Context{
		Formality: occasion.Formal,
		Time:      occasion.Day,
		Location:  occasion.LocationUnspecified,
		Activity:  occasion.Party,
		Weather:   occasion.WeatherUnspecified,
	}
	assert.Equal(t, 0, Default().Evaluate(c).Len())
}

func TestEvaluate_WeatherOnly(t *testing.T) {
	c := occasion.UnspecifiedContext()
	c.Weather = occasion.Cold
	s := Default().Evaluate(c)

	assert.Equal(t, []string{"Linho"}, s.Values(taxonomy.Material))
	assert.Equal(t, []string{"Leve | Fluido"}, s.Values(taxonomy.Structure))
	assert.True(t, s.ExcludesCategory("Short"))
}

func TestEvaluate_MildWeatherHasNoRule(t *testing.T) {
	c := occasion.UnspecifiedContext()
	c.Weather = occasion.Mild
	assert.Equal(t, 0, Default().Evaluate(c).Len())
}

func TestDefaultTables_ReferenceRegisteredValues(t *testing.T) {
	reg := taxonomy.Default()
	check := func(items []Item) {
		for _, it := range items {
			switch it.Kind {
			case KindCategory:
				assert.True(t, reg.HasCategory(it.Value), "unknown category %q", it.Value)
			case KindValue:
				attr, ok := reg.Attribute(it.Attribute)
				require.True(t, ok, "unknown attribute %q", it.Attribute)
				assert.True(t, attr.HasValue(it.Value), "unknown %s value %q", it.Attribute, it.Value)
			default:
				t.Errorf("unexpected kind %q", it.Kind)
			}
		}
	}
	for _, r := range DefaultOccasionRules() {
		check(r.Exclude)
	}
	for _, items := range DefaultWeatherRules() {
		check(items)
	}
}

func TestUnion(t *testing.T) {
	a := NewSet(Category("Short"))
	b := NewSet(Category("Short"), Value(taxonomy.Color, "Preto"))
	u := Union(a, b)
	assert.Equal(t, 2, u.Len())
}
