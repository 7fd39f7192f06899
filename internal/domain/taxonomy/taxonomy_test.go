package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_DeclarationOrder(t *testing.T) {
	r := Default()
	assert.Equal(t,
		[]Name{Message, Line, Material, Structure, Texture, Surface, Color},
		r.Names())
	assert.Len(t, r.Categories(), 12)
}

func TestDefault_Columns(t *testing.T) {
	r := Default()
	a, ok := r.Attribute(Message)
	require.True(t, ok)
	assert.Equal(t, "message_titles", a.Column())
	assert.Equal(t, "Mensagem", a.Label())
}

func TestNewRegistry_Invalid(t *testing.T) {
	attrs := DefaultAttributes()

	_, err := NewRegistry(attrs[:4], nil)
	assert.Error(t, err, "too few attributes")

	dup := append(DefaultAttributes(), NewAttribute(Color, "Cor", "color", []string{"x"}))
	_, err = NewRegistry(dup, nil)
	assert.Error(t, err, "duplicate attribute")

	empty := append(DefaultAttributes(), NewAttribute("fit", "Caimento", "fit", nil))
	_, err = NewRegistry(empty, nil)
	assert.Error(t, err, "attribute without values")

	_, err = NewRegistry(attrs, []string{"Saia", "Saia"})
	assert.Error(t, err, "duplicate category")
}

func TestRegistry_Resolve(t *testing.T) {
	r := Default()
	tests := []struct {
		raw  string
		want Name
		ok   bool
	}{
		{"material", Material, true},
		{"Superfície", Surface, true},
		{"superficie", Surface, true},
		{"Linha | Forma", Line, true},
		{"COR", Color, true},
		{"Caimento", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		got, ok := r.Resolve(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestAttribute_ResolveValue(t *testing.T) {
	a, _ := Default().Attribute(Material)

	v, ok := a.ResolveValue("la")
	assert.True(t, ok)
	assert.Equal(t, "Lã", v)

	v, ok = a.ResolveValue("malha | retilinea")
	assert.True(t, ok)
	assert.Equal(t, "Malha | Retilínea", v)

	_, ok = a.ResolveValue("Poliéster reciclado")
	assert.False(t, ok)
}

func TestRegistry_ResolveCategory(t *testing.T) {
	r := Default()
	c, ok := r.ResolveCategory("calca")
	assert.True(t, ok)
	assert.Equal(t, "Calça", c)

	_, ok = r.ResolveCategory("Biquíni")
	assert.False(t, ok)
}

func TestAttribute_ValuesIsCopy(t *testing.T) {
	a, _ := Default().Attribute(Color)
	vals := a.Values()
	vals[0] = "mutated"
	assert.Equal(t, "Branco", a.Values()[0])
}

func TestNewSelection(t *testing.T) {
	r := Default()

	s, err := NewSelection(r, []Name{Color, Material, Line, Texture, Surface})
	require.NoError(t, err)
	assert.Equal(t, 5, s.Len())
	assert.True(t, s.Contains(Color))
	assert.False(t, s.Contains(Message))

	_, err = NewSelection(r, []Name{Color, Material, Line, Texture})
	assert.Error(t, err)

	_, err = NewSelection(r, []Name{Color, Color, Line, Texture, Surface})
	assert.Error(t, err)

	_, err = NewSelection(r, []Name{Color, "fit", Line, Texture, Surface})
	assert.Error(t, err)
}

func TestDefaultSelection(t *testing.T) {
	s := Default().DefaultSelection()
	assert.Equal(t, []Name{Message, Line, Material, Structure, Texture}, s.Names())
}
