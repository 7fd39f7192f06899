package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "R$ 0,00"},
		{5, "R$ 0,05"},
		{19990, "R$ 199,90"},
		{123456, "R$ 1.234,56"},
		{123456789, "R$ 1.234.567,89"},
		{-2500, "-R$ 25,00"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatPrice(tc.cents), "cents=%d", tc.cents)
	}
}

func TestFilter_Matches(t *testing.T) {
	p := Product{UID: "p1", Category: "Vestido"}
	assert.True(t, Filter{}.Matches(p))
	assert.True(t, Filter{Categories: []string{"Saia", "Vestido"}}.Matches(p))
	assert.False(t, Filter{Categories: []string{"Saia"}}.Matches(p))
}

func TestProduct_FormattedPrice(t *testing.T) {
	p := Product{PriceCents: 34990}
	assert.Equal(t, "R$ 349,90", p.FormattedPrice())
}
