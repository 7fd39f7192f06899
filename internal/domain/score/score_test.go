package score

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-3, 0},
		{0, 0},
		{7, 7},
		{7.25, 7.3},
		{7.24, 7.2},
		{10, 10},
		{42, 10},
		{math.NaN(), 0},
		{math.Inf(1), 10},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Clamp(tc.in), "Clamp(%v)", tc.in)
	}
}

func TestTruncateWords(t *testing.T) {
	long := strings.Repeat("palavra ", 40)
	got := TruncateWords(long, MaxJustificationWords)
	assert.Len(t, strings.Fields(got), MaxJustificationWords)

	assert.Equal(t, "tecido leve e fresco", TruncateWords("  tecido  leve e\nfresco ", 30))
}

func TestNewRecord(t *testing.T) {
	r := NewRecord(taxonomy.Material, "Linho", 11, "fresco")
	assert.Equal(t, 10.0, r.Score)
	assert.False(t, r.Unscored)
}

func TestNeutral(t *testing.T) {
	attr, _ := taxonomy.Default().Attribute(taxonomy.Structure)
	cause := errors.New("timeout")
	a := Neutral(attr, cause)

	assert.True(t, a.Degraded())
	assert.Len(t, a.Records, 3)
	for _, r := range a.Records {
		assert.True(t, r.Unscored)
		assert.Zero(t, r.Score)
	}
}

func TestTop(t *testing.T) {
	a := AttributeScores{Attribute: taxonomy.Color, Records: []Record{
		{Attribute: taxonomy.Color, Value: "Branco", Score: 8},
		{Attribute: taxonomy.Color, Value: "Preto", Score: 9},
		{Attribute: taxonomy.Color, Value: "Neutros", Score: 8},
		{Attribute: taxonomy.Color, Value: "Escuros", Unscored: true},
	}}
	top := a.Top(2)
	assert.Equal(t, "Preto", top[0].Value)
	assert.Equal(t, "Branco", top[1].Value)
	assert.Len(t, a.Top(10), 3)
}

func TestWeights(t *testing.T) {
	m := Weights([]CategoryWeight{{"Vestido", 9}, {"Saia", 0}})
	assert.Equal(t, 9.0, m["Vestido"])
	_, ok := m["Blazer"]
	assert.False(t, ok)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{`8`, 8, true},
		{`7.5`, 7.5, true},
		{`"9"`, 9, true},
		{`" 6,5 "`, 6.5, true},
		{`"alto"`, 0, false},
		{`null`, 0, false},
		{``, 0, false},
		{`{}`, 0, false},
		{`"Infinity"`, 0, false},
		{`"-Inf"`, 0, false},
		{`"NaN"`, 0, false},
	}
	for _, tc := range tests {
		got, ok := Parse(json.RawMessage(tc.in))
		assert.Equal(t, tc.ok, ok, "Parse(%s)", tc.in)
		assert.Equal(t, tc.want, got, "Parse(%s)", tc.in)
	}
}
