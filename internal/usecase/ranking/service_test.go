package ranking

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/exclusion"
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

func product(uid, category string, assignments ...catalog.Assignment) catalog.Product {
	return catalog.Product{UID: uid, Category: category, Assignments: assignments, Name: uid}
}

func assign(attr taxonomy.Name, value string, strength float64) catalog.Assignment {
	return catalog.Assignment{Attribute: attr, Value: value, Strength: strength}
}

func baseInput() Input {
	return Input{
		Records: []score.Record{
			score.NewRecord(taxonomy.Material, "Linho", 9, ""),
			score.NewRecord(taxonomy.Material, "Seda", 8, ""),
			score.NewRecord(taxonomy.Material, "Couro", 2, ""),
			score.NewRecord(taxonomy.Color, "Branco", 10, ""),
			score.Unscored(taxonomy.Color, "Preto"),
		},
		Weights: []score.CategoryWeight{
			{Category: "Vestido", Weight: 9},
			{Category: "Sapato", Weight: 5},
			{Category: "Blazer", Weight: 0},
		},
		Products: []catalog.Product{
			product("v1", "Vestido", assign(taxonomy.Material, "Linho", 1), assign(taxonomy.Color, "Branco", 0.5)),
			product("v2", "Vestido", assign(taxonomy.Material, "Seda", 1)),
			product("s1", "Sapato", assign(taxonomy.Material, "Couro", 1), assign(taxonomy.Color, "Preto", 1)),
			product("b1", "Blazer", assign(taxonomy.Material, "Linho", 1)),
		},
	}
}

func TestRank_CompositeAndOrder(t *testing.T) {
	r := NewRanker(taxonomy.Default(), DefaultOptions())

	res, err := r.Rank(baseInput())
	require.NoError(t, err)

	// v1: (9*1 + 10*0.5) * 9 = 126; v2: 8*9 = 72; s1: 2*5 = 10; b1 weight 0 is skipped
	assert.Equal(t, []string{"v1", "v2", "s1"}, res.UIDs())
	assert.Equal(t, 126.0, res.Items[0].Composite)
	assert.Equal(t, 14.0, res.Items[0].AttributeSum)
	require.Len(t, res.Items[0].Factors, 2)
	assert.Equal(t, "Linho", res.Items[0].Factors[0].Value)
	assert.Equal(t, 9.0, res.Items[0].Factors[0].Contribution)
	require.Len(t, res.Items[2].Factors, 1, "unscored values contribute nothing")
}

func TestRank_TieBreakByUID(t *testing.T) {
	in := baseInput()
	in.Products = []catalog.Product{
		product("z", "Vestido", assign(taxonomy.Material, "Linho", 1)),
		product("a", "Vestido", assign(taxonomy.Material, "Linho", 1)),
		product("m", "Vestido", assign(taxonomy.Material, "Linho", 1)),
	}

	res, err := NewRanker(taxonomy.Default(), Options{}).Rank(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, res.UIDs())
}

func TestRank_ExclusionInvariant(t *testing.T) {
	in := baseInput()
	in.Exclusions = exclusion.NewSet(
		exclusion.Value(taxonomy.Color, "Branco"),
		exclusion.Category("Sapato"),
	)

	res, err := NewRanker(taxonomy.Default(), DefaultOptions()).Rank(in)
	require.NoError(t, err)

	assert.Equal(t, []string{"v2"}, res.UIDs())
	for _, it := range res.Items {
		assert.False(t, in.Exclusions.ExcludesCategory(it.Category))
		for _, a := range it.Product.Assignments {
			assert.False(t, in.Exclusions.ExcludesValue(a.Attribute, a.Value))
		}
	}
}

func TestRank_SummerWeddingExcludesWarmMaterials(t *testing.T) {
	rules := exclusion.Default()
	set := rules.Evaluate(occasion.Context{
		Formality: occasion.Formal,
		Time:      occasion.Day,
		Location:  occasion.Countryside,
		Activity:  occasion.Ceremony,
		Weather:   occasion.Hot,
	})

	in := Input{
		Records: []score.Record{
			score.NewRecord(taxonomy.Material, "Linho", 9, ""),
			score.NewRecord(taxonomy.Material, "Lã", 9, ""),
			score.NewRecord(taxonomy.Material, "Couro", 9, ""),
		},
		Weights: []score.CategoryWeight{{Category: "Vestido", Weight: 8}, {Category: "Casaco", Weight: 8}},
		Products: []catalog.Product{
			product("linho", "Vestido", assign(taxonomy.Material, "Linho", 1)),
			product("la", "Vestido", assign(taxonomy.Material, "Lã", 1)),
			product("couro", "Vestido", assign(taxonomy.Material, "Couro", 1)),
			product("casaco", "Casaco", assign(taxonomy.Material, "Linho", 1)),
		},
		Exclusions: set,
	}

	res, err := NewRanker(taxonomy.Default(), DefaultOptions()).Rank(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"linho"}, res.UIDs())
}

func TestRank_Limits(t *testing.T) {
	in := baseInput()
	in.Products = nil
	for i := range 10 {
		in.Products = append(in.Products,
			product(fmt.Sprintf("v%02d", i), "Vestido", assign(taxonomy.Material, "Linho", float64(10-i))),
			product(fmt.Sprintf("s%02d", i), "Sapato", assign(taxonomy.Material, "Linho", float64(10-i))),
		)
	}

	res, err := NewRanker(taxonomy.Default(), Options{PerCategoryLimit: 3, MaxProducts: 5}).Rank(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"v00", "v01", "v02", "s00", "s01"}, res.UIDs())

	res, err = NewRanker(taxonomy.Default(), Options{}).Rank(in)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Len())
}

func TestRank_MinCategoryWeight(t *testing.T) {
	res, err := NewRanker(taxonomy.Default(), Options{MinCategoryWeight: 6}).Rank(baseInput())
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, res.UIDs())
}

func TestRank_Deterministic(t *testing.T) {
	in := baseInput()
	want, err := NewRanker(taxonomy.Default(), DefaultOptions()).Rank(in)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		shuffled := baseInput()
		rng.Shuffle(len(shuffled.Products), func(i, j int) {
			shuffled.Products[i], shuffled.Products[j] = shuffled.Products[j], shuffled.Products[i]
		})
		got, err := NewRanker(taxonomy.Default(), DefaultOptions()).Rank(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want.UIDs(), got.UIDs())
	}
}

func TestRank_InputValidation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*Input)
		field string
	}{
		{"unknown attribute", func(in *Input) {
			in.Records = append(in.Records, score.Record{Attribute: "fit", Value: "x", Score: 1})
		}, "records"},
		{"unknown value", func(in *Input) {
			in.Records = append(in.Records, score.Record{Attribute: taxonomy.Color, Value: "Ultravioleta", Score: 1})
		}, "records"},
		{"score out of range", func(in *Input) {
			in.Records[0].Score = 11
		}, "records"},
		{"nan score", func(in *Input) {
			in.Records[0].Score = math.NaN()
		}, "records"},
		{"unknown category", func(in *Input) {
			in.Weights = append(in.Weights, score.CategoryWeight{Category: "Chapéu", Weight: 1})
		}, "weights"},
		{"negative weight", func(in *Input) {
			in.Weights[0].Weight = -1
		}, "weights"},
		{"infinite weight", func(in *Input) {
			in.Weights[0].Weight = math.Inf(1)
		}, "weights"},
		{"nan strength", func(in *Input) {
			in.Products[0].Assignments[0].Strength = math.NaN()
		}, "products"},
		{"infinite strength", func(in *Input) {
			in.Products[1].Assignments[0].Strength = math.Inf(1)
		}, "products"},
		{"empty uid", func(in *Input) {
			in.Products[0].UID = ""
		}, "products"},
		{"duplicate uid", func(in *Input) {
			in.Products[1].UID = in.Products[0].UID
		}, "products"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mut(&in)

			_, err := NewRanker(taxonomy.Default(), DefaultOptions()).Rank(in)
			require.ErrorIs(t, err, domain.ErrRankingInput)
			var rie *domain.RankingInputError
			require.True(t, errors.As(err, &rie))
			assert.Equal(t, tc.field, rie.Field)
		})
	}
}
