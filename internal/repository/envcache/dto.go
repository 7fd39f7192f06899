package envcache

import (
	"errors"
	"time"

	"github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/ranking"
	"github.com/allbravos/styletelling-ai/internal/domain/score"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// envelopeDTO is the stored JSON form of an envelope.
type envelopeDTO struct {
	ID          string         `json:"id"`
	Key         string         `json:"key"`
	QueryRaw    string         `json:"query_raw"`
	NormVersion string         `json:"norm_version"`
	Source      string         `json:"source"`
	Context     contextDTO     `json:"context"`
	Selection   []string       `json:"selection"`
	Scores      []attributeDTO `json:"scores"`
	Weights     []categoryDTO  `json:"weights"`
	Items       []itemDTO      `json:"items"`
	Degraded    []string       `json:"degraded,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type contextDTO struct {
	Formality string `json:"formality"`
	Time      string `json:"time"`
	Location  string `json:"location"`
	Activity  string `json:"activity"`
	Weather   string `json:"weather"`
}

type attributeDTO struct {
	Attribute string      `json:"attribute"`
	Records   []recordDTO `json:"records"`
	Error     string      `json:"error,omitempty"`
}

type recordDTO struct {
	Value         string  `json:"value"`
	Score         float64 `json:"score"`
	Justification string  `json:"justification,omitempty"`
	Unscored      bool    `json:"unscored,omitempty"`
}

type categoryDTO struct {
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

type itemDTO struct {
	UID            string      `json:"uid"`
	Category       string      `json:"category"`
	Composite      float64     `json:"composite"`
	AttributeSum   float64     `json:"attribute_sum"`
	CategoryWeight float64     `json:"category_weight"`
	Factors        []factorDTO `json:"factors"`
	Product        productDTO  `json:"product"`
}

type factorDTO struct {
	Attribute    string  `json:"attribute"`
	Value        string  `json:"value"`
	Score        float64 `json:"score"`
	Strength     float64 `json:"strength"`
	Contribution float64 `json:"contribution"`
}

type productDTO struct {
	UID         string          `json:"uid"`
	Category    string          `json:"category"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	PriceCents  int64           `json:"price_cents,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
	Assignments []assignmentDTO `json:"assignments"`
}

type assignmentDTO struct {
	Attribute string  `json:"attribute"`
	Value     string  `json:"value"`
	Strength  float64 `json:"strength"`
}

func toDTO(env envelope.Envelope) envelopeDTO {
	d := envelopeDTO{
		ID:          env.ID,
		Key:         env.Key,
		QueryRaw:    env.QueryRaw,
		NormVersion: env.NormVersion,
		Source:      string(env.Source),
		Context: contextDTO{
			Formality: string(env.Context.Formality),
			Time:      string(env.Context.Time),
			Location:  string(env.Context.Location),
			Activity:  string(env.Context.Activity),
			Weather:   string(env.Context.Weather),
		},
		Degraded:    env.Degraded,
		GeneratedAt: env.GeneratedAt.UTC(),
	}

	d.Selection = make([]string, len(env.Selection))
	for i, n := range env.Selection {
		d.Selection[i] = string(n)
	}

	d.Scores = make([]attributeDTO, len(env.Scores))
	for i, a := range env.Scores {
		ad := attributeDTO{Attribute: string(a.Attribute), Records: make([]recordDTO, len(a.Records))}
		if a.Err != nil {
			ad.Error = a.Err.Error()
		}
		for j, r := range a.Records {
			ad.Records[j] = recordDTO{
				Value:         r.Value,
				Score:         r.Score,
				Justification: r.Justification,
				Unscored:      r.Unscored,
			}
		}
		d.Scores[i] = ad
	}

	d.Weights = make([]categoryDTO, len(env.Weights))
	for i, w := range env.Weights {
		d.Weights[i] = categoryDTO{Category: w.Category, Weight: w.Weight}
	}

	d.Items = make([]itemDTO, len(env.Result.Items))
	for i, it := range env.Result.Items {
		id := itemDTO{
			UID:            it.UID,
			Category:       it.Category,
			Composite:      it.Composite,
			AttributeSum:   it.AttributeSum,
			CategoryWeight: it.CategoryWeight,
			Factors:        make([]factorDTO, len(it.Factors)),
			Product:        productToDTO(it.Product),
		}
		for j, f := range it.Factors {
			id.Factors[j] = factorDTO{
				Attribute:    string(f.Attribute),
				Value:        f.Value,
				Score:        f.Score,
				Strength:     f.Strength,
				Contribution: f.Contribution,
			}
		}
		d.Items[i] = id
	}
	return d
}

func productToDTO(p catalog.Product) productDTO {
	pd := productDTO{
		UID:         p.UID,
		Category:    p.Category,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		ImageURL:    p.ImageURL,
		Assignments: make([]assignmentDTO, len(p.Assignments)),
	}
	for i, a := range p.Assignments {
		pd.Assignments[i] = assignmentDTO{Attribute: string(a.Attribute), Value: a.Value, Strength: a.Strength}
	}
	return pd
}

func fromDTO(d envelopeDTO) envelope.Envelope {
	env := envelope.Envelope{
		ID:          d.ID,
		Key:         d.Key,
		QueryRaw:    d.QueryRaw,
		NormVersion: d.NormVersion,
		Source:      envelope.Source(d.Source),
		Context: occasion.Context{
			Formality: occasion.Formality(d.Context.Formality),
			Time:      occasion.TimeOfDay(d.Context.Time),
			Location:  occasion.Location(d.Context.Location),
			Activity:  occasion.Activity(d.Context.Activity),
			Weather:   occasion.WeatherBand(d.Context.Weather),
		},
		Degraded:    d.Degraded,
		GeneratedAt: d.GeneratedAt,
	}

	env.Selection = make([]taxonomy.Name, len(d.Selection))
	for i, n := range d.Selection {
		env.Selection[i] = taxonomy.Name(n)
	}

	env.Scores = make([]score.AttributeScores, len(d.Scores))
	for i, ad := range d.Scores {
		attr := taxonomy.Name(ad.Attribute)
		a := score.AttributeScores{Attribute: attr, Records: make([]score.Record, len(ad.Records))}
		if ad.Error != "" {
			a.Err = errors.New(ad.Error)
		}
		for j, r := range ad.Records {
			a.Records[j] = score.Record{
				Attribute:     attr,
				Value:         r.Value,
				Score:         r.Score,
				Justification: r.Justification,
				Unscored:      r.Unscored,
			}
		}
		env.Scores[i] = a
	}

	env.Weights = make([]score.CategoryWeight, len(d.Weights))
	for i, w := range d.Weights {
		env.Weights[i] = score.CategoryWeight{Category: w.Category, Weight: w.Weight}
	}

	items := make([]ranking.Item, len(d.Items))
	for i, id := range d.Items {
		it := ranking.Item{
			UID:            id.UID,
			Category:       id.Category,
			Composite:      id.Composite,
			AttributeSum:   id.AttributeSum,
			CategoryWeight: id.CategoryWeight,
			Factors:        make([]ranking.Factor, len(id.Factors)),
			Product:        productFromDTO(id.Product),
		}
		for j, f := range id.Factors {
			it.Factors[j] = ranking.Factor{
				Attribute:    taxonomy.Name(f.Attribute),
				Value:        f.Value,
				Score:        f.Score,
				Strength:     f.Strength,
				Contribution: f.Contribution,
			}
		}
		items[i] = it
	}
	env.Result = ranking.Result{Items: items}
	return env
}

func productFromDTO(d productDTO) catalog.Product {
	p := catalog.Product{
		UID:         d.UID,
		Category:    d.Category,
		Name:        d.Name,
		Description: d.Description,
		PriceCents:  d.PriceCents,
		ImageURL:    d.ImageURL,
		Assignments: make([]catalog.Assignment, len(d.Assignments)),
	}
	for i, a := range d.Assignments {
		p.Assignments[i] = catalog.Assignment{Attribute: taxonomy.Name(a.Attribute), Value: a.Value, Strength: a.Strength}
	}
	return p
}
