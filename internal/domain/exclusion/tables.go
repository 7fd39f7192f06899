package exclusion

import (
	"github.com/allbravos/styletelling-ai/internal/domain/occasion"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

const (
	couro          = "Couro"
	jeans          = "Jeans"
	malhaRetilinea = "Malha | Retilínea"
	tecidoFestivo  = "Tecido festivo"
	tecidoPlano    = "Tecido plano"
	pesado         = "Pesado | Estruturado"
	leve           = "Leve | Fluido"
	brilhante      = "Brilhante"
	categoryShort  = "Short"
	categoryBlazer = "Blazer"
	categoryCasaco = "Casaco"
)

func materials(values ...string) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = Value(taxonomy.Material, v)
	}
	return items
}

func with(items []Item, more ...Item) []Item {
	return append(items, more...)
}

// Default returns the production rule tables.
func Default() *Rules {
	return NewRules(DefaultOccasionRules(), DefaultWeatherRules())
}

// DefaultOccasionRules is keyed by (formality, time, location, activity).
func DefaultOccasionRules() []OccasionRule {
	const (
		formal   = occasion.Formal
		informal = occasion.Informal
		day      = occasion.Day
		night    = occasion.Night
		campo    = occasion.Countryside
		cidade   = occasion.City
		praia    = occasion.Beach
	)
	return []OccasionRule{
		{OccasionKey{formal, day, campo, occasion.Party},
			with(materials(couro, jeans, malhaRetilinea), Value(taxonomy.Surface, brilhante))},
		{OccasionKey{formal, night, campo, occasion.Party},
			materials(couro, jeans, malhaRetilinea)},
		{OccasionKey{informal, day, cidade, occasion.Sport},
			with(materials(couro, jeans, tecidoFestivo, tecidoPlano), Category(categoryBlazer))},
		{OccasionKey{informal, day, cidade, occasion.Leisure},
			materials(couro, jeans, tecidoFestivo)},
		{OccasionKey{informal, day, cidade, occasion.Everyday},
			materials(tecidoFestivo, tecidoPlano)},
		{OccasionKey{informal, night, cidade, occasion.Sport},
			with(materials(couro, jeans, tecidoFestivo, tecidoPlano),
				Value(taxonomy.Structure, pesado), Category(categoryBlazer))},
		{OccasionKey{informal, day, praia, occasion.Sport},
			with(materials(couro, tecidoFestivo, tecidoPlano),
				Value(taxonomy.Structure, pesado), Category(categoryBlazer))},
		{OccasionKey{informal, day, praia, occasion.Leisure},
			materials(couro, tecidoFestivo, tecidoPlano)},
		{OccasionKey{informal, day, praia, occasion.Party},
			materials(couro, tecidoFestivo, tecidoPlano)},
		{OccasionKey{informal, day, praia, occasion.Everyday},
			materials(couro, jeans, tecidoFestivo)},
		{OccasionKey{informal, night, praia, occasion.Leisure},
			with(materials(couro, tecidoFestivo), Value(taxonomy.Structure, pesado))},
		{OccasionKey{informal, night, praia, occasion.Party},
			materials(couro, tecidoFestivo)},
		{OccasionKey{informal, day, campo, occasion.Sport},
			with(materials(tecidoFestivo), Category(categoryBlazer))},
		{OccasionKey{informal, day, campo, occasion.Leisure},
			materials(tecidoFestivo)},
		{OccasionKey{informal, day, campo, occasion.Party},
			materials(tecidoFestivo)},
		{OccasionKey{informal, day, campo, occasion.Everyday},
			materials(tecidoFestivo, tecidoPlano)},
		{OccasionKey{informal, night, campo, occasion.Leisure},
			with(materials(tecidoFestivo), Value(taxonomy.Structure, pesado))},

		// Ceremonies apply regardless of location.
		{OccasionKey{formal, day, Any, occasion.Ceremony},
			with(materials(couro, jeans, malhaRetilinea),
				Value(taxonomy.Surface, brilhante), Category(categoryShort))},
		{OccasionKey{formal, night, Any, occasion.Ceremony},
			with(materials(jeans, malhaRetilinea), Category(categoryShort))},
		{OccasionKey{informal, Any, Any, occasion.Ceremony},
			materials(jeans)},
		{OccasionKey{Any, Any, Any, occasion.Sport},
			materials(tecidoFestivo)},
	}
}

// DefaultWeatherRules is keyed by weather band.
func DefaultWeatherRules() map[occasion.WeatherBand][]Item {
	return map[occasion.WeatherBand][]Item{
		occasion.Hot: with(materials("Lã", "Veludo", "Tricô"),
			Value(taxonomy.Structure, pesado), Category(categoryCasaco)),
		occasion.Cold: with(materials("Linho"),
			Value(taxonomy.Structure, leve), Category(categoryShort)),
	}
}
