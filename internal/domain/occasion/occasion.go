// Package occasion models the query context: formality, time, location,
// activity and weather band. Every field is always set to a known enum value.
package occasion

import (
	"strings"

	"github.com/allbravos/styletelling-ai/internal/domain/querykey"
)

// Unspecified is the neutral value shared by all dimensions.
const Unspecified = "unspecified"

// Formality of the occasion.
type Formality string

// Formality values.
const (
	FormalityUnspecified Formality = Unspecified
	Formal               Formality = "formal"
	Informal             Formality = "informal"
)

// TimeOfDay of the occasion.
type TimeOfDay string

// TimeOfDay values.
const (
	TimeUnspecified TimeOfDay = Unspecified
	Day             TimeOfDay = "day"
	Night           TimeOfDay = "night"
)

// Location of the occasion.
type Location string

// Location values.
const (
	LocationUnspecified Location = Unspecified
	City                Location = "city"
	Beach               Location = "beach"
	Countryside         Location = "countryside"
	OutdoorLikely       Location = "outdoor-likely"
	Indoor              Location = "indoor"
)

// Activity at the occasion.
type Activity string

// Activity values.
const (
	ActivityUnspecified Activity = Unspecified
	Ceremony            Activity = "ceremony"
	Party               Activity = "party"
	Sport               Activity = "sport"
	Leisure             Activity = "leisure"
	Everyday            Activity = "everyday"
	Work                Activity = "work"
)

// WeatherBand is the coarse climate expected.
type WeatherBand string

// WeatherBand values.
const (
	WeatherUnspecified WeatherBand = Unspecified
	Hot                WeatherBand = "hot"
	Mild               WeatherBand = "mild"
	Cold               WeatherBand = "cold"
)

// Context is derived once per query and never mutated.
type Context struct {
	Formality Formality
	Time      TimeOfDay
	Location  Location
	Activity  Activity
	Weather   WeatherBand
}

// UnspecifiedContext returns the all-neutral context used as fallback.
func UnspecifiedContext() Context {
	return Context{
		Formality: FormalityUnspecified,
		Time:      TimeUnspecified,
		Location:  LocationUnspecified,
		Activity:  ActivityUnspecified,
		Weather:   WeatherUnspecified,
	}
}

// IsUnspecified reports whether every dimension is neutral.
func (c Context) IsUnspecified() bool {
	return c == UnspecifiedContext()
}

// Normalize replaces empty or unknown fields with their neutral value.
func (c Context) Normalize() Context {
	return Context{
		Formality: ParseFormality(string(c.Formality)),
		Time:      ParseTimeOfDay(string(c.Time)),
		Location:  ParseLocation(string(c.Location)),
		Activity:  ParseActivity(string(c.Activity)),
		Weather:   ParseWeather(string(c.Weather)),
	}
}

// The oracle answers in Portuguese or English, upper or lower case.
var (
	formalityAliases = map[string]Formality{
		"formal": Formal, "informal": Informal, "casual": Informal,
	}
	timeAliases = map[string]TimeOfDay{
		"day": Day, "dia": Day, "daytime": Day, "tarde": Day, "manha": Day,
		"night": Night, "noite": Night, "evening": Night,
	}
	locationAliases = map[string]Location{
		"city": City, "cidade": City, "urban": City,
		"beach": Beach, "praia": Beach,
		"countryside": Countryside, "campo": Countryside, "country": Countryside,
		"outdoor likely": OutdoorLikely, "outdoor": OutdoorLikely, "ar livre": OutdoorLikely, "externo": OutdoorLikely,
		"indoor": Indoor, "interno": Indoor,
	}
	activityAliases = map[string]Activity{
		"ceremony": Ceremony, "cerimonia": Ceremony, "casamento": Ceremony, "wedding": Ceremony,
		"party": Party, "festa": Party,
		"sport": Sport, "esporte": Sport, "sports": Sport,
		"leisure": Leisure, "lazer": Leisure,
		"everyday": Everyday, "atividades dia a dia": Everyday, "dia a dia": Everyday,
		"work": Work, "trabalho": Work,
	}
	weatherAliases = map[string]WeatherBand{
		"hot": Hot, "quente": Hot, "calor": Hot, "verao": Hot, "summer": Hot,
		"mild": Mild, "ameno": Mild, "temperado": Mild,
		"cold": Cold, "frio": Cold, "inverno": Cold, "winter": Cold,
	}
)

// ParseFormality resolves oracle text; unknown text yields FormalityUnspecified.
func ParseFormality(s string) Formality { return lookup(formalityAliases, s, FormalityUnspecified) }

// ParseTimeOfDay resolves oracle text; unknown text yields TimeUnspecified.
func ParseTimeOfDay(s string) TimeOfDay { return lookup(timeAliases, s, TimeUnspecified) }

// ParseLocation resolves oracle text; unknown text yields LocationUnspecified.
func ParseLocation(s string) Location { return lookup(locationAliases, s, LocationUnspecified) }

// ParseActivity resolves oracle text; unknown text yields ActivityUnspecified.
func ParseActivity(s string) Activity { return lookup(activityAliases, s, ActivityUnspecified) }

// ParseWeather resolves oracle text; unknown text yields WeatherUnspecified.
func ParseWeather(s string) WeatherBand { return lookup(weatherAliases, s, WeatherUnspecified) }

func lookup[T ~string](aliases map[string]T, raw string, fallback T) T {
	key := querykey.Canonicalize(strings.ReplaceAll(raw, "-", " "))
	if v, ok := aliases[key]; ok {
		return v
	}
	return fallback
}
