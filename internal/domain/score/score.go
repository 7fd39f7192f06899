// Package score holds the records produced by the attribute scorer and the
// category composer.
package score

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

const (
	// Min and Max bound every attribute score.
	Min = 0.0
	Max = 10.0
	// MaxJustificationWords caps justification length.
	MaxJustificationWords = 30
)

// Record scores one taxonomy value of one attribute.
type Record struct {
	Attribute     taxonomy.Name
	Value         string
	Score         float64
	Justification string
	Unscored      bool
}

// NewRecord clamps score to [Min, Max] at one-decimal granularity and caps the justification.
func NewRecord(attr taxonomy.Name, value string, raw float64, justification string) Record {
	return Record{
		Attribute:     attr,
		Value:         value,
		Score:         Clamp(raw),
		Justification: TruncateWords(justification, MaxJustificationWords),
	}
}

// Unscored returns the neutral record used when the oracle could not score a value.
func Unscored(attr taxonomy.Name, value string) Record {
	return Record{Attribute: attr, Value: value, Unscored: true}
}

// Clamp bounds s to [Min, Max] and rounds to one decimal. NaN maps to Min.
func Clamp(s float64) float64 {
	if math.IsNaN(s) {
		return Min
	}
	s = math.Max(Min, math.Min(Max, s))
	return math.Round(s*10) / 10
}

// Parse reads a score emitted as a JSON number or numeric string.
// Decimal commas are accepted. null, non-numeric text and non-finite values
// report false.
func Parse(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// TruncateWords keeps at most n whitespace-separated words.
func TruncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// AttributeScores groups the records of one selected attribute.
// Err is set when the attribute fell back to neutral or partially unscored records.
type AttributeScores struct {
	Attribute taxonomy.Name
	Records   []Record
	Err       error
}

// Degraded reports whether the attribute fell back.
func (a AttributeScores) Degraded() bool { return a.Err != nil }

// Neutral returns unscored records for every value of attr.
func Neutral(attr taxonomy.Attribute, err error) AttributeScores {
	values := attr.Values()
	records := make([]Record, len(values))
	for i, v := range values {
		records[i] = Unscored(attr.Name(), v)
	}
	return AttributeScores{Attribute: attr.Name(), Records: records, Err: err}
}

// Top returns up to n records with the highest scores, ties in declared order.
func (a AttributeScores) Top(n int) []Record {
	out := make([]Record, 0, len(a.Records))
	for _, r := range a.Records {
		if !r.Unscored {
			out = append(out, r)
		}
	}
	// insertion sort keeps declared order on ties
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Flatten concatenates records of all attributes in order.
func Flatten(all []AttributeScores) []Record {
	var out []Record
	for _, a := range all {
		out = append(out, a.Records...)
	}
	return out
}

// CategoryWeight is the composer's weight for one catalog category.
type CategoryWeight struct {
	Category string
	Weight   float64
}

// Weights indexes category weights by name.
func Weights(ws []CategoryWeight) map[string]float64 {
	m := make(map[string]float64, len(ws))
	for _, w := range ws {
		m[w.Category] = w.Weight
	}
	return m
}
