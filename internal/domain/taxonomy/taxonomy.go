// Package taxonomy declares the fixed styling attributes, their values and the
// product categories known to the catalog.
package taxonomy

import (
	"fmt"
	"slices"

	"github.com/allbravos/styletelling-ai/internal/domain/querykey"
)

// SelectionSize is the number of attributes scored per query.
const SelectionSize = 5

// Name identifies an attribute.
type Name string

// Attribute names in declaration order.
const (
	Message   Name = "message"
	Line      Name = "line"
	Material  Name = "material"
	Structure Name = "structure"
	Texture   Name = "texture"
	Surface   Name = "surface"
	Color     Name = "color"
)

// Attribute is one styling dimension.
type Attribute struct {
	name   Name
	label  string
	column string
	values []string
}

// NewAttribute creates an attribute. Values keep their declared order.
func NewAttribute(name Name, label, column string, values []string) Attribute {
	return Attribute{name: name, label: label, column: column, values: slices.Clone(values)}
}

// Name returns the attribute identifier.
func (a Attribute) Name() Name { return a.name }

// Label returns the display label used in prompts.
func (a Attribute) Label() string { return a.label }

// Column returns the catalog column holding this attribute.
func (a Attribute) Column() string { return a.column }

// Values returns a copy of the possible values in declared order.
func (a Attribute) Values() []string { return slices.Clone(a.values) }

// HasValue reports whether v is a declared value.
func (a Attribute) HasValue(v string) bool { return slices.Contains(a.values, v) }

// ResolveValue maps oracle text to a declared value, ignoring case and accents.
func (a Attribute) ResolveValue(raw string) (string, bool) {
	if a.HasValue(raw) {
		return raw, true
	}
	key := querykey.Canonicalize(raw)
	if key == "" {
		return "", false
	}
	for _, v := range a.values {
		if querykey.Canonicalize(v) == key {
			return v, true
		}
	}
	return "", false
}

// Registry is the immutable set of attributes and categories.
type Registry struct {
	attributes []Attribute
	index      map[Name]int
	categories []string
}

// NewRegistry validates and builds a registry.
func NewRegistry(attributes []Attribute, categories []string) (*Registry, error) {
	if len(attributes) < SelectionSize {
		return nil, fmt.Errorf("registry needs at least %d attributes, got %d", SelectionSize, len(attributes))
	}
	index := make(map[Name]int, len(attributes))
	for i, a := range attributes {
		if a.name == "" {
			return nil, fmt.Errorf("attribute %d has no name", i)
		}
		if _, dup := index[a.name]; dup {
			return nil, fmt.Errorf("duplicate attribute %q", a.name)
		}
		if len(a.values) == 0 {
			return nil, fmt.Errorf("attribute %q has no values", a.name)
		}
		index[a.name] = i
	}
	seen := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate category %q", c)
		}
		seen[c] = struct{}{}
	}
	return &Registry{
		attributes: slices.Clone(attributes),
		index:      index,
		categories: slices.Clone(categories),
	}, nil
}

// Attributes returns all attributes in declaration order.
func (r *Registry) Attributes() []Attribute { return slices.Clone(r.attributes) }

// Names returns attribute names in declaration order.
func (r *Registry) Names() []Name {
	names := make([]Name, len(r.attributes))
	for i, a := range r.attributes {
		names[i] = a.name
	}
	return names
}

// Attribute returns the attribute with the given name.
func (r *Registry) Attribute(name Name) (Attribute, bool) {
	i, ok := r.index[name]
	if !ok {
		return Attribute{}, false
	}
	return r.attributes[i], true
}

// Order returns the declaration index of name, or -1.
func (r *Registry) Order(name Name) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

// Resolve maps oracle text (name or label, any case or accents) to an attribute name.
// Labels like "Linha | Forma" resolve by the part before the bar.
func (r *Registry) Resolve(raw string) (Name, bool) {
	if _, ok := r.index[Name(raw)]; ok {
		return Name(raw), true
	}
	key := querykey.Canonicalize(beforeBar(raw))
	if key == "" {
		return "", false
	}
	for _, a := range r.attributes {
		if querykey.Canonicalize(string(a.name)) == key || querykey.Canonicalize(a.label) == key {
			return a.name, true
		}
	}
	return "", false
}

// Categories returns the known product categories in declared order.
func (r *Registry) Categories() []string { return slices.Clone(r.categories) }

// HasCategory reports whether c is a known category.
func (r *Registry) HasCategory(c string) bool { return slices.Contains(r.categories, c) }

// ResolveCategory maps oracle text to a declared category, ignoring case and accents.
func (r *Registry) ResolveCategory(raw string) (string, bool) {
	if r.HasCategory(raw) {
		return raw, true
	}
	key := querykey.Canonicalize(raw)
	if key == "" {
		return "", false
	}
	for _, c := range r.categories {
		if querykey.Canonicalize(c) == key {
			return c, true
		}
	}
	return "", false
}

// DefaultSelection is the first SelectionSize attributes in declaration order.
func (r *Registry) DefaultSelection() Selection {
	return Selection{names: r.Names()[:SelectionSize]}
}

func beforeBar(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			return s[:i]
		}
	}
	return s
}
