// Package catalog provides the read-only product sources used by ranking.
package catalog

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/allbravos/styletelling-ai/internal/domain"
	domcat "github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// fileCatalog is the on-disk YAML layout.
type fileCatalog struct {
	Products []fileProduct `yaml:"products"`
}

type fileProduct struct {
	UID         string           `yaml:"uid"`
	Category    string           `yaml:"category"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	PriceCents  int64            `yaml:"price_cents"`
	ImageURL    string           `yaml:"image_url"`
	Assignments []fileAssignment `yaml:"assignments"`
}

type fileAssignment struct {
	Attribute string   `yaml:"attribute"`
	Value     string   `yaml:"value"`
	Strength  *float64 `yaml:"strength"`
}

// File serves products loaded once from a YAML document.
type File struct {
	products []domcat.Product
}

// LoadFile reads and validates a YAML catalog. Attribute and value names are
// resolved against the registry; unknown ones fail the load.
func LoadFile(path string, registry *taxonomy.Registry) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseFile(data, registry)
}

// ParseFile builds a catalog from YAML bytes.
func ParseFile(data []byte, registry *taxonomy.Registry) (*File, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Products))
	products := make([]domcat.Product, 0, len(doc.Products))
	for i, fp := range doc.Products {
		uid := strings.TrimSpace(fp.UID)
		if uid == "" {
			return nil, fmt.Errorf("product #%d: uid is required", i)
		}
		if _, dup := seen[uid]; dup {
			return nil, fmt.Errorf("product %s: duplicate uid", uid)
		}
		seen[uid] = struct{}{}

		category, ok := registry.ResolveCategory(fp.Category)
		if !ok {
			return nil, fmt.Errorf("product %s: unknown category %q", uid, fp.Category)
		}

		p := domcat.Product{
			UID:         uid,
			Category:    category,
			Name:        fp.Name,
			Description: fp.Description,
			PriceCents:  fp.PriceCents,
			ImageURL:    fp.ImageURL,
			Assignments: make([]domcat.Assignment, 0, len(fp.Assignments)),
		}
		for _, fa := range fp.Assignments {
			a, err := resolveAssignment(registry, fa.Attribute, fa.Value, fa.Strength)
			if err != nil {
				return nil, fmt.Errorf("product %s: %w", uid, err)
			}
			p.Assignments = append(p.Assignments, a)
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domcat.Product) int { return strings.Compare(a.UID, b.UID) })
	return &File{products: products}, nil
}

// LookupProducts returns the products matching filter, ordered by UID.
func (f *File) LookupProducts(ctx context.Context, filter domcat.Filter) ([]domcat.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("lookup products: %v: %w", err, domain.ErrCatalogUnavailable)
	}
	out := make([]domcat.Product, 0, len(f.products))
	for _, p := range f.products {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Ping always succeeds once the file is loaded.
func (f *File) Ping(_ context.Context) error { return nil }

// Len returns the number of loaded products.
func (f *File) Len() int { return len(f.products) }

// resolveAssignment maps catalog names onto the registry. Strength defaults to 1.
func resolveAssignment(registry *taxonomy.Registry, attribute, value string, strength *float64) (domcat.Assignment, error) {
	name, ok := registry.Resolve(attribute)
	if !ok {
		return domcat.Assignment{}, fmt.Errorf("unknown attribute %q", attribute)
	}
	attr, _ := registry.Attribute(name)
	v, ok := attr.ResolveValue(value)
	if !ok {
		return domcat.Assignment{}, fmt.Errorf("attribute %s: unknown value %q", name, value)
	}
	s := 1.0
	if strength != nil {
		s = *strength
	}
	if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
		return domcat.Assignment{}, fmt.Errorf("attribute %s value %s: invalid strength %v", name, v, s)
	}
	return domcat.Assignment{Attribute: name, Value: v, Strength: s}, nil
}
