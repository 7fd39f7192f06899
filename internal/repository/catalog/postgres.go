package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	domcat "github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// products(product_id, name, description, price, image_url, category)
// products_taxonomy(product_id, attribute, value, score)
const lookupSQL = `
SELECT p.product_id, p.category, p.name, COALESCE(p.description, ''),
       COALESCE(ROUND(p.price * 100), 0)::bigint, COALESCE(p.image_url, ''),
       t.attribute, t.value, t.score
FROM products p
LEFT JOIN products_taxonomy t ON t.product_id = p.product_id
WHERE cardinality($1::text[]) = 0 OR p.category = ANY($1::text[])
ORDER BY p.product_id, t.attribute, t.value`

// querier is the subset of *pgxpool.Pool the catalog needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

// Postgres reads products from a relational catalog.
type Postgres struct {
	db       querier
	registry *taxonomy.Registry
	logger   *zap.Logger
	closeFn  func()
}

// NewPostgres connects a pool to dsn.
func NewPostgres(ctx context.Context, dsn string, registry *taxonomy.Registry, logger *zap.Logger) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect catalog: %w", err)
	}
	p := newPostgres(pool, registry, logger)
	p.closeFn = pool.Close
	return p, nil
}

func newPostgres(db querier, registry *taxonomy.Registry, logger *zap.Logger) *Postgres {
	return &Postgres{db: db, registry: registry, logger: logger}
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping catalog: %v: %w", err, domain.ErrCatalogUnavailable)
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.closeFn != nil {
		p.closeFn()
	}
}

// LookupProducts returns the products matching filter, ordered by UID.
// Rows tagged with attributes or values outside the registry are skipped.
func (p *Postgres) LookupProducts(ctx context.Context, filter domcat.Filter) ([]domcat.Product, error) {
	categories := filter.Categories
	if categories == nil {
		categories = []string{}
	}

	rows, err := p.db.Query(ctx, lookupSQL, categories)
	if err != nil {
		return nil, fmt.Errorf("query products: %v: %w", err, domain.ErrCatalogUnavailable)
	}
	defer rows.Close()

	var products []domcat.Product
	for rows.Next() {
		var (
			uid, category, name, description, imageURL string
			priceCents                                 int64
			attribute, value                           *string
			strength                                   *float64
		)
		if err := rows.Scan(&uid, &category, &name, &description, &priceCents, &imageURL,
			&attribute, &value, &strength); err != nil {
			return nil, fmt.Errorf("scan product: %v: %w", err, domain.ErrCatalogUnavailable)
		}

		if n := len(products); n == 0 || products[n-1].UID != uid {
			products = append(products, domcat.Product{
				UID:         uid,
				Category:    category,
				Name:        name,
				Description: description,
				PriceCents:  priceCents,
				ImageURL:    imageURL,
			})
		}
		if attribute == nil || value == nil {
			continue
		}

		a, err := resolveAssignment(p.registry, *attribute, *value, strength)
		if err != nil {
			p.logger.Warn("Skipping catalog assignment", zap.String("uid", uid), zap.Error(err))
			continue
		}
		last := &products[len(products)-1]
		last.Assignments = append(last.Assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read products: %v: %w", err, domain.ErrCatalogUnavailable)
	}
	return products, nil
}
