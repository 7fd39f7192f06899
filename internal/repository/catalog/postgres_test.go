package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	domcat "github.com/allbravos/styletelling-ai/internal/domain/catalog"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
)

// --- Mocks ---

type fakeRows struct {
	rows    [][]any
	pos     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.pos-1]
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case **string:
			if v == nil {
				*d = nil
			} else {
				s := v.(string)
				*d = &s
			}
		case **float64:
			if v == nil {
				*d = nil
			} else {
				f := v.(float64)
				*d = &f
			}
		default:
			return fmt.Errorf("unsupported scan target %T", dest[i])
		}
	}
	return nil
}

type fakeQuerier struct {
	rows     *fakeRows
	queryErr error
	pingErr  error
	lastArgs []any
}

func (q *fakeQuerier) Query(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
	q.lastArgs = args
	if q.queryErr != nil {
		return nil, q.queryErr
	}
	return q.rows, nil
}

func (q *fakeQuerier) Ping(_ context.Context) error { return q.pingErr }

func row(uid, category string, attribute, value any, strength any) []any {
	return []any{uid, category, "Nome " + uid, "", int64(10000), "", attribute, value, strength}
}

// --- Tests ---

func TestPostgres_LookupGroupsRows(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		row("dress-linen", "Vestido", "material", "Linho", 1.0),
		row("dress-linen", "Vestido", "structure", "Leve | Fluido", nil),
		row("plain-bag", "Bolsa", nil, nil, nil),
		row("skirt-linen", "Saia", "material", "linho", 0.5),
	}}
	q := &fakeQuerier{rows: rows}
	p := newPostgres(q, taxonomy.Default(), zap.NewNop())

	got, err := p.LookupProducts(context.Background(), domcat.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, rows.closed)

	assert.Equal(t, "dress-linen", got[0].UID)
	assert.Equal(t, []domcat.Assignment{
		{Attribute: taxonomy.Material, Value: "Linho", Strength: 1},
		{Attribute: taxonomy.Structure, Value: "Leve | Fluido", Strength: 1},
	}, got[0].Assignments)
	assert.Empty(t, got[1].Assignments)
	assert.Equal(t, int64(10000), got[1].PriceCents)
	assert.Equal(t, "Linho", got[2].Assignments[0].Value)
	assert.Equal(t, 0.5, got[2].Assignments[0].Strength)

	require.Len(t, q.lastArgs, 1)
	assert.Equal(t, []string{}, q.lastArgs[0])
}

func TestPostgres_LookupPassesCategories(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{}}
	p := newPostgres(q, taxonomy.Default(), zap.NewNop())

	got, err := p.LookupProducts(context.Background(), domcat.Filter{Categories: []string{"Saia"}})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"Saia"}, q.lastArgs[0])
}

func TestPostgres_SkipsUnknownAssignments(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{rows: [][]any{
		row("a", "Saia", "brilho", "Alto", nil),
		row("a", "Saia", "material", "Papel", nil),
		row("a", "Saia", "color", "Preto", nil),
	}}}
	p := newPostgres(q, taxonomy.Default(), zap.NewNop())

	got, err := p.LookupProducts(context.Background(), domcat.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []domcat.Assignment{{Attribute: taxonomy.Color, Value: "Preto", Strength: 1}}, got[0].Assignments)
}

func TestPostgres_Errors(t *testing.T) {
	tests := []struct {
		name string
		q    *fakeQuerier
	}{
		{"query", &fakeQuerier{queryErr: errors.New("connection refused")}},
		{"scan", &fakeQuerier{rows: &fakeRows{rows: [][]any{row("a", "Saia", nil, nil, nil)}, scanErr: errors.New("bad type")}}},
		{"rows", &fakeQuerier{rows: &fakeRows{err: errors.New("reset by peer")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPostgres(tt.q, taxonomy.Default(), zap.NewNop())
			_, err := p.LookupProducts(context.Background(), domcat.Filter{})
			assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
		})
	}
}

func TestPostgres_Ping(t *testing.T) {
	p := newPostgres(&fakeQuerier{}, taxonomy.Default(), zap.NewNop())
	assert.NoError(t, p.Ping(context.Background()))

	p = newPostgres(&fakeQuerier{pingErr: errors.New("down")}, taxonomy.Default(), zap.NewNop())
	assert.ErrorIs(t, p.Ping(context.Background()), domain.ErrCatalogUnavailable)
}

func TestNewPostgres_RequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "", taxonomy.Default(), zap.NewNop())
	assert.Error(t, err)
}
