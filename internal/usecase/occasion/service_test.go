package occasion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	domocc "github.com/allbravos/styletelling-ai/internal/domain/occasion"
)

// --- Mocks ---

type mockScorer struct {
	output string
	err    error
	calls  int
	last   domain.ScoreRequest
}

func (m *mockScorer) Score(_ context.Context, req domain.ScoreRequest) (domain.ScoreResult, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return domain.ScoreResult{}, m.err
	}
	return domain.ScoreResult{Output: json.RawMessage(m.output)}, nil
}

// --- Tests ---

func TestAnalyze_NestedShape(t *testing.T) {
	oracle := &mockScorer{output: `{
		"occasion": {"formality": "FORMAL", "time": "DIA", "location": "CAMPO", "activity": "CERIMONIA"},
		"weather": {"climate": "Hot"}
	}`}
	a := NewAnalyzer(oracle, "{{.query}}", zap.NewNop())

	c, err := a.Analyze(context.Background(), "casamento no campo no verão")
	require.NoError(t, err)

	assert.Equal(t, domocc.Context{
		Formality: domocc.Formal,
		Time:      domocc.Day,
		Location:  domocc.Countryside,
		Activity:  domocc.Ceremony,
		Weather:   domocc.Hot,
	}, c)
	assert.Equal(t, domain.StageContext, oracle.last.Stage)
	assert.Equal(t, "casamento no campo no verão", oracle.last.Input["query"])
}

func TestAnalyze_FlatShape(t *testing.T) {
	oracle := &mockScorer{output: `{"formality":"informal","time":"noite","location":"praia","activity":"festa","weather":"frio"}`}
	a := NewAnalyzer(oracle, "{{.query}}", zap.NewNop())

	c, err := a.Analyze(context.Background(), "luau")
	require.NoError(t, err)

	assert.Equal(t, domocc.Informal, c.Formality)
	assert.Equal(t, domocc.Night, c.Time)
	assert.Equal(t, domocc.Beach, c.Location)
	assert.Equal(t, domocc.Party, c.Activity)
	assert.Equal(t, domocc.Cold, c.Weather)
}

func TestAnalyze_UnknownValuesAreUnspecified(t *testing.T) {
	oracle := &mockScorer{output: `{"occasion": {"formality": "semi", "time": ""}, "weather": {}}`}
	a := NewAnalyzer(oracle, "{{.query}}", zap.NewNop())

	c, err := a.Analyze(context.Background(), "algo")
	require.NoError(t, err)
	assert.True(t, c.IsUnspecified())
}

func TestAnalyze_EmptyQuery(t *testing.T) {
	oracle := &mockScorer{}
	a := NewAnalyzer(oracle, "{{.query}}", zap.NewNop())

	c, err := a.Analyze(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrOracleInput)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.True(t, c.IsUnspecified())
	assert.Zero(t, oracle.calls)
}

func TestAnalyze_OracleFailure(t *testing.T) {
	oracle := &mockScorer{err: domain.ErrOracleTimeout}
	a := NewAnalyzer(oracle, "{{.query}}", zap.NewNop())

	c, err := a.Analyze(context.Background(), "festa")
	require.ErrorIs(t, err, domain.ErrOracleTimeout)
	assert.True(t, c.IsUnspecified())
}

func TestAnalyze_MalformedOutput(t *testing.T) {
	oracle := &mockScorer{output: `["not", "an", "object"]`}
	a := NewAnalyzer(oracle, "{{.query}}", zap.NewNop())

	c, err := a.Analyze(context.Background(), "festa")
	require.ErrorIs(t, err, domain.ErrOracleMalformedOutput)
	assert.True(t, c.IsUnspecified())
}
