package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/allbravos/styletelling-ai/internal/domain"
	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/status"
	"github.com/allbravos/styletelling-ai/internal/domain/taxonomy"
	chiTransport "github.com/allbravos/styletelling-ai/internal/transport/chi"
	styletelling "github.com/allbravos/styletelling-ai/pkg/sdk"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestWriteEvents(t *testing.T) {
	var buf bytes.Buffer
	events := slices.Values([]status.Event{
		status.Progress(status.StageContext, 0.1, "analyzing"),
		result(envelope.Envelope{Key: "look praia", QueryRaw: "Look praia"}),
	})

	require.NoError(t, writeEvents(&buf, events))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "progress", lines[0]["kind"])
	assert.Equal(t, "result", lines[1]["kind"])
	data, ok := lines[1]["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "look praia", data["key"])
}

func TestWriteEvents_Failure(t *testing.T) {
	var buf bytes.Buffer
	events := slices.Values([]status.Event{
		status.Failure(status.StageRanking, domain.NewRankingInputError("weights", "unknown category %q", "Chapéu")),
	})

	err := writeEvents(&buf, events)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRankingInput))
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	data, ok := lines[0]["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ranking_input_error", data["code"])
	assert.Equal(t, "ranking", data["stage"])
}

func newRemote(t *testing.T, p *scriptedProcessor) string {
	t.Helper()
	r := chi.NewRouter()
	chiTransport.NewServer(p, taxonomy.Default(), nil, nil, zap.NewNop()).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRemoteQuery(t *testing.T) {
	p := &scriptedProcessor{respond: func(q string) []status.Event {
		return []status.Event{
			status.Progress(status.StageContext, 0.1, "analyzing"),
			result(envelope.Envelope{Key: "look praia", QueryRaw: q}),
		}
	}}
	url := newRemote(t, p)

	var buf bytes.Buffer
	require.NoError(t, remoteQuery(context.Background(), &buf, url, "", "Look praia"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "progress", lines[0]["kind"])
	assert.Equal(t, "result", lines[1]["kind"])
	data, ok := lines[1]["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Look praia", data["query"])
	assert.Equal(t, []string{"Look praia"}, p.calls)
}

func TestRemoteQuery_Failure(t *testing.T) {
	p := &scriptedProcessor{respond: func(string) []status.Event {
		return []status.Event{status.Failure(status.StageCatalog, domain.ErrCatalogUnavailable)}
	}}
	url := newRemote(t, p)

	var buf bytes.Buffer
	err := remoteQuery(context.Background(), &buf, url, "", "Look praia")
	require.ErrorIs(t, err, styletelling.ErrCatalogUnavailable)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "error", lines[0]["kind"])
}

func TestRemoteQuery_BadServer(t *testing.T) {
	err := remoteQuery(context.Background(), &bytes.Buffer{}, "ftp://nowhere", "", "q")
	require.Error(t, err)
}
