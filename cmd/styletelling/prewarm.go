package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/querykey"
	"github.com/allbravos/styletelling-ai/internal/domain/status"
)

// processor runs one query through the pipeline.
type processor interface {
	Process(ctx context.Context, query string) iter.Seq[status.Event]
}

// prewarmStats summarizes one prewarm run.
type prewarmStats struct {
	Rows       int `json:"rows"`
	Duplicates int `json:"duplicates"`
	Blank      int `json:"blank"`
	Cached     int `json:"cached"`
	Hits       int `json:"hits"`
	Degraded   int `json:"degraded"`
	Failed     int `json:"failed"`
}

func prewarmAction(ctx context.Context, cmd *cli.Command) error {
	f, err := os.Open(cmd.String("csv"))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := readQueries(f, cmd.String("column"))
	if err != nil {
		return err
	}

	opts := appOptions{logEnv: "cli", source: envelope.SourcePrewarm}
	if cmd.Bool("verbose") {
		opts.logEnv = ""
	}
	a, err := newApp(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	queries, stats := dedupe(rows)
	a.logger.Info("Prewarm started", zap.Int("rows", stats.Rows), zap.Int("unique", len(queries)))

	if err := prewarm(ctx, a.pipeline, queries, cmd.Int("concurrency"), &stats, a.logger); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d queries failed", stats.Failed, len(queries))
	}
	return nil
}

// readQueries returns the non-header values of column, in file order.
func readQueries(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("csv has no %q column", column)
	}

	var out []string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if idx < len(rec) {
			out = append(out, rec[idx])
		} else {
			out = append(out, "")
		}
	}
}

// dedupe keeps the first query of each canonical key. Queries with an empty
// key are dropped; they are never cached.
func dedupe(rows []string) ([]string, prewarmStats) {
	stats := prewarmStats{Rows: len(rows)}
	seen := make(map[string]struct{}, len(rows))
	var out []string
	for _, q := range rows {
		key := querykey.Canonicalize(q)
		if key == "" {
			stats.Blank++
			continue
		}
		if _, ok := seen[key]; ok {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out, stats
}

// prewarm runs queries with bounded concurrency. Query failures are counted,
// not returned; only cancellation stops the run.
func prewarm(
	ctx context.Context, p processor, queries []string, concurrency int,
	stats *prewarmStats, logger *zap.Logger,
) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, q := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome := runOne(gctx, p, q)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome.err != nil:
				stats.Failed++
				logger.Warn("Prewarm query failed", zap.String("query", q), zap.Error(outcome.err))
			case outcome.hit:
				stats.Hits++
			default:
				stats.Cached++
				if outcome.degraded {
					stats.Degraded++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("prewarm interrupted: %w", err)
	}
	return nil
}

type queryOutcome struct {
	hit      bool
	degraded bool
	err      error
}

func runOne(ctx context.Context, p processor, query string) queryOutcome {
	var out queryOutcome
	for e := range p.Process(ctx, query) {
		switch e.Kind {
		case status.KindCacheHit:
			out.hit = true
		case status.KindDegraded:
			out.degraded = true
		case status.KindError:
			out.err = e.Err
		case status.KindResult:
			if env, ok := e.Data.(envelope.Envelope); ok && env.IsDegraded() {
				out.degraded = true
			}
		}
	}
	return out
}
