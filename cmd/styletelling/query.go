package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/allbravos/styletelling-ai/internal/domain/envelope"
	"github.com/allbravos/styletelling-ai/internal/domain/status"
	chiTransport "github.com/allbravos/styletelling-ai/internal/transport/chi"
	styletelling "github.com/allbravos/styletelling-ai/pkg/sdk"
)

var errNoQuery = errors.New("query text is required")

func queryAction(ctx context.Context, cmd *cli.Command) error {
	text := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return errNoQuery
	}

	if server := cmd.String("server"); server != "" {
		return remoteQuery(ctx, os.Stdout, server, cmd.String("api-key"), text)
	}

	opts := appOptions{logEnv: "cli", source: envelope.SourcePipeline}
	if cmd.Bool("verbose") {
		opts.logEnv = ""
	}
	a, err := newApp(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return writeEvents(os.Stdout, a.pipeline.Process(ctx, text))
}

// writeEvents prints one JSON object per event and returns the terminal error, if any.
func writeEvents(w io.Writer, events iter.Seq[status.Event]) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	var failure error
	for e := range events {
		if err := enc.Encode(chiTransport.EventView(e)); err != nil {
			return fmt.Errorf("write %s event: %w", e.Kind, err)
		}
		if e.Kind == status.KindError {
			failure = e.Err
		}
	}
	if failure != nil {
		return fmt.Errorf("query failed: %w", failure)
	}
	return nil
}

// remoteQuery streams the query from a running server and prints the same
// NDJSON lines as a local run.
func remoteQuery(ctx context.Context, w io.Writer, server, apiKey, text string) error {
	client, err := styletelling.New(server, styletelling.WithAPIKey(apiKey))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for ev, err := range client.Stream(ctx, text) {
		if err != nil {
			var apiErr *styletelling.APIError
			if errors.As(err, &apiErr) {
				_ = enc.Encode(map[string]any{"kind": styletelling.EventError, "stage": apiErr.Stage, "data": apiErr})
			}
			return fmt.Errorf("query failed: %w", err)
		}
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("write %s event: %w", ev.Kind, err)
		}
	}
	return nil
}
