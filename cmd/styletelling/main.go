// Command styletelling serves and runs the styling recommendation pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/allbravos/styletelling-ai/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "styletelling:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "styletelling",
		Usage:   "rank catalog products for a free-text styling query",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file loaded before the config",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "config environment (config/<env>.yaml); defaults to $ENV or local",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "override http.port",
					},
				},
				Action: serveAction,
			},
			{
				Name:      "query",
				Usage:     "run one query and print its status events as NDJSON",
				ArgsUsage: "<query text>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "log at the configured level instead of warn",
					},
					&cli.StringFlag{
						Name:  "server",
						Usage: "base URL of a running styletelling server; runs the query remotely",
					},
					&cli.StringFlag{
						Name:  "api-key",
						Usage: "Bearer key for --server",
					},
				},
				Action: queryAction,
			},
			{
				Name:  "prewarm",
				Usage: "fill the envelope cache from a CSV of queries",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "CSV file with a header row",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "column",
						Usage: "header of the query column",
						Value: "query",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "queries processed at once",
						Value: 2,
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "log at the configured level instead of warn",
					},
				},
				Action: prewarmAction,
			},
		},
	}
}
