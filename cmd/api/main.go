// Package main is the entry point for the content-query-service API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "content-query-service",
		Usage: "serve allow-listed content queries over REST",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file (default ./config/config.yaml)",
				Sources: cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run migrations and start the HTTP server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "roll back the last applied migration instead",
					},
					&cli.BoolFlag{
						Name:  "status",
						Usage: "list pending migrations without applying them",
					},
				},
				Action: migrate,
			},
			{
				Name:   "reindex",
				Usage:  "rebuild the on-disk search index once and exit",
				Action: reindex,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
