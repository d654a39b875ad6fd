package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ajjswift/gcselog-search-new/internal/config"
	"github.com/ajjswift/gcselog-search-new/internal/version"
)

func main() {
	app := &cli.Command{
		Name:    "gcselog-search",
		Usage:   "Search API for gcselog educational resources",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Configuration environment (config/<env>.yaml)",
				Value:   "local",
				Sources: cli.EnvVars("ENV"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			explainCommand(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("env"))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP search service",
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("env"))
		},
	}
}

func loadConfig(env string) (config.Config, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
