package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	pkgconfig "github.com/starford/quire/pkg/config"
)

type entryFunc func(ctx context.Context, opts ...internal.Option) error

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func runWith(entry entryFunc, extra ...internal.Option) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := append([]internal.Option{internal.WithConfig(cfg)}, extra...)
		if err := entry(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

// run is the default action: build, or publish with --deploy.
func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("deploy") {
		return runWith(internal.Publish)(ctx, cmd)
	}
	return runWith(internal.Build)(ctx, cmd)
}

func main() {
	cmd := &cli.Command{
		Name:   "quire",
		Usage:  "Static blog generator with literate Rust posts and Cloudflare Pages deploys",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "deploy",
				Usage: "Publish: build without drafts, deploy, then rebuild",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the site",
				Action: runWith(internal.Build),
			},
			{
				Name:   "publish",
				Usage:  "Build without drafts, deploy to Cloudflare Pages, then rebuild",
				Action: runWith(internal.Publish),
			},
			{
				Name:   "serve",
				Usage:  "Build, serve the site with the preview API and rebuild on changes",
				Action: runWith(internal.Serve),
			},
			{
				Name:   "mcp",
				Usage:  "Build and expose posts as MCP tools over stdio",
				Action: runWith(internal.ServeMCP, internal.WithLogOutput(os.Stderr)),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
