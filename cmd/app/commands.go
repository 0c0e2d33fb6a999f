package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/uapf-mcp/cmd/app/commands"
	"github.com/allisson/uapf-mcp/internal/app"
	"github.com/allisson/uapf-mcp/internal/config"
)

func getCommands(version string) []*cli.Command {
	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   commands.FormatText,
		Usage:   "Output format: 'text' or 'json'",
	}

	return []*cli.Command{
		{
			Name:    "serve",
			Aliases: []string{"server"},
			Usage:   "Start the MCP gateway on the configured transport",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg, app.WithVersion(version))
				return commands.RunServe(ctx, container, version)
			},
		},
		{
			Name:  "check-config",
			Usage: "Validate the environment configuration without contacting the engine",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunCheckConfig(config.Load(), commands.DefaultIO().Writer)
			},
		},
		{
			Name:  "probe",
			Usage: "Fetch the engine metadata and report its mode",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := inspectionContainer(cfg, version)
				defer func() { _ = container.Shutdown(ctx) }()

				client, err := container.EngineClient()
				if err != nil {
					return err
				}

				return commands.RunProbe(
					ctx,
					client,
					cfg.EngineURL,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "packages",
			Usage: "Resolve the scope and list the visible packages",
			Flags: []cli.Flag{formatFlag},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				if err := cfg.Validate(); err != nil {
					return err
				}
				container := inspectionContainer(cfg, version)
				defer func() { _ = container.Shutdown(ctx) }()

				sc, err := container.Scope(ctx)
				if err != nil {
					return err
				}

				return commands.RunPackages(sc, commands.DefaultIO().Writer, cmd.String("format"))
			},
		},
	}
}

// inspectionContainer keeps logs on stderr so command output stays parseable.
func inspectionContainer(cfg *config.Config, version string) *app.Container {
	return app.NewContainer(cfg,
		app.WithVersion(version),
		app.WithStreams(os.Stdin, os.Stderr, os.Stderr),
	)
}
