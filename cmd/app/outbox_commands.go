package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/commerce/cmd/app/commands"
	"github.com/allisson/commerce/internal/app"
	"github.com/allisson/commerce/internal/config"
)

func getOutboxCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "relay",
			Usage: "Start the outbox relay worker",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunRelay(ctx, version)
			},
		},
		{
			Name:  "clean-outbox",
			Usage: "Delete processed outbox messages past the retention window",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "format",
					Aliases: []string{"f"},
					Value:   "text",
					Usage:   "Output format: 'text' or 'json'",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				relayUseCase, err := container.RelayUseCase()
				if err != nil {
					return err
				}

				return commands.RunCleanOutbox(
					ctx,
					relayUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
	}
}
