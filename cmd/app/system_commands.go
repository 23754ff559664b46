package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/medledger/cmd/app/commands"
	"github.com/allisson/medledger/internal/app"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the operational HTTP server and the integrity monitor",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "dir",
					Value: "migrations",
					Usage: "Directory holding the postgresql and mysql migration sets",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					return commands.RunMigrations(container.Config(), container.Logger(), cmd.String("dir"))
				})
			},
		},
	}
}
