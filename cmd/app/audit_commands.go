package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/medledger/cmd/app/commands"
	"github.com/allisson/medledger/internal/app"
)

func getAuditCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "audit",
			Usage: "Print the audit trail of an artifact or an actor",
			Flags: []cli.Flag{
				artifactFlag(false),
				&cli.StringFlag{
					Name:  "actor",
					Usage: "Actor ID",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					audit, err := container.AuditUseCase()
					if err != nil {
						return err
					}
					return commands.RunAudit(
						ctx,
						audit,
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("actor"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "verify-audit",
			Usage: "Verify the signatures of an artifact's audit entries",
			Flags: []cli.Flag{artifactFlag(true), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					audit, err := container.AuditUseCase()
					if err != nil {
						return err
					}
					return commands.RunVerifyAudit(
						ctx,
						audit,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
