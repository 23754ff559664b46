package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/medledger/cmd/app/commands"
	"github.com/allisson/medledger/internal/app"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
)

func emergencyRecordFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "record",
		Aliases:  []string{"r"},
		Required: required,
		Usage:    "Emergency access record ID (UUID)",
	}
}

func getAccessCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "grant",
			Usage: "Grant a grantee time-limited access to an artifact",
			Flags: []cli.Flag{
				artifactFlag(true),
				&cli.StringFlag{
					Name:     "grantee",
					Aliases:  []string{"g"},
					Required: true,
					Usage:    "Clinician or institution receiving access",
				},
				&cli.IntFlag{
					Name:    "days",
					Aliases: []string{"d"},
					Usage:   "Grant duration in days (defaults to GRANT_DEFAULT_DURATION_DAYS)",
				},
				actorFlag("Actor issuing the grant"),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					grants, err := container.GrantUseCase()
					if err != nil {
						return err
					}
					days := int(cmd.Int("days"))
					if !cmd.IsSet("days") {
						days = container.Config().GrantDefaultDurationDays
					}
					input := &grantDomain.GrantInput{
						ArtifactID:   cmd.String("artifact"),
						GranteeID:    cmd.String("grantee"),
						DurationDays: days,
						ActorID:      cmd.String("actor"),
					}
					return commands.RunGrant(
						ctx,
						grants,
						container.Logger(),
						commands.DefaultIO().Writer,
						input,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "revoke",
			Usage: "Revoke an access grant",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Grant ID (UUID)",
				},
				actorFlag("Actor revoking the grant"),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					grants, err := container.GrantUseCase()
					if err != nil {
						return err
					}
					return commands.RunRevoke(
						ctx,
						grants,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("id"),
						cmd.String("actor"),
					)
				})
			},
		},
		{
			Name:  "grants",
			Usage: "List an artifact's grants",
			Flags: []cli.Flag{artifactFlag(true), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					grants, err := container.GrantUseCase()
					if err != nil {
						return err
					}
					return commands.RunListGrants(
						ctx,
						grants,
						container.Clock(),
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "check-access",
			Usage: "Authorize an actor against an artifact",
			Flags: []cli.Flag{
				artifactFlag(true),
				actorFlag("Actor requesting access"),
				emergencyRecordFlag(false),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					access, err := container.AccessUseCase()
					if err != nil {
						return err
					}
					return commands.RunCheckAccess(
						ctx,
						access,
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("actor"),
						cmd.String("record"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "emergency-access",
			Usage: "Open a short-lived emergency access window on an artifact",
			Flags: []cli.Flag{
				artifactFlag(true),
				actorFlag("Clinician requesting emergency access"),
				&cli.StringFlag{
					Name:     "reason",
					Required: true,
					Usage:    "Clinical justification, kept on the audit trail",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					emergency, err := container.EmergencyUseCase()
					if err != nil {
						return err
					}
					input := &emergencyDomain.RequestAccessInput{
						ArtifactID:  cmd.String("artifact"),
						RequestedBy: cmd.String("actor"),
						Reason:      cmd.String("reason"),
					}
					return commands.RunEmergencyAccess(
						ctx,
						emergency,
						container.Logger(),
						commands.DefaultIO().Writer,
						input,
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "emergency-status",
			Usage: "Show whether an emergency record is active, or list an artifact's active records",
			Flags: []cli.Flag{
				emergencyRecordFlag(false),
				artifactFlag(false),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					emergency, err := container.EmergencyUseCase()
					if err != nil {
						return err
					}
					return commands.RunEmergencyStatus(
						ctx,
						emergency,
						commands.DefaultIO().Writer,
						cmd.String("record"),
						cmd.String("artifact"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "emergency-redeem",
			Usage: "Redeem an emergency record's one-time code",
			Flags: []cli.Flag{
				emergencyRecordFlag(true),
				&cli.StringFlag{
					Name:     "code",
					Required: true,
					Usage:    "One-time code printed by emergency-access",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					emergency, err := container.EmergencyUseCase()
					if err != nil {
						return err
					}
					return commands.RunEmergencyRedeem(
						ctx,
						emergency,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("record"),
						cmd.String("code"),
					)
				})
			},
		},
	}
}
