package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/medledger/cmd/app/commands"
	"github.com/allisson/medledger/internal/app"
	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

func payloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "payload",
			Aliases: []string{"p"},
			Usage:   "Record payload (omit to read --payload-file or stdin)",
		},
		&cli.StringFlag{
			Name:  "payload-file",
			Usage: "Path of a file holding the record payload",
		},
	}
}

func getLedgerCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "mint",
			Usage: "Mint a new artifact with its genesis record",
			Flags: append([]cli.Flag{
				artifactFlag(true),
				&cli.StringFlag{
					Name:     "owner",
					Aliases:  []string{"o"},
					Required: true,
					Usage:    "Patient who owns the artifact",
				},
				&cli.StringFlag{
					Name:  "institution",
					Usage: "Issuing institution ID",
				},
				&cli.StringFlag{
					Name:  "classification",
					Value: string(registryDomain.ClassificationGeneral),
					Usage: "Sensitivity: 'general', 'confidential' or 'restricted'",
				},
				actorFlag("Actor minting the artifact"),
				formatFlag(),
			}, payloadFlags()...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					ledger, err := container.LedgerUseCase()
					if err != nil {
						return err
					}
					input := &ledgerDomain.MintInput{
						ArtifactID:           cmd.String("artifact"),
						OwnerID:              cmd.String("owner"),
						IssuingInstitutionID: cmd.String("institution"),
						Classification:       registryDomain.Classification(cmd.String("classification")),
						Payload:              []byte(cmd.String("payload")),
						ActorID:              cmd.String("actor"),
					}
					return commands.RunMint(
						ctx,
						ledger,
						container.Logger(),
						commands.DefaultIO(),
						input,
						cmd.String("payload-file"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "append-record",
			Usage: "Append a record update to an artifact's chain",
			Flags: append([]cli.Flag{
				artifactFlag(true),
				actorFlag("Actor appending the record"),
				formatFlag(),
			}, payloadFlags()...),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					ledger, err := container.LedgerUseCase()
					if err != nil {
						return err
					}
					return commands.RunAppendRecord(
						ctx,
						ledger,
						container.Logger(),
						commands.DefaultIO(),
						cmd.String("artifact"),
						cmd.String("actor"),
						cmd.String("payload"),
						cmd.String("payload-file"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "chain",
			Usage: "Print an artifact's blocks in append order",
			Flags: []cli.Flag{artifactFlag(true), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					ledger, err := container.LedgerUseCase()
					if err != nil {
						return err
					}
					return commands.RunChain(
						ctx,
						ledger,
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "artifacts",
			Usage: "List a patient's artifacts, or every artifact in mint order",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "owner",
					Aliases: []string{"o"},
					Usage:   "Patient whose artifacts to list (omit to list all)",
				},
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Artifacts to skip when listing all",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum artifacts to return when listing all",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					registry, err := container.RegistryUseCase()
					if err != nil {
						return err
					}
					return commands.RunListArtifacts(
						ctx,
						registry,
						commands.DefaultIO().Writer,
						cmd.String("owner"),
						int(cmd.Int("offset")),
						int(cmd.Int("limit")),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "verify",
			Usage: "Re-verify an artifact's hash chain",
			Flags: []cli.Flag{artifactFlag(true), formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					ledger, err := container.LedgerUseCase()
					if err != nil {
						return err
					}
					return commands.RunVerify(
						ctx,
						ledger,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("format"),
					)
				})
			},
		},
		{
			Name:  "confirm-integrity",
			Usage: "Lift an artifact's quarantine after a clean re-verification",
			Flags: []cli.Flag{
				artifactFlag(true),
				actorFlag("Operator confirming the chain"),
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withContainer(func(container *app.Container) error {
					ledger, err := container.LedgerUseCase()
					if err != nil {
						return err
					}
					return commands.RunConfirmIntegrity(
						ctx,
						ledger,
						container.Logger(),
						commands.DefaultIO().Writer,
						cmd.String("artifact"),
						cmd.String("actor"),
						cmd.String("format"),
					)
				})
			},
		},
	}
}
