package main

import (
	"github.com/urfave/cli/v3"

	"github.com/allisson/medledger/cmd/app/commands"
	"github.com/allisson/medledger/internal/app"
	"github.com/allisson/medledger/internal/config"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getLedgerCommands()...)
	cmds = append(cmds, getAccessCommands()...)
	cmds = append(cmds, getAuditCommands()...)
	return cmds
}

// withContainer builds a container from the environment, runs fn and releases it.
func withContainer(fn func(container *app.Container) error) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	defer commands.CloseContainer(container, container.Logger())
	return fn(container)
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   commands.FormatText,
		Usage:   "Output format: 'text' or 'json'",
	}
}

func artifactFlag(required bool) cli.Flag {
	return &cli.StringFlag{
		Name:     "artifact",
		Aliases:  []string{"a"},
		Required: required,
		Usage:    "Artifact ID",
	}
}

func actorFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:     "actor",
		Required: true,
		Usage:    usage,
	}
}

