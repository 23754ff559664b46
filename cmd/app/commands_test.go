package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCommands(t *testing.T) {
	cmds := getCommands("test")

	seen := make(map[string]bool, len(cmds))
	for _, cmd := range cmds {
		require.False(t, seen[cmd.Name], "duplicate command %q", cmd.Name)
		seen[cmd.Name] = true
		require.NotNil(t, cmd.Action, "command %q has no action", cmd.Name)
		require.NotEmpty(t, cmd.Usage)
	}

	for _, name := range []string{
		"server", "migrate",
		"mint", "append-record", "chain", "artifacts", "verify", "confirm-integrity",
		"grant", "revoke", "grants", "check-access",
		"emergency-access", "emergency-status", "emergency-redeem",
		"audit", "verify-audit",
	} {
		require.True(t, seen[name], "missing command %q", name)
	}
}
