package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
)

func TestRunMint(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("success-text", func(t *testing.T) {
		container, _ := newTestContainer(t)
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		input := &ledgerDomain.MintInput{ArtifactID: "A1", OwnerID: "patient-1", ActorID: "clinic-1"}
		streams := IOTuple{Reader: strings.NewReader("genesis payload"), Writer: &out}

		err = RunMint(ctx, ledger, logger, streams, input, "", FormatText)
		require.NoError(t, err)
		require.Contains(t, out.String(), "Artifact:     A1")
		require.Contains(t, out.String(), "Sequence:     1")
		require.Contains(t, out.String(), "Previous:     "+string(ledgerDomain.GenesisSentinel))
		require.Contains(t, out.String(), "Created At:   2026-03-14T09:30:00.000000Z")
	})

	t.Run("success-json", func(t *testing.T) {
		container, _ := newTestContainer(t)
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		input := &ledgerDomain.MintInput{
			ArtifactID: "A1",
			OwnerID:    "patient-1",
			Payload:    []byte("inline"),
			ActorID:    "clinic-1",
		}

		err = RunMint(ctx, ledger, logger, IOTuple{Writer: &out}, input, "", FormatJSON)
		require.NoError(t, err)

		var result blockOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, "A1", result.ArtifactID)
		require.Equal(t, "patient-1", result.OwnerID)
		require.Len(t, result.BlockFingerprint, 64)
	})

	t.Run("duplicate-artifact", func(t *testing.T) {
		container, _ := newTestContainer(t)
		mintArtifact(t, container, "A1")
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		input := &ledgerDomain.MintInput{
			ArtifactID: "A1",
			OwnerID:    "patient-1",
			Payload:    []byte("again"),
			ActorID:    "clinic-1",
		}
		err = RunMint(ctx, ledger, logger, IOTuple{Writer: &bytes.Buffer{}}, input, "", FormatText)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to mint artifact")
	})

	t.Run("empty-payload", func(t *testing.T) {
		input := &ledgerDomain.MintInput{ArtifactID: "A1", OwnerID: "patient-1", ActorID: "clinic-1"}
		streams := IOTuple{Reader: strings.NewReader(""), Writer: &bytes.Buffer{}}

		err := RunMint(ctx, nil, logger, streams, input, "", FormatText)
		require.Error(t, err)
		require.Contains(t, err.Error(), "payload is empty")
	})

	t.Run("invalid-format", func(t *testing.T) {
		err := RunMint(ctx, nil, logger, IOTuple{}, &ledgerDomain.MintInput{}, "", "xml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})
}

func TestRunAppendRecord(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("success", func(t *testing.T) {
		container, _ := newTestContainer(t)
		genesis := mintArtifact(t, container, "A1")
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		err = RunAppendRecord(ctx, ledger, logger, IOTuple{Writer: &out}, "A1", "clinic-1", "dx:flu", "", FormatJSON)
		require.NoError(t, err)

		var result blockOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, string(genesis.BlockFingerprint), result.PreviousFingerprint)
		require.Equal(t, "patient-1", result.OwnerID)
	})

	t.Run("unknown-artifact", func(t *testing.T) {
		container, _ := newTestContainer(t)
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		err = RunAppendRecord(ctx, ledger, logger, IOTuple{Writer: &bytes.Buffer{}}, "missing", "clinic-1", "x", "", FormatText)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to append record")
	})
}

func TestRunChain(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		container, _ := newTestContainer(t)
		genesis := mintArtifact(t, container, "A1")
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)
		_, err = ledger.AppendRecord(ctx, "A1", []byte("dx:flu"), "clinic-1")
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunChain(ctx, ledger, &out, "A1", FormatText))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		require.Contains(t, lines[0], string(genesis.BlockFingerprint))
	})

	t.Run("json", func(t *testing.T) {
		container, _ := newTestContainer(t)
		mintArtifact(t, container, "A1")
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunChain(ctx, ledger, &out, "A1", FormatJSON))

		var result []blockOutput
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Len(t, result, 1)
	})

	t.Run("empty", func(t *testing.T) {
		container, _ := newTestContainer(t)
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunChain(ctx, ledger, &out, "missing", FormatText))
		require.Contains(t, out.String(), "No blocks for artifact missing")
	})

	t.Run("error", func(t *testing.T) {
		ledger := &mockLedgerUseCase{}
		ledger.On("GetChainFor", ctx, "A1").Return(nil, errors.New("storage down"))

		err := RunChain(ctx, ledger, &bytes.Buffer{}, "A1", FormatText)
		require.Error(t, err)
		require.Contains(t, err.Error(), "storage down")
		ledger.AssertExpectations(t)
	})
}

func TestRunVerify(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("valid-chain", func(t *testing.T) {
		container, _ := newTestContainer(t)
		mintArtifact(t, container, "A1")
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunVerify(ctx, ledger, logger, &out, "A1", FormatText))
		require.Contains(t, out.String(), "Status: VALID")
		require.Contains(t, out.String(), "Blocks:             1")
	})

	t.Run("unknown-artifact", func(t *testing.T) {
		container, _ := newTestContainer(t)
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		err = RunVerify(ctx, ledger, logger, &out, "missing", FormatJSON)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown artifact")

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, false, result["is_valid"])
		require.NotContains(t, result, "minted_at")
	})

	t.Run("broken-chain", func(t *testing.T) {
		ledger := &mockLedgerUseCase{}
		ledger.On("Verify", ctx, "A1").Return(&ledgerDomain.VerificationResult{
			ArtifactID:     "A1",
			BlockCount:     3,
			FailedSequence: 2,
			Reason:         "fingerprint mismatch",
		}, nil)

		var out bytes.Buffer
		err := RunVerify(ctx, ledger, logger, &out, "A1", FormatText)
		require.Error(t, err)
		require.Contains(t, out.String(), "Failed Block:       2")
		require.Contains(t, out.String(), "Status: INVALID")
		ledger.AssertExpectations(t)
	})
}

func TestRunConfirmIntegrity(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("success", func(t *testing.T) {
		container, _ := newTestContainer(t)
		mintArtifact(t, container, "A1")
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, RunConfirmIntegrity(ctx, ledger, logger, &out, "A1", "auditor-1", FormatText))
		require.Contains(t, out.String(), "Status: VALID")
	})

	t.Run("unknown-artifact", func(t *testing.T) {
		container, _ := newTestContainer(t)
		ledger, err := container.LedgerUseCase()
		require.NoError(t, err)

		err = RunConfirmIntegrity(ctx, ledger, logger, &bytes.Buffer{}, "missing", "auditor-1", FormatText)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to confirm integrity")
	})
}
