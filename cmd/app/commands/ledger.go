package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	ledgerDomain "github.com/allisson/medledger/internal/ledger/domain"
	ledgerUseCase "github.com/allisson/medledger/internal/ledger/usecase"
)

type blockOutput struct {
	SequenceNumber      int64  `json:"sequence_number"`
	ArtifactID          string `json:"artifact_id"`
	OwnerID             string `json:"owner_id"`
	PayloadDigest       string `json:"payload_digest"`
	BlockFingerprint    string `json:"block_fingerprint"`
	PreviousFingerprint string `json:"previous_fingerprint"`
	CreatedAt           string `json:"created_at"`
}

func toBlockOutput(block *ledgerDomain.Block) blockOutput {
	return blockOutput{
		SequenceNumber:      block.SequenceNumber,
		ArtifactID:          block.ArtifactID,
		OwnerID:             block.OwnerID,
		PayloadDigest:       block.PayloadDigest,
		BlockFingerprint:    string(block.BlockFingerprint),
		PreviousFingerprint: string(block.PreviousFingerprint),
		CreatedAt:           block.CreatedAt.UTC().Format(timeLayout),
	}
}

func writeBlock(writer io.Writer, block *ledgerDomain.Block, format string) error {
	if format == FormatJSON {
		return writeJSON(writer, toBlockOutput(block))
	}
	_, _ = fmt.Fprintf(writer, "Artifact:     %s\n", block.ArtifactID)
	_, _ = fmt.Fprintf(writer, "Sequence:     %d\n", block.SequenceNumber)
	_, _ = fmt.Fprintf(writer, "Fingerprint:  %s\n", block.BlockFingerprint)
	_, _ = fmt.Fprintf(writer, "Previous:     %s\n", block.PreviousFingerprint)
	_, _ = fmt.Fprintf(writer, "Created At:   %s\n", block.CreatedAt.UTC().Format(timeLayout))
	return nil
}

// RunMint mints a new artifact and prints its genesis block.
func RunMint(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	logger *slog.Logger,
	streams IOTuple,
	input *ledgerDomain.MintInput,
	payloadFile string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	payload, err := readPayload(string(input.Payload), payloadFile, streams.Reader)
	if err != nil {
		return err
	}
	input.Payload = payload

	block, err := ledger.Mint(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to mint artifact: %w", err)
	}

	logger.Info("artifact minted",
		slog.String("artifact_id", block.ArtifactID),
		slog.Int64("sequence_number", block.SequenceNumber),
	)
	return writeBlock(streams.Writer, block, format)
}

// RunAppendRecord appends a record update to an artifact's chain.
func RunAppendRecord(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	logger *slog.Logger,
	streams IOTuple,
	artifactID, actorID, payload, payloadFile string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	data, err := readPayload(payload, payloadFile, streams.Reader)
	if err != nil {
		return err
	}

	block, err := ledger.AppendRecord(ctx, artifactID, data, actorID)
	if err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	logger.Info("record appended",
		slog.String("artifact_id", block.ArtifactID),
		slog.Int64("sequence_number", block.SequenceNumber),
	)
	return writeBlock(streams.Writer, block, format)
}

// RunChain prints an artifact's blocks in append order.
func RunChain(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	writer io.Writer,
	artifactID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	blocks, err := ledger.GetChainFor(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to load chain: %w", err)
	}

	if format == FormatJSON {
		output := make([]blockOutput, 0, len(blocks))
		for _, block := range blocks {
			output = append(output, toBlockOutput(block))
		}
		return writeJSON(writer, output)
	}

	if len(blocks) == 0 {
		_, _ = fmt.Fprintf(writer, "No blocks for artifact %s\n", artifactID)
		return nil
	}
	for _, block := range blocks {
		_, _ = fmt.Fprintf(writer, "%6d  %s  %s  %s\n",
			block.SequenceNumber,
			block.CreatedAt.UTC().Format(timeLayout),
			block.BlockFingerprint,
			block.PayloadDigest,
		)
	}
	return nil
}

func writeVerification(writer io.Writer, result *ledgerDomain.VerificationResult, format string) error {
	if format == FormatJSON {
		output := map[string]any{
			"artifact_id":        result.ArtifactID,
			"is_valid":           result.IsValid,
			"block_count":        result.BlockCount,
			"latest_fingerprint": string(result.LatestFingerprint),
			"failed_sequence":    result.FailedSequence,
			"reason":             result.Reason,
		}
		if !result.MintedAt.IsZero() {
			output["minted_at"] = result.MintedAt.UTC().Format(timeLayout)
		}
		return writeJSON(writer, output)
	}

	_, _ = fmt.Fprintf(writer, "Chain Verification: %s\n", result.ArtifactID)
	_, _ = fmt.Fprintf(writer, "Blocks:             %d\n", result.BlockCount)
	if !result.MintedAt.IsZero() {
		_, _ = fmt.Fprintf(writer, "Minted At:          %s\n", result.MintedAt.UTC().Format(timeLayout))
	}
	_, _ = fmt.Fprintf(writer, "Latest Fingerprint: %s\n\n", result.LatestFingerprint)
	if result.IsValid {
		_, _ = fmt.Fprintf(writer, "Status: VALID\n")
		return nil
	}
	if result.FailedSequence > 0 {
		_, _ = fmt.Fprintf(writer, "Failed Block:       %d\n", result.FailedSequence)
	}
	_, _ = fmt.Fprintf(writer, "Reason:             %s\n", result.Reason)
	_, _ = fmt.Fprintf(writer, "Status: INVALID\n")
	return nil
}

// RunVerify re-verifies an artifact's chain. An invalid chain is reported and returned
// as an error so the process exits non-zero.
func RunVerify(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	artifactID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	result, err := ledger.Verify(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to verify chain: %w", err)
	}

	if err := writeVerification(writer, result, format); err != nil {
		return err
	}

	logger.Info("chain verified",
		slog.String("artifact_id", artifactID),
		slog.Bool("valid", result.IsValid),
		slog.Int("block_count", result.BlockCount),
	)

	if !result.IsValid {
		return fmt.Errorf("chain verification failed for %s: %s", artifactID, result.Reason)
	}
	return nil
}

// RunConfirmIntegrity lifts an artifact's quarantine after a successful re-verification.
func RunConfirmIntegrity(
	ctx context.Context,
	ledger ledgerUseCase.LedgerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	artifactID, actorID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	result, err := ledger.ConfirmIntegrity(ctx, artifactID, actorID)
	if err != nil {
		return fmt.Errorf("failed to confirm integrity: %w", err)
	}

	logger.Info("integrity confirmed",
		slog.String("artifact_id", artifactID),
		slog.String("actor_id", actorID),
	)
	return writeVerification(writer, result, format)
}
