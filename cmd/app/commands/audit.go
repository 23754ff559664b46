package commands

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	auditUseCase "github.com/allisson/medledger/internal/audit/usecase"
)

type auditEntryOutput struct {
	ID                string            `json:"id"`
	Timestamp         string            `json:"timestamp"`
	ActorID           string            `json:"actor_id"`
	Action            string            `json:"action"`
	TargetArtifactID  string            `json:"target_artifact_id,omitempty"`
	Detail            map[string]string `json:"detail,omitempty"`
	LinkedFingerprint string            `json:"linked_fingerprint,omitempty"`
	IsSigned          bool              `json:"is_signed"`
}

func formatDetail(detail map[string]string) string {
	parts := make([]string, 0, len(detail))
	for _, key := range slices.Sorted(maps.Keys(detail)) {
		parts = append(parts, key+"="+detail[key])
	}
	return strings.Join(parts, " ")
}

// RunAudit prints the audit trail of an artifact or of an actor in timestamp order.
func RunAudit(
	ctx context.Context,
	audit auditUseCase.AuditUseCase,
	writer io.Writer,
	artifactID, actorID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	var entries iter.Seq2[*auditDomain.AuditEntry, error]
	switch {
	case artifactID != "" && actorID == "":
		entries = audit.QueryByArtifact(ctx, artifactID)
	case actorID != "" && artifactID == "":
		entries = audit.QueryByActor(ctx, actorID)
	default:
		return fmt.Errorf("exactly one of artifact or actor is required")
	}

	output := make([]auditEntryOutput, 0)
	for entry, err := range entries {
		if err != nil {
			return fmt.Errorf("failed to query audit trail: %w", err)
		}

		if format == FormatJSON {
			output = append(output, auditEntryOutput{
				ID:                entry.ID.String(),
				Timestamp:         entry.Timestamp.UTC().Format(timeLayout),
				ActorID:           entry.ActorID,
				Action:            string(entry.Action),
				TargetArtifactID:  entry.TargetArtifactID,
				Detail:            entry.Detail,
				LinkedFingerprint: entry.LinkedFingerprint,
				IsSigned:          entry.IsSigned,
			})
			continue
		}

		_, _ = fmt.Fprintf(writer, "%s  %-24s  %-16s  %s  %s\n",
			entry.Timestamp.UTC().Format(timeLayout),
			entry.Action,
			entry.ActorID,
			entry.TargetArtifactID,
			formatDetail(entry.Detail),
		)
	}

	if format == FormatJSON {
		return writeJSON(writer, output)
	}
	return nil
}

// RunVerifyAudit checks the signatures of an artifact's audit entries. It returns an
// error when any signed entry fails verification.
func RunVerifyAudit(
	ctx context.Context,
	audit auditUseCase.AuditUseCase,
	logger *slog.Logger,
	writer io.Writer,
	artifactID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	report, err := audit.VerifyByArtifact(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to verify audit trail: %w", err)
	}

	invalid := make([]string, 0, len(report.InvalidEntries))
	for _, id := range report.InvalidEntries {
		invalid = append(invalid, id.String())
	}

	if format == FormatJSON {
		if err := writeJSON(writer, map[string]any{
			"artifact_id":     artifactID,
			"total_checked":   report.TotalChecked,
			"signed_count":    report.SignedCount,
			"unsigned_count":  report.UnsignedCount,
			"valid_count":     report.ValidCount,
			"invalid_entries": invalid,
			"valid":           report.Valid(),
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Artifact:   %s\n", artifactID)
		_, _ = fmt.Fprintf(writer, "Checked:    %d\n", report.TotalChecked)
		_, _ = fmt.Fprintf(writer, "Signed:     %d\n", report.SignedCount)
		_, _ = fmt.Fprintf(writer, "Unsigned:   %d\n", report.UnsignedCount)
		_, _ = fmt.Fprintf(writer, "Valid:      %d\n", report.ValidCount)
		for _, id := range invalid {
			_, _ = fmt.Fprintf(writer, "INVALID:    %s\n", id)
		}
	}

	if !report.Valid() {
		logger.Error("audit trail verification failed",
			slog.String("artifact_id", artifactID),
			slog.Int("invalid_count", len(invalid)),
		)
		return auditDomain.ErrSignatureInvalid
	}
	return nil
}
