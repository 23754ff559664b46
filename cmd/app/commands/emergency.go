package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
	emergencyUseCase "github.com/allisson/medledger/internal/emergency/usecase"
)

func recordOutput(record *emergencyDomain.EmergencyAccessRecord) map[string]any {
	output := map[string]any{
		"id":           record.ID.String(),
		"artifact_id":  record.ArtifactID,
		"requested_by": record.RequestedBy,
		"reason":       record.Reason,
		"issued_at":    record.IssuedAt.UTC().Format(timeLayout),
		"expires_at":   record.ExpiresAt.UTC().Format(timeLayout),
	}
	if record.RedeemedAt != nil {
		output["redeemed_at"] = record.RedeemedAt.UTC().Format(timeLayout)
	}
	return output
}

// RunEmergencyAccess opens a break-glass window on an artifact. The one-time code is
// printed once and cannot be recovered afterwards.
func RunEmergencyAccess(
	ctx context.Context,
	emergency emergencyUseCase.EmergencyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	input *emergencyDomain.RequestAccessInput,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	output, err := emergency.RequestAccess(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to request emergency access: %w", err)
	}
	record := output.Record

	logger.Warn("emergency access requested",
		slog.String("record_id", record.ID.String()),
		slog.String("artifact_id", record.ArtifactID),
		slog.String("requested_by", record.RequestedBy),
	)

	if format == FormatJSON {
		result := recordOutput(record)
		result["code"] = output.PlainCode
		return writeJSON(writer, result)
	}

	_, _ = fmt.Fprintf(writer, "Emergency Record: %s\n", record.ID)
	_, _ = fmt.Fprintf(writer, "Artifact:         %s\n", record.ArtifactID)
	_, _ = fmt.Fprintf(writer, "Expires At:       %s\n", record.ExpiresAt.UTC().Format(timeLayout))
	_, _ = fmt.Fprintf(writer, "Code:             %s\n\n", output.PlainCode)
	_, _ = fmt.Fprintf(writer, "WARNING: the code is shown only once.\n")
	return nil
}

// RunEmergencyStatus prints whether a record is active, or with an artifact instead of
// a record id, every active record of that artifact.
func RunEmergencyStatus(
	ctx context.Context,
	emergency emergencyUseCase.EmergencyUseCase,
	writer io.Writer,
	recordID, artifactID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if (recordID == "") == (artifactID == "") {
		return fmt.Errorf("exactly one of record id or artifact id is required")
	}

	if recordID != "" {
		id, err := uuid.Parse(recordID)
		if err != nil {
			return fmt.Errorf("invalid emergency record id: %w", err)
		}
		active, err := emergency.IsActive(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check emergency record: %w", err)
		}
		if format == FormatJSON {
			return writeJSON(writer, map[string]any{"id": recordID, "active": active})
		}
		status := "inactive"
		if active {
			status = "active"
		}
		_, _ = fmt.Fprintf(writer, "Emergency record %s is %s\n", recordID, status)
		return nil
	}

	records, err := emergency.ActiveGrantsFor(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to list emergency records: %w", err)
	}

	if format == FormatJSON {
		output := make([]map[string]any, 0, len(records))
		for _, record := range records {
			output = append(output, recordOutput(record))
		}
		return writeJSON(writer, output)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintf(writer, "No active emergency records for artifact %s\n", artifactID)
		return nil
	}
	for _, record := range records {
		_, _ = fmt.Fprintf(writer, "%s  %-24s  until %s  %s\n",
			record.ID,
			record.RequestedBy,
			record.ExpiresAt.UTC().Format(timeLayout),
			record.Reason,
		)
	}
	return nil
}

// RunEmergencyRedeem consumes a record's one-time code.
func RunEmergencyRedeem(
	ctx context.Context,
	emergency emergencyUseCase.EmergencyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	recordID, code string,
) error {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return fmt.Errorf("invalid emergency record id: %w", err)
	}

	record, err := emergency.Redeem(ctx, id, code)
	if err != nil {
		return fmt.Errorf("failed to redeem emergency code: %w", err)
	}

	logger.Info("emergency code redeemed", slog.String("record_id", recordID))
	_, _ = fmt.Fprintf(writer, "Emergency record %s redeemed at %s\n", record.ID, record.RedeemedAt.UTC().Format(timeLayout))
	return nil
}
