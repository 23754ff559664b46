package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	accessDomain "github.com/allisson/medledger/internal/access/domain"
	accessUseCase "github.com/allisson/medledger/internal/access/usecase"
	"github.com/allisson/medledger/internal/clock"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
	grantUseCase "github.com/allisson/medledger/internal/grant/usecase"
)

// RunGrant issues an access grant and prints it.
func RunGrant(
	ctx context.Context,
	grants grantUseCase.GrantUseCase,
	logger *slog.Logger,
	writer io.Writer,
	input *grantDomain.GrantInput,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	grant, err := grants.Grant(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to grant access: %w", err)
	}

	logger.Info("access granted",
		slog.String("grant_id", grant.ID.String()),
		slog.String("artifact_id", grant.ArtifactID),
		slog.String("grantee_id", grant.GranteeID),
	)

	if format == FormatJSON {
		return writeJSON(writer, map[string]any{
			"id":          grant.ID.String(),
			"artifact_id": grant.ArtifactID,
			"grantee_id":  grant.GranteeID,
			"issued_at":   grant.IssuedAt.UTC().Format(timeLayout),
			"expires_at":  grant.ExpiresAt.UTC().Format(timeLayout),
			"status":      string(grant.Status),
		})
	}

	_, _ = fmt.Fprintf(writer, "Grant ID:    %s\n", grant.ID)
	_, _ = fmt.Fprintf(writer, "Artifact:    %s\n", grant.ArtifactID)
	_, _ = fmt.Fprintf(writer, "Grantee:     %s\n", grant.GranteeID)
	_, _ = fmt.Fprintf(writer, "Expires At:  %s\n", grant.ExpiresAt.UTC().Format(timeLayout))
	return nil
}

// RunRevoke revokes a grant. Revoking an inactive grant succeeds.
func RunRevoke(
	ctx context.Context,
	grants grantUseCase.GrantUseCase,
	logger *slog.Logger,
	writer io.Writer,
	grantID, actorID string,
) error {
	id, err := uuid.Parse(grantID)
	if err != nil {
		return fmt.Errorf("invalid grant id: %w", err)
	}

	if err := grants.Revoke(ctx, id, actorID); err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}

	logger.Info("grant revoked", slog.String("grant_id", grantID), slog.String("actor_id", actorID))
	_, _ = fmt.Fprintf(writer, "Grant %s revoked\n", grantID)
	return nil
}

// RunListGrants prints an artifact's grants with their effective status.
func RunListGrants(
	ctx context.Context,
	grants grantUseCase.GrantUseCase,
	clk clock.Clock,
	writer io.Writer,
	artifactID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	list, err := grants.ListByArtifact(ctx, artifactID)
	if err != nil {
		return fmt.Errorf("failed to list grants: %w", err)
	}

	now := clk.Now()

	if format == FormatJSON {
		output := make([]map[string]any, 0, len(list))
		for _, grant := range list {
			output = append(output, map[string]any{
				"id":         grant.ID.String(),
				"grantee_id": grant.GranteeID,
				"issued_at":  grant.IssuedAt.UTC().Format(timeLayout),
				"expires_at": grant.ExpiresAt.UTC().Format(timeLayout),
				"status":     string(grant.EffectiveStatus(now)),
			})
		}
		return writeJSON(writer, output)
	}

	if len(list) == 0 {
		_, _ = fmt.Fprintf(writer, "No grants for artifact %s\n", artifactID)
		return nil
	}
	for _, grant := range list {
		_, _ = fmt.Fprintf(writer, "%s  %-24s  %-8s  %s\n",
			grant.ID,
			grant.GranteeID,
			grant.EffectiveStatus(now),
			durationLabel(grant.ExpiresAt.Sub(now)),
		)
	}
	return nil
}

func durationLabel(remaining time.Duration) string {
	if remaining <= 0 {
		return "expired"
	}
	return "expires in " + remaining.Round(time.Minute).String()
}

// RunCheckAccess authorizes an actor against an artifact, optionally through an
// emergency record. A denial is printed and returned as an error.
func RunCheckAccess(
	ctx context.Context,
	access accessUseCase.AccessUseCase,
	writer io.Writer,
	artifactID, actorID, emergencyRecordID string,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}

	request := &accessDomain.Request{
		ArtifactID: artifactID,
		ActorID:    actorID,
		RequestID:  uuid.Must(uuid.NewV7()).String(),
	}
	if emergencyRecordID != "" {
		id, err := uuid.Parse(emergencyRecordID)
		if err != nil {
			return fmt.Errorf("invalid emergency record id: %w", err)
		}
		request.EmergencyRecordID = &id
	}

	decision, err := access.Authorize(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to check access: %w", err)
	}

	if format == FormatJSON {
		if err := writeJSON(writer, map[string]any{
			"artifact_id": artifactID,
			"actor_id":    actorID,
			"allowed":     decision.Allowed,
			"path":        string(decision.Path),
			"reason":      decision.Reason,
		}); err != nil {
			return err
		}
	} else {
		verdict := "DENIED"
		if decision.Allowed {
			verdict = "ALLOWED"
		}
		_, _ = fmt.Fprintf(writer, "%s: %s on %s (%s)\n", verdict, actorID, artifactID, decision.Reason)
	}

	if !decision.Allowed {
		return fmt.Errorf("access denied: %s", decision.Reason)
	}
	return nil
}

