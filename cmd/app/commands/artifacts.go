package commands

import (
	"context"
	"fmt"
	"io"

	registryDomain "github.com/allisson/medledger/internal/registry/domain"
	registryUseCase "github.com/allisson/medledger/internal/registry/usecase"
)

type artifactOutput struct {
	ArtifactID           string `json:"artifact_id"`
	OwnerID              string `json:"owner_id"`
	IssuingInstitutionID string `json:"issuing_institution_id,omitempty"`
	Classification       string `json:"classification"`
	MintedAt             string `json:"minted_at"`
	CurrentFingerprint   string `json:"current_fingerprint"`
	Verified             bool   `json:"verified"`
}

// RunListArtifacts prints the artifacts owned by ownerID, or a page of every artifact
// in mint order when ownerID is empty.
func RunListArtifacts(
	ctx context.Context,
	registry registryUseCase.RegistryUseCase,
	writer io.Writer,
	ownerID string,
	offset, limit int,
	format string,
) error {
	if err := ValidateFormat(format); err != nil {
		return err
	}
	if offset < 0 || limit <= 0 {
		return fmt.Errorf("offset must be >= 0 and limit > 0")
	}

	var (
		list []*registryDomain.ArtifactMetadata
		err  error
	)
	if ownerID != "" {
		list, err = registry.FindByOwner(ctx, ownerID)
	} else {
		list, err = registry.List(ctx, offset, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}

	if format == FormatJSON {
		output := make([]artifactOutput, 0, len(list))
		for _, metadata := range list {
			output = append(output, artifactOutput{
				ArtifactID:           metadata.ArtifactID,
				OwnerID:              metadata.OwnerID,
				IssuingInstitutionID: metadata.IssuingInstitutionID,
				Classification:       string(metadata.Classification),
				MintedAt:             metadata.MintedAt.UTC().Format(timeLayout),
				CurrentFingerprint:   metadata.CurrentFingerprint,
				Verified:             metadata.Verified,
			})
		}
		return writeJSON(writer, output)
	}

	if len(list) == 0 {
		if ownerID != "" {
			_, _ = fmt.Fprintf(writer, "No artifacts for owner %s\n", ownerID)
		} else {
			_, _ = fmt.Fprintln(writer, "No artifacts")
		}
		return nil
	}
	for _, metadata := range list {
		state := "verified"
		if !metadata.Verified {
			state = "quarantined"
		}
		_, _ = fmt.Fprintf(writer, "%-24s  %-16s  %-12s  %-11s  %s\n",
			metadata.ArtifactID,
			metadata.OwnerID,
			metadata.Classification,
			state,
			metadata.MintedAt.UTC().Format(timeLayout),
		)
	}
	return nil
}
