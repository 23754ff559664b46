// Package domain defines the asset registry entities: the current metadata of every
// minted artifact.
package domain

import (
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/medledger/internal/errors"
)

// Classification labels how sensitive an artifact's record bundle is.
type Classification string

const (
	ClassificationGeneral      Classification = "general"
	ClassificationConfidential Classification = "confidential"
	ClassificationRestricted   Classification = "restricted"
)

// ArtifactMetadata is the single current-state row of a minted artifact. It is created on
// mint, updated in place on every ledger append and never deleted. CurrentFingerprint
// always equals the fingerprint of the artifact's latest committed block. Verified is
// false while the artifact is quarantined after an integrity violation.
type ArtifactMetadata struct {
	ArtifactID           string
	OwnerID              string
	IssuingInstitutionID string
	Classification       Classification
	MintedAt             time.Time
	CurrentFingerprint   string
	Verified             bool
}

// ValidateClassification accepts the known classifications and the empty value, which
// callers default to ClassificationGeneral.
func ValidateClassification(value any) error {
	c, ok := value.(Classification)
	if !ok {
		return validation.NewError("validation_classification_type", "must be a classification")
	}
	switch c {
	case "", ClassificationGeneral, ClassificationConfidential, ClassificationRestricted:
		return nil
	default:
		return validation.NewError(
			"validation_classification",
			"must be one of: general, confidential, restricted",
		)
	}
}

// Registry errors.
var (
	// ErrUnknownArtifact indicates no artifact was minted under the identifier.
	ErrUnknownArtifact = errors.Wrap(errors.ErrNotFound, "unknown artifact")

	// ErrDuplicateArtifact indicates the identifier was already minted.
	ErrDuplicateArtifact = errors.Wrap(errors.ErrConflict, "artifact already minted")
)
