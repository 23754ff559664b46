package domain

import (
	validation "github.com/jellydator/validation"

	registryDomain "github.com/allisson/medledger/internal/registry/domain"
	customValidation "github.com/allisson/medledger/internal/validation"
)

// MintInput contains the parameters for issuing a new artifact.
type MintInput struct {
	ArtifactID           string
	OwnerID              string
	IssuingInstitutionID string
	Classification       registryDomain.Classification
	Payload              []byte
	ActorID              string
}

// Validate checks if the mint input is valid.
func (m *MintInput) Validate() error {
	err := validation.ValidateStruct(m,
		validation.Field(&m.ArtifactID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
			validation.Length(1, 128),
		),
		validation.Field(&m.OwnerID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
			validation.Length(1, 128),
		),
		validation.Field(&m.IssuingInstitutionID,
			customValidation.NoControlChars,
			validation.Length(0, 128),
		),
		validation.Field(&m.Classification, validation.By(registryDomain.ValidateClassification)),
		validation.Field(&m.ActorID, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapValidationError(err)
}
