package domain

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/medledger/internal/validation"
)

// GrantInput contains the parameters for issuing an access grant. DurationDays has no
// default here; the caller's policy layer must supply it.
type GrantInput struct {
	ArtifactID   string
	GranteeID    string
	DurationDays int
	ActorID      string
}

// Validate checks the identifiers. Duration is checked separately so a bad duration
// surfaces as ErrInvalidDuration.
func (g *GrantInput) Validate() error {
	if g.DurationDays <= 0 {
		return ErrInvalidDuration
	}

	err := validation.ValidateStruct(g,
		validation.Field(&g.ArtifactID, validation.Required, customValidation.NotBlank),
		validation.Field(&g.GranteeID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
			validation.Length(1, 128),
		),
		validation.Field(&g.ActorID, validation.Required, customValidation.NotBlank),
	)
	return customValidation.WrapValidationError(err)
}
