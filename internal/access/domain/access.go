// Package domain defines authorization requests and decisions for record access.
package domain

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/medledger/internal/validation"
)

// Path names how an access decision was reached.
type Path string

const (
	// PathGrant means the actor holds an active grant on the artifact.
	PathGrant Path = "grant"
	// PathEmergency means an active emergency record for the artifact was presented.
	PathEmergency Path = "emergency"
	// PathNone means neither path allowed the request.
	PathNone Path = "none"
)

// AnonymousActorID attributes denials of requests that did not identify an actor.
const AnonymousActorID = "anonymous"

// Request asks whether ActorID may access ArtifactID. EmergencyRecordID is set when the
// caller presents an emergency access record instead of, or in addition to, a grant.
type Request struct {
	ArtifactID        string
	ActorID           string
	EmergencyRecordID *uuid.UUID
	RequestID         string
}

// Validate checks that the artifact and actor are present.
func (r *Request) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ArtifactID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
		),
		validation.Field(&r.ActorID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
		),
	)
	return customValidation.WrapValidationError(err)
}

// Decision is the outcome of an authorization request.
type Decision struct {
	Allowed bool
	Path    Path
	Reason  string
}
