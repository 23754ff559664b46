// Package domain defines emergency access records: reason-justified, short-lived
// overrides of the normal grant path, each gated by a one-time code.
package domain

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/medledger/internal/errors"
	customValidation "github.com/allisson/medledger/internal/validation"
)

// DefaultDuration is how long an emergency access record stays active.
const DefaultDuration = 30 * time.Minute

// EmergencyAccessRecord is one emergency access request. Every request creates a new
// record; records never supersede each other and are never deleted. The reason is kept
// regardless of outcome. CodeHash is the Argon2id hash of the one-time code.
type EmergencyAccessRecord struct {
	ID          uuid.UUID
	ArtifactID  string
	RequestedBy string
	Reason      string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	CodeHash    string
	RedeemedAt  *time.Time
}

// IsActive reports whether now is before the record's expiry.
func (r *EmergencyAccessRecord) IsActive(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// IsRedeemed reports whether the one-time code was used.
func (r *EmergencyAccessRecord) IsRedeemed() bool {
	return r.RedeemedAt != nil
}

// RequestAccessInput contains the parameters of an emergency access request.
type RequestAccessInput struct {
	ArtifactID  string
	RequestedBy string
	Reason      string
}

// Validate rejects blank fields. Emergency requests are never refused for any other reason.
func (r *RequestAccessInput) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ArtifactID,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
		),
		validation.Field(&r.RequestedBy,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoControlChars,
		),
		validation.Field(&r.Reason,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 1024),
		),
	)
	return customValidation.WrapValidationError(err)
}

// RequestAccessOutput carries the new record and its one-time code. PlainCode is
// returned exactly once and never stored.
type RequestAccessOutput struct {
	Record    *EmergencyAccessRecord
	PlainCode string
}

// Emergency access errors.
var (
	// ErrRecordNotFound indicates no emergency record exists with the given id.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "emergency access record not found")

	// ErrRecordExpired indicates the record is no longer active.
	ErrRecordExpired = errors.Wrap(errors.ErrForbidden, "emergency access record expired")

	// ErrCodeInvalid indicates the presented code does not match.
	ErrCodeInvalid = errors.Wrap(errors.ErrUnauthorized, "invalid emergency access code")

	// ErrCodeAlreadyRedeemed indicates the one-time code was already used.
	ErrCodeAlreadyRedeemed = errors.Wrap(errors.ErrConflict, "emergency access code already redeemed")
)
