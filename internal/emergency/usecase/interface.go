// Package usecase implements the emergency access controller: reason-justified,
// time-limited overrides of the grant path that are always allowed and always audited.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
)

// EmergencyRepository defines persistence operations for emergency access records.
type EmergencyRepository interface {
	Create(ctx context.Context, record *emergencyDomain.EmergencyAccessRecord) error

	// Get retrieves a record by id. Returns ErrRecordNotFound if not found.
	Get(ctx context.Context, recordID uuid.UUID) (*emergencyDomain.EmergencyAccessRecord, error)

	// ListActiveByArtifact returns records expiring after now, most recent first.
	ListActiveByArtifact(
		ctx context.Context,
		artifactID string,
		now time.Time,
	) ([]*emergencyDomain.EmergencyAccessRecord, error)

	MarkRedeemed(ctx context.Context, recordID uuid.UUID, at time.Time) error
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.AuditEntry) error
}

// EmergencyUseCase grants and inspects emergency access.
type EmergencyUseCase interface {
	// RequestAccess creates a new active record and its one-time code. It fails only on
	// malformed input or storage errors; the artifact is not required to be minted.
	RequestAccess(
		ctx context.Context,
		input *emergencyDomain.RequestAccessInput,
	) (*emergencyDomain.RequestAccessOutput, error)

	// IsActive reports whether the record has not yet expired.
	IsActive(ctx context.Context, recordID uuid.UUID) (bool, error)

	// ActiveGrantsFor returns the artifact's unexpired records, most recent first.
	ActiveGrantsFor(ctx context.Context, artifactID string) ([]*emergencyDomain.EmergencyAccessRecord, error)

	// Redeem consumes the record's one-time code. Every attempt on an existing record is
	// audited. Returns ErrRecordExpired, ErrCodeAlreadyRedeemed or ErrCodeInvalid on rejection.
	Redeem(ctx context.Context, recordID uuid.UUID, code string) (*emergencyDomain.EmergencyAccessRecord, error)
}
