// Package usecase authorizes record access by consulting the grant store first and the
// emergency access controller second. Every decision is audited.
package usecase

import (
	"context"

	accessDomain "github.com/allisson/medledger/internal/access/domain"
	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	emergencyDomain "github.com/allisson/medledger/internal/emergency/domain"
)

// GrantChecker reports whether a grantee holds an active grant.
type GrantChecker interface {
	CheckAccess(ctx context.Context, artifactID, granteeID string) (bool, error)
}

// EmergencyLookup lists unexpired emergency records of an artifact.
type EmergencyLookup interface {
	ActiveGrantsFor(ctx context.Context, artifactID string) ([]*emergencyDomain.EmergencyAccessRecord, error)
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.AuditEntry) error
}

// AccessUseCase decides record access requests.
type AccessUseCase interface {
	// Authorize allows the request when the actor holds an active grant, or when the
	// presented emergency record is active and belongs to the same artifact. Errors are
	// returned only for malformed requests and storage failures; a denial is a Decision.
	Authorize(ctx context.Context, request *accessDomain.Request) (*accessDomain.Decision, error)

	// Reject audits a denial for a request that could not be evaluated, such as one
	// without an actor. A blank actor is recorded as AnonymousActorID.
	Reject(ctx context.Context, request *accessDomain.Request, reason string) (*accessDomain.Decision, error)
}
