// Package usecase implements the grant store: time-bounded access permissions between an
// institution and an artifact, with supersession and lazy expiry.
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/medledger/internal/audit/domain"
	grantDomain "github.com/allisson/medledger/internal/grant/domain"
	registryDomain "github.com/allisson/medledger/internal/registry/domain"
)

// GrantRepository defines persistence operations for access grants.
type GrantRepository interface {
	Create(ctx context.Context, grant *grantDomain.AccessGrant) error

	// Get retrieves a grant by id. Returns ErrGrantNotFound if not found.
	Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error)

	UpdateStatus(ctx context.Context, grantID uuid.UUID, status grantDomain.Status) error

	// ListActiveByPair returns the pair's grants whose stored status is active,
	// including ones whose expiry has passed.
	ListActiveByPair(ctx context.Context, artifactID, granteeID string) ([]*grantDomain.AccessGrant, error)

	ListByArtifact(ctx context.Context, artifactID string) ([]*grantDomain.AccessGrant, error)
}

// ArtifactLookup resolves minted artifacts.
type ArtifactLookup interface {
	Get(ctx context.Context, artifactID string) (*registryDomain.ArtifactMetadata, error)
}

// AuditRecorder appends entries to the audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, entry *auditDomain.AuditEntry) error
}

// GrantUseCase manages access grants. Writes are serialized per artifact.
type GrantUseCase interface {
	// Grant issues a new active grant expiring DurationDays after now. Every active
	// grant of the same pair is superseded first: revoked, or expired when its expiry
	// has already passed. Returns ErrInvalidDuration for a non-positive duration and
	// ErrUnknownArtifact when the artifact was never minted.
	Grant(ctx context.Context, input *grantDomain.GrantInput) (*grantDomain.AccessGrant, error)

	// Revoke revokes a grant. Revoking a grant that is already revoked or expired
	// succeeds without effect. Returns ErrGrantNotFound for unknown ids.
	Revoke(ctx context.Context, grantID uuid.UUID, actorID string) error

	// CheckAccess reports whether the grantee holds an active, unexpired grant.
	CheckAccess(ctx context.Context, artifactID, granteeID string) (bool, error)

	// Get returns a grant with lazy expiry applied to its status.
	Get(ctx context.Context, grantID uuid.UUID) (*grantDomain.AccessGrant, error)

	// ListByArtifact returns the artifact's grants in issue order with lazy expiry applied.
	ListByArtifact(ctx context.Context, artifactID string) ([]*grantDomain.AccessGrant, error)
}
